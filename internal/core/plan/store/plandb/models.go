package plandb

import (
	"fmt"
	"time"

	"github.com/rschio/sunbed/internal/core/plan"
)

// dateLayout is how plan dates are stored, local calendar days.
const dateLayout = "2006-01-02"

type dbPlan struct {
	ID         int    `db:"id"`
	CustomerID int    `db:"customer_id"`
	Type       string `db:"type"`
	StartDate  string `db:"start_date"`
	EndDate    string `db:"end_date"`
}

func toDBPlan(np plan.NewPlan) dbPlan {
	return dbPlan{
		CustomerID: np.CustomerID,
		Type:       string(np.Type),
		StartDate:  np.Start.Format(dateLayout),
		EndDate:    np.End.Format(dateLayout),
	}
}

func toPlan(p dbPlan) (plan.Plan, error) {
	start, err := time.ParseInLocation(dateLayout, p.StartDate, time.Local)
	if err != nil {
		return plan.Plan{}, fmt.Errorf("parse start date of plan[%d]: %w", p.ID, err)
	}
	end, err := time.ParseInLocation(dateLayout, p.EndDate, time.Local)
	if err != nil {
		return plan.Plan{}, fmt.Errorf("parse end date of plan[%d]: %w", p.ID, err)
	}

	return plan.Plan{
		ID:         p.ID,
		CustomerID: p.CustomerID,
		Type:       plan.Type(p.Type),
		StartDate:  start,
		EndDate:    end,
	}, nil
}

func toPlans(ps []dbPlan) ([]plan.Plan, error) {
	slice := make([]plan.Plan, len(ps))
	for i, p := range ps {
		pp, err := toPlan(p)
		if err != nil {
			return nil, err
		}
		slice[i] = pp
	}
	return slice, nil
}
