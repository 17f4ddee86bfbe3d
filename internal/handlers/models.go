package handlers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rschio/sunbed/internal/backup"
	"github.com/rschio/sunbed/internal/core/customer"
	"github.com/rschio/sunbed/internal/core/minutes"
	"github.com/rschio/sunbed/internal/core/plan"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type NewCustomerReq struct {
	Name     string `json:"name"`
	Lastname string `json:"lastname"`
	Minutes  int    `json:"minutes"`
}

type UpdateCustomerReq struct {
	Name     string `json:"name"`
	Lastname string `json:"lastname"`
}

type UpdateMinutesReq struct {
	Minutes *int `json:"minutes"`
}

type TransactionReq struct {
	Change int `json:"change"`
}

type Customer struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Lastname         string `json:"lastname"`
	MinutesRemaining int    `json:"minutes_remaining"`
	PlanType         string `json:"plan_type,omitempty"`
	HasPlan          bool   `json:"has_plan"`
}

func toCustomer(c customer.Customer) Customer {
	return Customer{
		ID:               c.ID,
		Name:             c.Name,
		Lastname:         c.Lastname,
		MinutesRemaining: c.MinutesRemaining,
		PlanType:         c.PlanType,
		HasPlan:          c.HasPlan(),
	}
}

func toCustomers(cs []customer.Customer) []Customer {
	slice := make([]Customer, len(cs))
	for i, c := range cs {
		slice[i] = toCustomer(c)
	}
	return slice
}

type Transaction struct {
	ID         int    `json:"id"`
	CustomerID int    `json:"customer_id"`
	Change     int    `json:"change"`
	Timestamp  string `json:"timestamp"`
}

func toTransactions(ts []customer.Transaction) []Transaction {
	slice := make([]Transaction, len(ts))
	for i, t := range ts {
		slice[i] = Transaction{
			ID:         t.ID,
			CustomerID: t.CustomerID,
			Change:     t.Change,
			Timestamp:  t.Timestamp.UTC().Format(timestampLayout),
		}
	}
	return slice
}

type EnrollReq struct {
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (req EnrollReq) toNewPlan(customerID int) (plan.NewPlan, error) {
	typ, err := plan.ParseType(req.Type)
	if err != nil {
		return plan.NewPlan{}, err
	}

	np := plan.NewPlan{CustomerID: customerID, Type: typ}

	if np.Start, err = parseDate(req.StartDate); err != nil {
		return plan.NewPlan{}, fmt.Errorf("%w: start_date: %s", plan.ErrInvalidArgument, err)
	}
	if np.End, err = parseDate(req.EndDate); err != nil {
		return plan.NewPlan{}, fmt.Errorf("%w: end_date: %s", plan.ErrInvalidArgument, err)
	}

	return np, nil
}

// parseDate reads a YYYY-MM-DD local day. An empty string is the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(time.DateOnly, s, time.Local)
}

type Plan struct {
	ID         int    `json:"id"`
	CustomerID int    `json:"customer_id"`
	Type       string `json:"type"`
	Label      string `json:"label"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

func toPlan(p plan.Plan) Plan {
	return Plan{
		ID:         p.ID,
		CustomerID: p.CustomerID,
		Type:       string(p.Type),
		Label:      p.Type.Label(),
		StartDate:  p.StartDate.Format(time.DateOnly),
		EndDate:    p.EndDate.Format(time.DateOnly),
	}
}

type PlanStatus struct {
	Plans         []Plan `json:"plans"`
	Active        *Plan  `json:"active"`
	DaysRemaining int    `json:"days_remaining"`
	Unlimited     bool   `json:"unlimited"`
}

func toPlanStatus(st plan.Status) PlanStatus {
	ps := PlanStatus{
		Plans:         make([]Plan, len(st.Plans)),
		DaysRemaining: st.DaysRemaining,
		Unlimited:     st.Unlimited,
	}
	for i, p := range st.Plans {
		ps.Plans[i] = toPlan(p)
	}
	if st.Active != nil {
		a := toPlan(*st.Active)
		ps.Active = &a
	}
	return ps
}

type EnrollResp struct {
	Plan   Plan       `json:"plan"`
	Status PlanStatus `json:"status"`
}

type AdjustReq struct {
	// Op is one of "quick", "add" or "subtract". Amount is signed for
	// "quick" and positive otherwise.
	Op     string `json:"op"`
	Amount int    `json:"amount"`
}

type Session struct {
	ID            uuid.UUID `json:"id"`
	CustomerID    int       `json:"customer_id"`
	State         string    `json:"state"`
	Baseline      int       `json:"baseline"`
	Balance       int       `json:"balance"`
	Display       string    `json:"display"`
	Unlimited     bool      `json:"unlimited"`
	DaysRemaining int       `json:"days_remaining"`
	Summary       string    `json:"summary,omitempty"`
}

func toSession(id uuid.UUID, s *minutes.Session) Session {
	return Session{
		ID:            id,
		CustomerID:    s.CustomerID(),
		State:         s.State().String(),
		Baseline:      s.Baseline(),
		Balance:       s.Balance(),
		Display:       s.Display(),
		Unlimited:     s.Unlimited(),
		DaysRemaining: s.Status().DaysRemaining,
		Summary:       s.Summary(),
	}
}

type ExportResp struct {
	File string `json:"file"`
}

type BackupResp struct {
	File    string   `json:"file"`
	Written bool     `json:"written"`
	Removed []string `json:"removed"`
}

func toBackupResp(rep backup.Report) BackupResp {
	removed := rep.Removed
	if removed == nil {
		removed = []string{}
	}
	return BackupResp{
		File:    rep.File,
		Written: rep.Written,
		Removed: removed,
	}
}
