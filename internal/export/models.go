package export

import (
	"time"

	"github.com/rschio/sunbed/internal/core/customer"
	"github.com/rschio/sunbed/internal/core/plan"
)

// Document is the content of an export file.
type Document struct {
	Customers    []Customer    `json:"customers"`
	Transactions []Transaction `json:"transactions"`
	Plans        []Plan        `json:"plans"`
	ExportedAt   string        `json:"exportedAt"`
}

type Customer struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Lastname         *string `json:"lastname"`
	MinutesRemaining int     `json:"minutes_remaining"`
	PlanType         *string `json:"plan_type"`
}

type Transaction struct {
	ID         int    `json:"id"`
	CustomerID int    `json:"customer_id"`
	Change     int    `json:"change"`
	Timestamp  string `json:"timestamp"`
}

type Plan struct {
	ID         int    `json:"id"`
	CustomerID int    `json:"customer_id"`
	Type       string `json:"type"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toCustomers(cs []customer.Customer) []Customer {
	out := make([]Customer, len(cs))
	for i, c := range cs {
		out[i] = Customer{
			ID:               c.ID,
			Name:             c.Name,
			Lastname:         nullable(c.Lastname),
			MinutesRemaining: c.MinutesRemaining,
			PlanType:         nullable(c.PlanType),
		}
	}
	return out
}

func toTransactions(ts []customer.Transaction) []Transaction {
	out := make([]Transaction, len(ts))
	for i, t := range ts {
		out[i] = Transaction{
			ID:         t.ID,
			CustomerID: t.CustomerID,
			Change:     t.Change,
			Timestamp:  t.Timestamp.UTC().Format(timestampLayout),
		}
	}
	return out
}

func toPlans(ps []plan.Plan) []Plan {
	out := make([]Plan, len(ps))
	for i, p := range ps {
		out[i] = Plan{
			ID:         p.ID,
			CustomerID: p.CustomerID,
			Type:       string(p.Type),
			StartDate:  p.StartDate.Format(time.DateOnly),
			EndDate:    p.EndDate.Format(time.DateOnly),
		}
	}
	return out
}
