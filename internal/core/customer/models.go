package customer

import (
	"time"
)

// Customer is a salon customer and its minutes balance.
type Customer struct {
	ID               int
	Name             string
	Lastname         string
	MinutesRemaining int

	// PlanType is the type of the plan active when the customer was
	// queried, empty if none. It is only filled by QueryAll.
	PlanType string
}

// HasPlan reports if the customer had an active plan when listed.
func (c Customer) HasPlan() bool {
	return c.PlanType != ""
}

type NewCustomer struct {
	Name     string
	Lastname string
	Minutes  int
}

type UpdateCustomer struct {
	Name     string
	Lastname string
}

// Transaction records one change of a customer's minutes balance.
type Transaction struct {
	ID         int
	CustomerID int
	Change     int
	Timestamp  time.Time
}

// TransactionFilter bounds QueryAllTransactions. The range is only applied
// when both Start and End are set, both ends inclusive.
type TransactionFilter struct {
	Start *time.Time
	End   *time.Time
}

func (f TransactionFilter) hasRange() bool {
	return f.Start != nil && f.End != nil
}
