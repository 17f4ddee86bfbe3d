// Package minutes implements the editing session used to adjust the minutes
// balance of one customer before committing it to the ledger.
package minutes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rschio/sunbed/internal/core/customer"
	"github.com/rschio/sunbed/internal/core/plan"
)

// Set of errors for the adjustment workflow.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidAdjustment = errors.New("invalid adjustment")
	ErrUnlimitedPlan     = errors.New("customer has an active unlimited plan")
	ErrNoChanges         = errors.New("no changes")
)

// Infinity is shown in place of the balance while an unlimited plan is
// active.
const Infinity = "∞"

// QuickDeltas are the adjustments offered as one-click buttons.
var QuickDeltas = []int{-3, -6, -9, -12, -15, 3, 6, 9, 12, 15}

// State of a session.
type State int

const (
	Clean State = iota
	Dirty
)

func (s State) String() string {
	if s == Dirty {
		return "dirty"
	}
	return "clean"
}

// CustomerCore is the part of the customer core used by a session.
type CustomerCore interface {
	QueryByID(ctx context.Context, customerID int) (customer.Customer, error)
	UpdateMinutes(ctx context.Context, customerID int, newMinutes int) (customer.Customer, error)
}

// PlanCore is the part of the plan core used by a session.
type PlanCore interface {
	Status(ctx context.Context, customerID int, now time.Time) (plan.Status, error)
}

// Session holds the pending balance of a customer. Balance starts at the
// stored value and only reaches the store on Save. The plan state is the one
// read by Open or the last Refresh, callers refresh before acting on it.
type Session struct {
	customers CustomerCore
	plans     PlanCore

	customerID int
	baseline   int
	balance    int
	status     plan.Status

	// saved is the change committed by the last Save.
	saved int
	total int
}

// Open loads the customer and its plan state at now.
func Open(ctx context.Context, customers CustomerCore, plans PlanCore, customerID int, now time.Time) (*Session, error) {
	cust, err := customers.QueryByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	st, err := plans.Status(ctx, customerID, now)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	s := Session{
		customers:  customers,
		plans:      plans,
		customerID: customerID,
		baseline:   cust.MinutesRemaining,
		balance:    cust.MinutesRemaining,
		status:     st,
	}

	return &s, nil
}

func (s *Session) CustomerID() int { return s.customerID }

// Baseline is the balance last read from or written to the store.
func (s *Session) Baseline() int { return s.baseline }

// Balance is the pending balance.
func (s *Session) Balance() int { return s.balance }

func (s *Session) Status() plan.Status { return s.status }

func (s *Session) Unlimited() bool { return s.status.Unlimited }

func (s *Session) State() State {
	if s.balance != s.baseline {
		return Dirty
	}
	return Clean
}

// Display is the balance as shown to the operator.
func (s *Session) Display() string {
	if s.Unlimited() {
		return Infinity
	}
	return fmt.Sprint(s.balance)
}

// QuickAdjust applies one of QuickDeltas.
func (s *Session) QuickAdjust(delta int) error {
	if !slices.Contains(QuickDeltas, delta) {
		return fmt.Errorf("%w: %d is not a quick adjustment", ErrInvalidAdjustment, delta)
	}
	return s.adjust(delta)
}

// Add raises the pending balance by n.
func (s *Session) Add(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAdjustment)
	}
	return s.adjust(n)
}

// Subtract lowers the pending balance by n, stopping at zero.
func (s *Session) Subtract(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAdjustment)
	}
	return s.adjust(-n)
}

func (s *Session) adjust(delta int) error {
	if s.Unlimited() {
		return ErrUnlimitedPlan
	}
	s.balance = max(0, s.balance+delta)
	return nil
}

// Reset drops the pending changes.
func (s *Session) Reset() error {
	if s.State() == Clean {
		return ErrNoChanges
	}
	s.balance = s.baseline
	return nil
}

// Save commits the pending balance. The plan state is resolved again first
// so a plan enrolled from elsewhere blocks the write.
func (s *Session) Save(ctx context.Context, now time.Time) (customer.Customer, error) {
	if s.State() == Clean {
		return customer.Customer{}, ErrNoChanges
	}

	if err := s.Refresh(ctx, now); err != nil {
		return customer.Customer{}, err
	}
	if s.Unlimited() {
		return customer.Customer{}, ErrUnlimitedPlan
	}

	cust, err := s.customers.UpdateMinutes(ctx, s.customerID, s.balance)
	if err != nil {
		return customer.Customer{}, fmt.Errorf("update minutes: %w", err)
	}

	s.saved = cust.MinutesRemaining - s.baseline
	s.total = cust.MinutesRemaining
	s.baseline = cust.MinutesRemaining
	s.balance = cust.MinutesRemaining

	return cust, nil
}

// Refresh reads the plan state again. Pending changes are kept.
func (s *Session) Refresh(ctx context.Context, now time.Time) error {
	st, err := s.plans.Status(ctx, s.customerID, now)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	s.status = st
	return nil
}

// Summary describes the change committed by the last Save, empty before
// the first one.
func (s *Session) Summary() string {
	switch {
	case s.saved > 0:
		return fmt.Sprintf("Minutes added: %d (total: %d)", s.saved, s.total)
	case s.saved < 0:
		return fmt.Sprintf("Minutes subtracted: %d (total: %d)", -s.saved, s.total)
	}
	return ""
}
