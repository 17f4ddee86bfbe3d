// Package plan provides the business logic for customer plans: enrollment,
// removal and the resolution of the plan active at a given time.
package plan

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Set of errors for plan API.
var (
	ErrNotFound         = errors.New("plan not found")
	ErrCustomerNotFound = errors.New("plan customer not found")
	ErrInvalidArgument  = errors.New("plan invalid argument")
)

// Store is used to persist plan's data.
type Store interface {
	// ExecUnderTx executes the fn function under a transaction. If fn returns
	// an error the transaction is rolled back and the error is returned.
	ExecUnderTx(ctx context.Context, fn func(tx Store) error) error

	Create(ctx context.Context, np NewPlan) (Plan, error)
	QueryByID(ctx context.Context, planID int) (Plan, error)
	QueryByCustomer(ctx context.Context, customerID int) ([]Plan, error)
	QueryAll(ctx context.Context) ([]Plan, error)
	Delete(ctx context.Context, planID int) error
}

// Core deals with plan's business logic.
type Core struct {
	store Store
}

func NewCore(store Store) *Core {
	return &Core{store: store}
}

// Create adds a plan with explicit dates. Dates are truncated to their day.
func (c *Core) Create(ctx context.Context, np NewPlan) (Plan, error) {
	if np.CustomerID < 1 {
		return Plan{}, ErrCustomerNotFound
	}
	if _, err := ParseType(string(np.Type)); err != nil {
		return Plan{}, err
	}

	if np.Start.IsZero() || np.End.IsZero() {
		return Plan{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidArgument)
	}

	np.Start = StartOfDay(np.Start)
	np.End = StartOfDay(np.End)
	if np.End.Before(np.Start) {
		return Plan{}, fmt.Errorf("%w: end date before start date", ErrInvalidArgument)
	}

	p, err := c.store.Create(ctx, np)
	if err != nil {
		return Plan{}, fmt.Errorf("create: %w", err)
	}

	return p, nil
}

// Enroll adds a plan starting today for the unlimited types, or between the
// given dates for custom plans, and returns the plan and the customer's
// status right after.
//
// An unlimited month ends one calendar month after today.
func (c *Core) Enroll(ctx context.Context, np NewPlan, now time.Time) (Plan, Status, error) {
	today := StartOfDay(now)

	switch np.Type {
	case TypeUnlimitedWeek:
		np.Start = today
		np.End = today.AddDate(0, 0, 7)
	case TypeUnlimitedMonth:
		np.Start = today
		np.End = today.AddDate(0, 1, 0)
	case TypeCustom:
		if np.Start.IsZero() || np.End.IsZero() {
			return Plan{}, Status{}, fmt.Errorf("%w: custom plan needs start and end dates", ErrInvalidArgument)
		}
	default:
		return Plan{}, Status{}, fmt.Errorf("%w: unknown type %q", ErrInvalidArgument, np.Type)
	}

	p, err := c.Create(ctx, np)
	if err != nil {
		return Plan{}, Status{}, err
	}

	st, err := c.Status(ctx, np.CustomerID, now)
	if err != nil {
		return Plan{}, Status{}, err
	}

	return p, st, nil
}

// Remove deletes the plan and returns the status of its customer after the
// removal.
func (c *Core) Remove(ctx context.Context, planID int, now time.Time) (Status, error) {
	p, err := c.Delete(ctx, planID)
	if err != nil {
		return Status{}, err
	}

	return c.Status(ctx, p.CustomerID, now)
}

// Delete removes the plan and returns it.
func (c *Core) Delete(ctx context.Context, planID int) (Plan, error) {
	if planID < 1 {
		return Plan{}, ErrNotFound
	}

	var p Plan
	fn := func(tx Store) error {
		var err error
		p, err = tx.QueryByID(ctx, planID)
		if err != nil {
			return err
		}
		return tx.Delete(ctx, planID)
	}

	if err := c.store.ExecUnderTx(ctx, fn); err != nil {
		return Plan{}, err
	}

	return p, nil
}

func (c *Core) QueryByID(ctx context.Context, planID int) (Plan, error) {
	if planID < 1 {
		return Plan{}, ErrNotFound
	}
	return c.store.QueryByID(ctx, planID)
}

// QueryByCustomer returns the plans of the customer ordered by id.
func (c *Core) QueryByCustomer(ctx context.Context, customerID int) ([]Plan, error) {
	ps, err := c.store.QueryByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("query by customer: %w", err)
	}
	return ps, nil
}

// QueryAll returns every plan ordered by id.
func (c *Core) QueryAll(ctx context.Context) ([]Plan, error) {
	ps, err := c.store.QueryAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	return ps, nil
}

// Status loads the customer's plans and resolves them at now.
func (c *Core) Status(ctx context.Context, customerID int, now time.Time) (Status, error) {
	ps, err := c.QueryByCustomer(ctx, customerID)
	if err != nil {
		return Status{}, err
	}
	return Resolve(ps, now), nil
}
