// Package customer provides the business logic for customers and the ledger
// of their minutes.
package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Set of errors for customer API.
var (
	ErrNotFound            = errors.New("customer not found")
	ErrInvalidArgument     = errors.New("customer invalid argument")
	ErrInsufficientMinutes = errors.New("customer insufficient minutes")
)

// Store is used to persist customer's data.
type Store interface {
	// ExecUnderTx executes the fn function under a transaction. If fn returns
	// an error the transaction is rolled back and the error is returned.
	ExecUnderTx(ctx context.Context, fn func(tx Store) error) error

	Create(ctx context.Context, nc NewCustomer) (Customer, error)
	QueryAll(ctx context.Context, now time.Time) ([]Customer, error)
	QueryByID(ctx context.Context, customerID int) (Customer, error)
	UpdateInfo(ctx context.Context, customerID int, uc UpdateCustomer) error
	SetMinutes(ctx context.Context, customerID int, minutes int) error
	Delete(ctx context.Context, customerID int) error

	AddTransaction(ctx context.Context, customerID int, change int) (Transaction, error)
	QueryTransactions(ctx context.Context, customerID int) ([]Transaction, error)
	QueryAllTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
}

// Core deals with customer's business logic.
type Core struct {
	store Store
}

func NewCore(store Store) *Core {
	return &Core{store: store}
}

func (c *Core) Create(ctx context.Context, nc NewCustomer) (Customer, error) {
	nc.Name = strings.TrimSpace(nc.Name)
	nc.Lastname = strings.TrimSpace(nc.Lastname)

	switch {
	case nc.Name == "":
		return Customer{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	case nc.Minutes < 0:
		return Customer{}, fmt.Errorf("%w: negative minutes", ErrInvalidArgument)
	}

	cust, err := c.store.Create(ctx, nc)
	if err != nil {
		return Customer{}, fmt.Errorf("create: %w", err)
	}

	return cust, nil
}

// QueryAll returns every customer with the type of its plan active at now.
func (c *Core) QueryAll(ctx context.Context, now time.Time) ([]Customer, error) {
	custs, err := c.store.QueryAll(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	return custs, nil
}

func (c *Core) QueryByID(ctx context.Context, customerID int) (Customer, error) {
	if !isValidID(customerID) {
		return Customer{}, ErrNotFound
	}
	return c.store.QueryByID(ctx, customerID)
}

// UpdateInfo overwrites name and lastname and returns the updated customer.
func (c *Core) UpdateInfo(ctx context.Context, customerID int, uc UpdateCustomer) (Customer, error) {
	if !isValidID(customerID) {
		return Customer{}, ErrNotFound
	}

	uc.Name = strings.TrimSpace(uc.Name)
	uc.Lastname = strings.TrimSpace(uc.Lastname)
	if uc.Name == "" {
		return Customer{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}

	var cust Customer
	fn := func(tx Store) error {
		if _, err := tx.QueryByID(ctx, customerID); err != nil {
			return err
		}

		if err := tx.UpdateInfo(ctx, customerID, uc); err != nil {
			return fmt.Errorf("failed to update info: %w", err)
		}

		var err error
		cust, err = tx.QueryByID(ctx, customerID)
		return err
	}

	if err := c.store.ExecUnderTx(ctx, fn); err != nil {
		return Customer{}, err
	}

	return cust, nil
}

// UpdateMinutes sets the balance of the customer to newMinutes and records
// the difference as a transaction. Nothing is recorded when the balance
// does not change. The read and both writes happen in one transaction.
func (c *Core) UpdateMinutes(ctx context.Context, customerID int, newMinutes int) (Customer, error) {
	if !isValidID(customerID) {
		return Customer{}, ErrNotFound
	}
	if newMinutes < 0 {
		return Customer{}, fmt.Errorf("%w: negative minutes", ErrInvalidArgument)
	}

	var cust Customer
	fn := func(tx Store) error {
		var err error
		cust, err = tx.QueryByID(ctx, customerID)
		if err != nil {
			return err
		}

		change := newMinutes - cust.MinutesRemaining
		if change == 0 {
			return nil
		}

		if err := tx.SetMinutes(ctx, customerID, newMinutes); err != nil {
			return fmt.Errorf("failed to set minutes: %w", err)
		}
		if _, err := tx.AddTransaction(ctx, customerID, change); err != nil {
			return fmt.Errorf("failed to add transaction: %w", err)
		}

		cust.MinutesRemaining = newMinutes
		return nil
	}

	if err := c.store.ExecUnderTx(ctx, fn); err != nil {
		return Customer{}, err
	}

	return cust, nil
}

// AddTransaction records change and applies it to the customer's balance.
func (c *Core) AddTransaction(ctx context.Context, customerID int, change int) (Customer, error) {
	if !isValidID(customerID) {
		return Customer{}, ErrNotFound
	}
	if change == 0 {
		return Customer{}, fmt.Errorf("%w: zero change", ErrInvalidArgument)
	}

	var cust Customer
	fn := func(tx Store) error {
		var err error
		cust, err = tx.QueryByID(ctx, customerID)
		if err != nil {
			return err
		}

		newMinutes := cust.MinutesRemaining + change
		if newMinutes < 0 {
			return ErrInsufficientMinutes
		}

		if _, err := tx.AddTransaction(ctx, customerID, change); err != nil {
			return fmt.Errorf("failed to add transaction: %w", err)
		}
		if err := tx.SetMinutes(ctx, customerID, newMinutes); err != nil {
			return fmt.Errorf("failed to set minutes: %w", err)
		}

		cust.MinutesRemaining = newMinutes
		return nil
	}

	if err := c.store.ExecUnderTx(ctx, fn); err != nil {
		return Customer{}, err
	}

	return cust, nil
}

// Delete removes the customer, its transactions and its plans.
func (c *Core) Delete(ctx context.Context, customerID int) error {
	if !isValidID(customerID) {
		return ErrNotFound
	}

	fn := func(tx Store) error {
		if _, err := tx.QueryByID(ctx, customerID); err != nil {
			return err
		}
		return tx.Delete(ctx, customerID)
	}

	return c.store.ExecUnderTx(ctx, fn)
}

// QueryTransactions returns the customer's history, newest first. It fails
// with ErrNotFound for an unknown customer, including a removed one.
func (c *Core) QueryTransactions(ctx context.Context, customerID int) ([]Transaction, error) {
	if !isValidID(customerID) {
		return nil, ErrNotFound
	}

	var ts []Transaction
	fn := func(tx Store) error {
		if _, err := tx.QueryByID(ctx, customerID); err != nil {
			return err
		}

		var err error
		ts, err = tx.QueryTransactions(ctx, customerID)
		return err
	}

	if err := c.store.ExecUnderTx(ctx, fn); err != nil {
		return nil, err
	}

	return ts, nil
}

// QueryAllTransactions returns the transactions of every customer, newest
// first, optionally bounded by filter.
func (c *Core) QueryAllTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	if filter.hasRange() && filter.End.Before(*filter.Start) {
		return nil, fmt.Errorf("%w: end before start", ErrInvalidArgument)
	}
	return c.store.QueryAllTransactions(ctx, filter)
}

func isValidID(id int) bool {
	return id > 0
}
