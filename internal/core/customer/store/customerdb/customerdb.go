// Package customerdb contains customer related CRUD functionality.
package customerdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rschio/sunbed/internal/core/customer"
	db "github.com/rschio/sunbed/internal/data/dbsql/sqlite"
)

// Store manages the set of APIs for customer database access.
type Store struct {
	log *slog.Logger
	db  db.DB
}

func NewStore(log *slog.Logger, database db.DB) *Store {
	return &Store{
		log: log,
		db:  database,
	}
}

// ExecUnderTx runs fn under a new transaction. When the store is already
// bound to a transaction fn joins it.
func (s *Store) ExecUnderTx(ctx context.Context, fn func(txStore customer.Store) error) error {
	beginner, ok := s.db.(db.Beginner)
	if !ok {
		return fn(s)
	}

	tx, err := beginner.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(NewStore(s.log, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Create(ctx context.Context, nc customer.NewCustomer) (customer.Customer, error) {
	const q = `
	INSERT INTO customers
		(name, lastname, minutes_remaining)
	VALUES
		(:name, :lastname, :minutes_remaining)
	RETURNING
		id, name, lastname, minutes_remaining`

	c, err := db.NamedQueryStruct[dbCustomer](ctx, s.log, s.db, q, toDBCustomer(nc))
	if err != nil {
		return customer.Customer{}, fmt.Errorf("namedquerystruct: %w", err)
	}

	return toCustomer(c), nil
}

func (s *Store) QueryAll(ctx context.Context, now time.Time) ([]customer.Customer, error) {
	data := struct {
		Today string `db:"today"`
	}{
		Today: now.Format(dateLayout),
	}

	const q = `
	SELECT
		c.id,
		c.name,
		c.lastname,
		c.minutes_remaining,
		(
			SELECT p.type
			FROM plans AS p
			WHERE p.customer_id = c.id
				AND p.start_date <= :today
				AND p.end_date >= :today
			ORDER BY p.id
			LIMIT 1
		) AS plan_type
	FROM
		customers AS c
	ORDER BY
		c.id`

	cs, err := db.NamedQuerySlice[dbCustomer](ctx, s.log, s.db, q, data)
	if err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toCustomers(cs), nil
}

func (s *Store) QueryByID(ctx context.Context, customerID int) (customer.Customer, error) {
	data := struct {
		ID int `db:"id"`
	}{
		ID: customerID,
	}

	const q = `
	SELECT
		id, name, lastname, minutes_remaining
	FROM
		customers
	WHERE
		id = :id`

	c, err := db.NamedQueryStruct[dbCustomer](ctx, s.log, s.db, q, data)
	if err != nil {
		if errors.Is(err, db.ErrDBNotFound) {
			return customer.Customer{}, customer.ErrNotFound
		}
		return customer.Customer{}, fmt.Errorf("namedquerystruct: %w", err)
	}

	return toCustomer(c), nil
}

func (s *Store) UpdateInfo(ctx context.Context, customerID int, uc customer.UpdateCustomer) error {
	data := dbCustomer{
		ID:       customerID,
		Name:     uc.Name,
		Lastname: toNullString(uc.Lastname),
	}

	const q = `
	UPDATE customers SET
		name = :name,
		lastname = :lastname
	WHERE
		id = :id`

	if err := db.NamedExec(ctx, s.log, s.db, q, data); err != nil {
		return fmt.Errorf("namedexec: %w", err)
	}

	return nil
}

func (s *Store) SetMinutes(ctx context.Context, customerID int, minutes int) error {
	data := struct {
		ID      int `db:"id"`
		Minutes int `db:"minutes"`
	}{
		ID:      customerID,
		Minutes: minutes,
	}

	const q = `
	UPDATE customers SET
		minutes_remaining = :minutes
	WHERE
		id = :id`

	if err := db.NamedExec(ctx, s.log, s.db, q, data); err != nil {
		if errors.Is(err, db.ErrDBConstraint) {
			return customer.ErrInsufficientMinutes
		}
		return fmt.Errorf("namedexec: %w", err)
	}

	return nil
}

// Delete removes the customer. Transactions and plans go with it through
// ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, customerID int) error {
	data := struct {
		ID int `db:"id"`
	}{
		ID: customerID,
	}

	const q = `
	DELETE FROM
		customers
	WHERE
		id = :id`

	if err := db.NamedExec(ctx, s.log, s.db, q, data); err != nil {
		return fmt.Errorf("namedexec: %w", err)
	}

	return nil
}

// AddTransaction appends a transaction row. The timestamp is assigned by
// the database.
func (s *Store) AddTransaction(ctx context.Context, customerID int, change int) (customer.Transaction, error) {
	data := struct {
		CustomerID int `db:"customer_id"`
		Change     int `db:"change"`
	}{
		CustomerID: customerID,
		Change:     change,
	}

	const q = `
	INSERT INTO transactions
		(customer_id, change)
	VALUES
		(:customer_id, :change)
	RETURNING
		id, customer_id, change, timestamp`

	t, err := db.NamedQueryStruct[dbTransaction](ctx, s.log, s.db, q, data)
	if err != nil {
		return customer.Transaction{}, fmt.Errorf("namedquerystruct: %w", err)
	}

	return toTransaction(t)
}

func (s *Store) QueryTransactions(ctx context.Context, customerID int) ([]customer.Transaction, error) {
	data := struct {
		CustomerID int `db:"customer_id"`
	}{
		CustomerID: customerID,
	}

	const q = `
	SELECT
		id, customer_id, change, timestamp
	FROM
		transactions
	WHERE
		customer_id = :customer_id
	ORDER BY
		timestamp DESC, id DESC`

	ts, err := db.NamedQuerySlice[dbTransaction](ctx, s.log, s.db, q, data)
	if err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toTransactions(ts)
}

func (s *Store) QueryAllTransactions(ctx context.Context, filter customer.TransactionFilter) ([]customer.Transaction, error) {
	data := map[string]any{}

	const q = `
	SELECT
		id, customer_id, change, timestamp
	FROM
		transactions`

	buf := bytes.NewBufferString(q)
	if filter.Start != nil && filter.End != nil {
		data["start"] = formatTimestamp(*filter.Start)
		data["end"] = formatTimestamp(*filter.End)
		buf.WriteString(" WHERE timestamp BETWEEN :start AND :end")
	}
	buf.WriteString(" ORDER BY timestamp DESC, id DESC")

	ts, err := db.NamedQuerySlice[dbTransaction](ctx, s.log, s.db, buf.String(), data)
	if err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toTransactions(ts)
}
