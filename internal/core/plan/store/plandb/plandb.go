// Package plandb contains plan related CRUD functionality.
package plandb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rschio/sunbed/internal/core/plan"
	db "github.com/rschio/sunbed/internal/data/dbsql/sqlite"
)

// Store manages the set of APIs for plan database access.
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

func (s *Store) ExecUnderTx(ctx context.Context, fn func(txStore plan.Store) error) error {
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

func (s *Store) Create(ctx context.Context, np plan.NewPlan) (plan.Plan, error) {
	const q = `
	INSERT INTO plans
		(customer_id, type, start_date, end_date)
	VALUES
		(:customer_id, :type, :start_date, :end_date)
	RETURNING
		id, customer_id, type, start_date, end_date`

	p, err := db.NamedQueryStruct[dbPlan](ctx, s.log, s.db, q, toDBPlan(np))
	if err != nil {
		if errors.Is(err, db.ErrDBForeignKey) {
			return plan.Plan{}, plan.ErrCustomerNotFound
		}
		return plan.Plan{}, fmt.Errorf("namedquerystruct: %w", err)
	}

	return toPlan(p)
}

func (s *Store) QueryByID(ctx context.Context, planID int) (plan.Plan, error) {
	data := struct {
		ID int `db:"id"`
	}{
		ID: planID,
	}

	const q = `
	SELECT
		id, customer_id, type, start_date, end_date
	FROM
		plans
	WHERE
		id = :id`

	p, err := db.NamedQueryStruct[dbPlan](ctx, s.log, s.db, q, data)
	if err != nil {
		if errors.Is(err, db.ErrDBNotFound) {
			return plan.Plan{}, plan.ErrNotFound
		}
		return plan.Plan{}, fmt.Errorf("namedquerystruct: %w", err)
	}

	return toPlan(p)
}

func (s *Store) QueryByCustomer(ctx context.Context, customerID int) ([]plan.Plan, error) {
	data := struct {
		CustomerID int `db:"customer_id"`
	}{
		CustomerID: customerID,
	}

	const q = `
	SELECT
		id, customer_id, type, start_date, end_date
	FROM
		plans
	WHERE
		customer_id = :customer_id
	ORDER BY
		id`

	ps, err := db.NamedQuerySlice[dbPlan](ctx, s.log, s.db, q, data)
	if err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toPlans(ps)
}

func (s *Store) QueryAll(ctx context.Context) ([]plan.Plan, error) {
	const q = `
	SELECT
		id, customer_id, type, start_date, end_date
	FROM
		plans
	ORDER BY
		id`

	ps, err := db.NamedQuerySlice[dbPlan](ctx, s.log, s.db, q, struct{}{})
	if err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toPlans(ps)
}

func (s *Store) Delete(ctx context.Context, planID int) error {
	data := struct {
		ID int `db:"id"`
	}{
		ID: planID,
	}

	const q = `
	DELETE FROM
		plans
	WHERE
		id = :id`

	if err := db.NamedExec(ctx, s.log, s.db, q, data); err != nil {
		return fmt.Errorf("namedexec: %w", err)
	}

	return nil
}
