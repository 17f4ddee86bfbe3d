package customerdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rschio/sunbed/internal/core/customer"
)

// timestampLayout matches strftime('%Y-%m-%dT%H:%M:%fZ') used by the
// transactions default, so values compare correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// dateLayout is how plan dates are stored.
const dateLayout = "2006-01-02"

type dbCustomer struct {
	ID               int            `db:"id"`
	Name             string         `db:"name"`
	Lastname         sql.NullString `db:"lastname"`
	MinutesRemaining int            `db:"minutes_remaining"`
	PlanType         sql.NullString `db:"plan_type"`
}

func toDBCustomer(nc customer.NewCustomer) dbCustomer {
	return dbCustomer{
		Name:             nc.Name,
		Lastname:         toNullString(nc.Lastname),
		MinutesRemaining: nc.Minutes,
	}
}

func toCustomer(c dbCustomer) customer.Customer {
	return customer.Customer{
		ID:               c.ID,
		Name:             c.Name,
		Lastname:         c.Lastname.String,
		MinutesRemaining: c.MinutesRemaining,
		PlanType:         c.PlanType.String,
	}
}

func toCustomers(cs []dbCustomer) []customer.Customer {
	slice := make([]customer.Customer, len(cs))
	for i, c := range cs {
		slice[i] = toCustomer(c)
	}
	return slice
}

type dbTransaction struct {
	ID         int    `db:"id"`
	CustomerID int    `db:"customer_id"`
	Change     int    `db:"change"`
	Timestamp  string `db:"timestamp"`
}

func toTransaction(t dbTransaction) (customer.Transaction, error) {
	ts, err := time.Parse(timestampLayout, t.Timestamp)
	if err != nil {
		return customer.Transaction{}, fmt.Errorf("parse timestamp of transaction[%d]: %w", t.ID, err)
	}

	return customer.Transaction{
		ID:         t.ID,
		CustomerID: t.CustomerID,
		Change:     t.Change,
		Timestamp:  ts,
	}, nil
}

func toTransactions(ts []dbTransaction) ([]customer.Transaction, error) {
	slice := make([]customer.Transaction, len(ts))
	for i, t := range ts {
		ct, err := toTransaction(t)
		if err != nil {
			return nil, err
		}
		slice[i] = ct
	}
	return slice, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
