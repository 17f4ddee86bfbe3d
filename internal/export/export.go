// Package export dumps the ledger to a JSON file in the data directory.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rschio/sunbed/internal/core/customer"
	"github.com/rschio/sunbed/internal/core/plan"
	"github.com/spf13/afero"
)

// CustomerCore is the part of the customer core read by an export.
type CustomerCore interface {
	QueryAll(ctx context.Context, now time.Time) ([]customer.Customer, error)
	QueryAllTransactions(ctx context.Context, filter customer.TransactionFilter) ([]customer.Transaction, error)
}

// PlanCore is the part of the plan core read by an export.
type PlanCore interface {
	QueryAll(ctx context.Context) ([]plan.Plan, error)
}

// FileName returns the name of the export written on t's day.
func FileName(t time.Time) string {
	return "db-export-" + t.Format(time.DateOnly) + ".json"
}

type Job struct {
	log       *slog.Logger
	fs        afero.Fs
	customers CustomerCore
	plans     PlanCore
}

func NewJob(log *slog.Logger, fs afero.Fs, customers CustomerCore, plans PlanCore) *Job {
	return &Job{
		log:       log,
		fs:        fs,
		customers: customers,
		plans:     plans,
	}
}

// Run writes every customer, transaction and plan to FileName(now),
// replacing an export of the same day. It returns the file name.
func (j *Job) Run(ctx context.Context, now time.Time) (string, error) {
	custs, err := j.customers.QueryAll(ctx, now)
	if err != nil {
		return "", fmt.Errorf("customers: %w", err)
	}

	ts, err := j.customers.QueryAllTransactions(ctx, customer.TransactionFilter{})
	if err != nil {
		return "", fmt.Errorf("transactions: %w", err)
	}

	ps, err := j.plans.QueryAll(ctx)
	if err != nil {
		return "", fmt.Errorf("plans: %w", err)
	}

	doc := Document{
		Customers:    toCustomers(custs),
		Transactions: toTransactions(ts),
		Plans:        toPlans(ps),
		ExportedAt:   now.UTC().Format(time.RFC3339Nano),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	name := FileName(now)
	if err := afero.WriteFile(j.fs, name, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	j.log.Info("export", "status", "export written", "file", name,
		"customers", len(doc.Customers), "transactions", len(doc.Transactions), "plans", len(doc.Plans))

	return name, nil
}
