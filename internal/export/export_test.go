package export_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rschio/sunbed/internal/core/customer"
	"github.com/rschio/sunbed/internal/core/customer/store/customerdb"
	"github.com/rschio/sunbed/internal/core/plan"
	"github.com/rschio/sunbed/internal/core/plan/store/plandb"
	"github.com/rschio/sunbed/internal/data/dbtest"
	"github.com/rschio/sunbed/internal/export"
	"github.com/spf13/afero"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	cc := customer.NewCore(customerdb.NewStore(log, database))
	pc := plan.NewCore(plandb.NewStore(log, database))

	now := time.Date(2025, 8, 9, 16, 0, 0, 0, time.Local)

	ann, err := cc.Create(ctx, customer.NewCustomer{Name: "Ann", Lastname: "Lee", Minutes: 60})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	bob, err := cc.Create(ctx, customer.NewCustomer{Name: "Bob"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := cc.UpdateMinutes(ctx, ann.ID, 75); err != nil {
		t.Fatalf("update minutes: %v", err)
	}
	if _, _, err := pc.Enroll(ctx, plan.NewPlan{CustomerID: bob.ID, Type: plan.TypeUnlimitedWeek}, now); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	fs := afero.NewMemMapFs()
	job := export.NewJob(log, fs, cc, pc)

	name, err := job.Run(ctx, now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if name != "db-export-2025-08-09.json" {
		t.Fatalf("got file %q", name)
	}

	data, err := afero.ReadFile(fs, name)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var doc export.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	lee, week := "Lee", string(plan.TypeUnlimitedWeek)
	wantCustomers := []export.Customer{
		{ID: ann.ID, Name: "Ann", Lastname: &lee, MinutesRemaining: 75},
		{ID: bob.ID, Name: "Bob", PlanType: &week},
	}
	if diff := cmp.Diff(wantCustomers, doc.Customers); diff != "" {
		t.Fatalf("got different customers: %s", diff)
	}

	if len(doc.Transactions) != 1 || doc.Transactions[0].Change != 15 {
		t.Fatalf("got transactions %+v", doc.Transactions)
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000Z07:00", doc.Transactions[0].Timestamp); err != nil {
		t.Fatalf("parse timestamp: %v", err)
	}

	wantPlans := []export.Plan{{
		ID:         doc.Plans[0].ID,
		CustomerID: bob.ID,
		Type:       week,
		StartDate:  "2025-08-09",
		EndDate:    "2025-08-16",
	}}
	if diff := cmp.Diff(wantPlans, doc.Plans); diff != "" {
		t.Fatalf("got different plans: %s", diff)
	}

	exportedAt, err := time.Parse(time.RFC3339Nano, doc.ExportedAt)
	if err != nil {
		t.Fatalf("parse exportedAt: %v", err)
	}
	if !exportedAt.Equal(now) {
		t.Fatalf("got exportedAt %v want %v", exportedAt, now)
	}
}

func TestRunEmpty(t *testing.T) {
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	cc := customer.NewCore(customerdb.NewStore(log, database))
	pc := plan.NewCore(plandb.NewStore(log, database))

	fs := afero.NewMemMapFs()
	name, err := export.NewJob(log, fs, cc, pc).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := afero.ReadFile(fs, name)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"customers", "transactions", "plans"} {
		if string(raw[key]) != "[]" {
			t.Fatalf("got %s=%s want []", key, raw[key])
		}
	}
}
