package minutes_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rschio/sunbed/internal/core/customer"
	"github.com/rschio/sunbed/internal/core/customer/store/customerdb"
	"github.com/rschio/sunbed/internal/core/minutes"
	"github.com/rschio/sunbed/internal/core/plan"
	"github.com/rschio/sunbed/internal/core/plan/store/plandb"
	"github.com/rschio/sunbed/internal/data/dbtest"
)

func newCores(t *testing.T) (*customer.Core, *plan.Core) {
	t.Helper()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	return customer.NewCore(customerdb.NewStore(log, database)),
		plan.NewCore(plandb.NewStore(log, database))
}

func changes(t *testing.T, cc *customer.Core, customerID int) []int {
	t.Helper()
	ts, err := cc.QueryTransactions(context.Background(), customerID)
	if err != nil {
		t.Fatalf("query transactions: %v", err)
	}
	out := make([]int, len(ts))
	for i, tr := range ts {
		out[i] = tr.Change
	}
	return out
}

func TestAnnLee(t *testing.T) {
	ctx := context.Background()
	cc, pc := newCores(t)
	now := time.Now()

	ann, err := cc.Create(ctx, customer.NewCustomer{Name: "Ann", Lastname: "Lee", Minutes: 60})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	s, err := minutes.Open(ctx, cc, pc, ann.ID, now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.State() != minutes.Clean {
		t.Fatalf("new session should be clean")
	}

	if err := s.QuickAdjust(15); err != nil {
		t.Fatalf("quick adjust: %v", err)
	}
	if s.State() != minutes.Dirty || s.Balance() != 75 {
		t.Fatalf("got state %v balance %d", s.State(), s.Balance())
	}

	cust, err := s.Save(ctx, now)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if cust.MinutesRemaining != 75 {
		t.Fatalf("got %d minutes want %d", cust.MinutesRemaining, 75)
	}
	if got, want := s.Summary(), "Minutes added: 15 (total: 75)"; got != want {
		t.Fatalf("got summary %q want %q", got, want)
	}
	if diff := cmp.Diff([]int{15}, changes(t, cc, ann.ID)); diff != "" {
		t.Fatalf("got different transactions: %s", diff)
	}

	p, _, err := pc.Enroll(ctx, plan.NewPlan{CustomerID: ann.ID, Type: plan.TypeUnlimitedWeek}, now)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if err := s.Refresh(ctx, now); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if s.Display() != minutes.Infinity {
		t.Fatalf("got display %q want %q", s.Display(), minutes.Infinity)
	}
	if got := s.Status().DaysRemaining; got != 7 {
		t.Fatalf("got %d days remaining want %d", got, 7)
	}
	for _, fn := range []func() error{
		func() error { return s.QuickAdjust(-3) },
		func() error { return s.Add(5) },
		func() error { return s.Subtract(5) },
	} {
		if err := fn(); !errors.Is(err, minutes.ErrUnlimitedPlan) {
			t.Fatalf("got err %v want %v", err, minutes.ErrUnlimitedPlan)
		}
	}

	if _, err := pc.Remove(ctx, p.ID, now); err != nil {
		t.Fatalf("remove plan: %v", err)
	}
	if err := s.Refresh(ctx, now); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if s.Unlimited() || s.Display() != "75" {
		t.Fatalf("got unlimited %v display %q", s.Unlimited(), s.Display())
	}
	if err := s.Add(1); err != nil {
		t.Fatalf("add after removal: %v", err)
	}
}

func TestSubtractClampsAtZero(t *testing.T) {
	ctx := context.Background()
	cc, pc := newCores(t)
	now := time.Now()

	cust, err := cc.Create(ctx, customer.NewCustomer{Name: "Bob", Minutes: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	s, err := minutes.Open(ctx, cc, pc, cust.ID, now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.Subtract(100); err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if s.Balance() != 0 {
		t.Fatalf("got balance %d want 0", s.Balance())
	}

	cust, err = s.Save(ctx, now)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if cust.MinutesRemaining != 0 {
		t.Fatalf("got %d minutes want 0", cust.MinutesRemaining)
	}
	if diff := cmp.Diff([]int{-10}, changes(t, cc, cust.ID)); diff != "" {
		t.Fatalf("got different transactions: %s", diff)
	}
	if got, want := s.Summary(), "Minutes subtracted: 10 (total: 0)"; got != want {
		t.Fatalf("got summary %q want %q", got, want)
	}
}

func TestSessionWorkflow(t *testing.T) {
	ctx := context.Background()
	cc, pc := newCores(t)
	now := time.Now()

	cust, err := cc.Create(ctx, customer.NewCustomer{Name: "Cy", Minutes: 20})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	s, err := minutes.Open(ctx, cc, pc, cust.ID, now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := s.Save(ctx, now); !errors.Is(err, minutes.ErrNoChanges) {
		t.Fatalf("save clean: got err %v want %v", err, minutes.ErrNoChanges)
	}
	if err := s.Reset(); !errors.Is(err, minutes.ErrNoChanges) {
		t.Fatalf("reset clean: got err %v want %v", err, minutes.ErrNoChanges)
	}

	for _, d := range []int{0, 1, 4, 30, -1, -20} {
		if err := s.QuickAdjust(d); !errors.Is(err, minutes.ErrInvalidAdjustment) {
			t.Fatalf("quick %d: got err %v want %v", d, err, minutes.ErrInvalidAdjustment)
		}
	}
	if err := s.Add(0); !errors.Is(err, minutes.ErrInvalidAdjustment) {
		t.Fatalf("add 0: got err %v", err)
	}
	if err := s.Subtract(-5); !errors.Is(err, minutes.ErrInvalidAdjustment) {
		t.Fatalf("subtract -5: got err %v", err)
	}

	if err := s.QuickAdjust(-6); err != nil {
		t.Fatalf("quick adjust: %v", err)
	}
	if err := s.Add(2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if s.Balance() != 16 {
		t.Fatalf("got balance %d want 16", s.Balance())
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.State() != minutes.Clean || s.Balance() != 20 {
		t.Fatalf("got state %v balance %d after reset", s.State(), s.Balance())
	}

	// Enrolled behind the session's back: Save must see it.
	if err := s.Add(5); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := pc.Enroll(ctx, plan.NewPlan{CustomerID: cust.ID, Type: plan.TypeUnlimitedMonth}, now); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if _, err := s.Save(ctx, now); !errors.Is(err, minutes.ErrUnlimitedPlan) {
		t.Fatalf("got err %v want %v", err, minutes.ErrUnlimitedPlan)
	}
	if got := changes(t, cc, cust.ID); len(got) != 0 {
		t.Fatalf("nothing should be recorded, got %v", got)
	}

	// Pending changes can still be dropped while the plan is active.
	if err := s.Reset(); err != nil {
		t.Fatalf("reset with active plan: %v", err)
	}
	if s.State() != minutes.Clean || s.Balance() != 20 {
		t.Fatalf("got state %v balance %d after reset", s.State(), s.Balance())
	}
}

func TestOpenUnknownCustomer(t *testing.T) {
	cc, pc := newCores(t)

	_, err := minutes.Open(context.Background(), cc, pc, 42, time.Now())
	if !errors.Is(err, customer.ErrNotFound) {
		t.Fatalf("got err %v want %v", err, customer.ErrNotFound)
	}
}
