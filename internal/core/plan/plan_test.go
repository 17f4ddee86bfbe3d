package plan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rschio/sunbed/internal/core/customer"
	"github.com/rschio/sunbed/internal/core/customer/store/customerdb"
	"github.com/rschio/sunbed/internal/core/plan"
	"github.com/rschio/sunbed/internal/core/plan/store/plandb"
	"github.com/rschio/sunbed/internal/data/dbtest"
)

type cores struct {
	customer *customer.Core
	plan     *plan.Core
}

func newCores(t *testing.T) cores {
	t.Helper()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	return cores{
		customer: customer.NewCore(customerdb.NewStore(log, database)),
		plan:     plan.NewCore(plandb.NewStore(log, database)),
	}
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	c := newCores(t)

	cust, err := c.customer.Create(ctx, customer.NewCustomer{Name: "Ann", Lastname: "Lee", Minutes: 60})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	now := time.Date(2025, 1, 31, 14, 0, 0, 0, time.Local)
	today := time.Date(2025, 1, 31, 0, 0, 0, 0, time.Local)

	tests := []struct {
		typ     plan.Type
		wantEnd time.Time
	}{
		{plan.TypeUnlimitedWeek, today.AddDate(0, 0, 7)},
		{plan.TypeUnlimitedMonth, today.AddDate(0, 1, 0)},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			p, st, err := c.plan.Enroll(ctx, plan.NewPlan{CustomerID: cust.ID, Type: tt.typ}, now)
			if err != nil {
				t.Fatalf("enroll: %v", err)
			}

			want := plan.Plan{
				ID:         p.ID,
				CustomerID: cust.ID,
				Type:       tt.typ,
				StartDate:  today,
				EndDate:    tt.wantEnd,
			}
			if diff := cmp.Diff(want, p); diff != "" {
				t.Fatalf("got different plan: %s", diff)
			}

			if !st.Unlimited || st.Active == nil {
				t.Fatalf("status should be unlimited after enrolling, got %+v", st)
			}

			last := st.Plans[len(st.Plans)-1]
			if last.ID != p.ID {
				t.Fatalf("status should list the new plan, got %+v", st.Plans)
			}
		})
	}
}

func TestEnrollCustomNeedsDates(t *testing.T) {
	ctx := context.Background()
	c := newCores(t)

	cust, err := c.customer.Create(ctx, customer.NewCustomer{Name: "Ann"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	now := time.Now()
	np := plan.NewPlan{CustomerID: cust.ID, Type: plan.TypeCustom, Start: now}
	if _, _, err := c.plan.Enroll(ctx, np, now); !errors.Is(err, plan.ErrInvalidArgument) {
		t.Fatalf("got err %v want %v", err, plan.ErrInvalidArgument)
	}

	np = plan.NewPlan{CustomerID: cust.ID, Type: plan.TypeCustom, Start: now, End: now.AddDate(0, 0, -2)}
	if _, _, err := c.plan.Enroll(ctx, np, now); !errors.Is(err, plan.ErrInvalidArgument) {
		t.Fatalf("got err %v want %v", err, plan.ErrInvalidArgument)
	}

	ps, err := c.plan.QueryByCustomer(ctx, cust.ID)
	if err != nil {
		t.Fatalf("query plans: %v", err)
	}
	if len(ps) != 0 {
		t.Fatalf("rejected enrollments must not create plans, got %d", len(ps))
	}

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local)
	np = plan.NewPlan{CustomerID: cust.ID, Type: plan.TypeCustom, Start: start, End: end}
	_, st, err := c.plan.Enroll(ctx, np, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("enroll custom: %v", err)
	}
	if st.DaysRemaining != 2 {
		t.Fatalf("got %d days remaining want %d", st.DaysRemaining, 2)
	}

	_, _, err = c.plan.Enroll(ctx, plan.NewPlan{CustomerID: 999, Type: plan.TypeUnlimitedWeek}, now)
	if !errors.Is(err, plan.ErrCustomerNotFound) {
		t.Fatalf("got err %v want %v", err, plan.ErrCustomerNotFound)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	c := newCores(t)

	cust, err := c.customer.Create(ctx, customer.NewCustomer{Name: "Ann"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	now := time.Now()
	p, _, err := c.plan.Enroll(ctx, plan.NewPlan{CustomerID: cust.ID, Type: plan.TypeUnlimitedWeek}, now)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	st, err := c.plan.Remove(ctx, p.ID, now)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if st.Unlimited || st.Active != nil || len(st.Plans) != 0 {
		t.Fatalf("got status %+v after removing the only plan", st)
	}

	if _, err := c.plan.Remove(ctx, p.ID, now); !errors.Is(err, plan.ErrNotFound) {
		t.Fatalf("got err %v want %v", err, plan.ErrNotFound)
	}
}

func TestCustomerDeleteCascadesPlans(t *testing.T) {
	ctx := context.Background()
	c := newCores(t)

	cust, err := c.customer.Create(ctx, customer.NewCustomer{Name: "Ann"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	p, _, err := c.plan.Enroll(ctx, plan.NewPlan{CustomerID: cust.ID, Type: plan.TypeUnlimitedMonth}, time.Now())
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if err := c.customer.Delete(ctx, cust.ID); err != nil {
		t.Fatalf("delete customer: %v", err)
	}

	if _, err := c.plan.QueryByID(ctx, p.ID); !errors.Is(err, plan.ErrNotFound) {
		t.Fatalf("got err %v want %v", err, plan.ErrNotFound)
	}
}
