package plan

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestIsActiveEndOfDay(t *testing.T) {
	today := date(2025, 6, 10)
	p := Plan{ID: 1, Type: TypeCustom, StartDate: today, EndDate: today}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"start of day", today, true},
		{"late today", time.Date(2025, 6, 10, 23, 59, 58, 0, time.Local), true},
		{"last millisecond", time.Date(2025, 6, 10, 23, 59, 59, int(999*time.Millisecond), time.Local), true},
		{"early tomorrow", time.Date(2025, 6, 11, 0, 0, 1, 0, time.Local), false},
		{"yesterday", time.Date(2025, 6, 9, 23, 59, 59, 0, time.Local), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsActive(p, tt.now); got != tt.want {
				t.Fatalf("IsActive at %v got %v want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestActiveFirstMatchWins(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)
	plans := []Plan{
		{ID: 1, Type: TypeUnlimitedWeek, StartDate: date(2025, 5, 1), EndDate: date(2025, 5, 8)},
		{ID: 2, Type: TypeUnlimitedMonth, StartDate: date(2025, 6, 1), EndDate: date(2025, 7, 1)},
		{ID: 3, Type: TypeCustom, StartDate: date(2025, 6, 9), EndDate: date(2025, 6, 12)},
	}

	p, ok := Active(plans, now)
	if !ok {
		t.Fatalf("expected an active plan")
	}
	if p.ID != 2 {
		t.Fatalf("got plan %d want %d", p.ID, 2)
	}

	if _, ok := Active(plans[:1], now); ok {
		t.Fatalf("expired plan reported active")
	}
	if _, ok := Active(nil, now); ok {
		t.Fatalf("no plans reported active")
	}
}

func TestDaysRemaining(t *testing.T) {
	end := date(2025, 6, 17)
	p := Plan{StartDate: date(2025, 6, 10), EndDate: end}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"enrolled at midnight", date(2025, 6, 10), 7},
		{"enrolled in the afternoon", time.Date(2025, 6, 10, 15, 30, 0, 0, time.Local), 7},
		{"one hour before end", end.Add(-time.Hour), 1},
		{"on end date", end.Add(time.Hour), 0},
		{"long after", end.AddDate(0, 1, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysRemaining(p, tt.now); got != tt.want {
				t.Fatalf("got %d want %d", got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.Local)

	st := Resolve(nil, now)
	if st.Active != nil || st.Unlimited || st.DaysRemaining != 0 {
		t.Fatalf("empty plans should resolve to nothing, got %+v", st)
	}

	plans := []Plan{{ID: 7, Type: TypeUnlimitedWeek, StartDate: date(2025, 6, 10), EndDate: date(2025, 6, 17)}}
	st = Resolve(plans, now)
	if st.Active == nil || st.Active.ID != 7 {
		t.Fatalf("got active %+v want plan 7", st.Active)
	}
	if !st.Unlimited {
		t.Fatalf("week plan should be unlimited")
	}
	if st.DaysRemaining != 7 {
		t.Fatalf("got %d days want %d", st.DaysRemaining, 7)
	}
}

func TestTypes(t *testing.T) {
	for _, s := range []string{"unlimited_week", "unlimited_month", "custom"} {
		typ, err := ParseType(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if !typ.Unlimited() {
			t.Errorf("%q should grant unlimited minutes", s)
		}
	}

	if _, err := ParseType("yearly"); err == nil {
		t.Fatalf("unknown type should fail")
	}
	if got := TypeUnlimitedMonth.Label(); got != "unlimited month" {
		t.Fatalf("got label %q", got)
	}
}
