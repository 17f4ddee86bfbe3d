package plan

import "time"

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last millisecond of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// IsActive reports if now falls between the start of p and the end of its
// last day.
func IsActive(p Plan, now time.Time) bool {
	return !now.Before(p.StartDate) && !now.After(EndOfDay(p.EndDate))
}

// Active returns the first plan of plans active at now. Callers that need
// a deterministic answer with overlapping plans must pass plans in a
// stable order, the stores return them by id.
func Active(plans []Plan, now time.Time) (Plan, bool) {
	for _, p := range plans {
		if IsActive(p, now) {
			return p, true
		}
	}
	return Plan{}, false
}

// DaysRemaining is the number of started days between now and the end
// date of p, never negative.
func DaysRemaining(p Plan, now time.Time) int {
	const day = 24 * time.Hour

	d := p.EndDate.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + day - 1) / day)
}

// Resolve computes the Status of a customer owning plans at now.
func Resolve(plans []Plan, now time.Time) Status {
	st := Status{Plans: plans}

	p, ok := Active(plans, now)
	if !ok {
		return st
	}

	st.Active = &p
	st.DaysRemaining = DaysRemaining(p, now)
	st.Unlimited = p.Type.Unlimited()

	return st
}
