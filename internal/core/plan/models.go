package plan

import (
	"fmt"
	"strings"
	"time"
)

// Type is the kind of a plan.
type Type string

// Set of plan types.
const (
	TypeUnlimitedWeek  Type = "unlimited_week"
	TypeUnlimitedMonth Type = "unlimited_month"
	TypeCustom         Type = "custom"
)

// ParseType validates s as a plan type.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeUnlimitedWeek, TypeUnlimitedMonth, TypeCustom:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidArgument, s)
}

// Unlimited reports if an active plan of this type grants unlimited
// minutes. Every known type does.
func (t Type) Unlimited() bool {
	switch t {
	case TypeUnlimitedWeek, TypeUnlimitedMonth, TypeCustom:
		return true
	}
	return false
}

// Label is the human form of the type, "unlimited week".
func (t Type) Label() string {
	return strings.Replace(string(t), "_", " ", 1)
}

// Plan grants a customer unlimited minutes between two calendar days.
// StartDate and EndDate are midnight of their day, EndDate is inclusive.
type Plan struct {
	ID         int
	CustomerID int
	Type       Type
	StartDate  time.Time
	EndDate    time.Time
}

// NewPlan is what is needed to add a plan. Start and End are only read for
// custom plans by Enroll, Create always uses them.
type NewPlan struct {
	CustomerID int
	Type       Type
	Start      time.Time
	End        time.Time
}

// Status is the plan state of a customer at one instant.
type Status struct {
	Plans         []Plan
	Active        *Plan
	DaysRemaining int
	Unlimited     bool
}
