package domain

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the recurrence cadence of a rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// NewFrequency validates and creates a Frequency.
func NewFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(s))
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidFrequency, s)
	}
}

// RecurrenceRule is the declarative schedule by which completed tasks spawn
// their next occurrence. It is owned by the task that created it; successor
// tasks reference the same rule id.
type RecurrenceRule struct {
	ID                   string
	TaskID               string
	Frequency            Frequency
	EndAfterCount        *int
	EndByDate            *time.Time
	OccurrencesGenerated int
	IsActive             bool
	BaseDueDate          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Terminated reports whether the rule has reached one of its termination
// conditions as of now: the occurrence budget is spent or the end date passed.
func (r *RecurrenceRule) Terminated(now time.Time) bool {
	if r.EndAfterCount != nil && r.OccurrencesGenerated >= *r.EndAfterCount {
		return true
	}
	if r.EndByDate != nil && !now.Before(*r.EndByDate) {
		return true
	}
	return false
}

// ValidateEndAfterCount checks the optional occurrence budget.
func ValidateEndAfterCount(count *int) error {
	if count != nil && *count < 1 {
		return ErrInvalidEndAfterCount
	}
	return nil
}

// RulePatch carries the mutable fields of a recurrence rule. Nil fields are
// left untouched.
type RulePatch struct {
	Frequency            *Frequency
	EndAfterCount        *int
	EndByDate            *time.Time
	OccurrencesGenerated *int
	IsActive             *bool
	BaseDueDate          *time.Time
}
