// Package recurring computes the next due date for recurrence rules.
package recurring

import (
	"time"

	"github.com/rezkam/taskflow/internal/domain"
)

// Calculator computes the next occurrence date for one frequency.
type Calculator interface {
	// NextDueDate returns the due date of the occurrence following the
	// given one.
	NextDueDate(after time.Time) time.Time
}

// ForFrequency returns the calculator for the given frequency, or nil for
// an unknown one (callers validate the frequency first).
func ForFrequency(freq domain.Frequency) Calculator {
	switch freq {
	case domain.FrequencyDaily:
		return DailyCalculator{}
	case domain.FrequencyWeekly:
		return WeeklyCalculator{}
	case domain.FrequencyMonthly:
		return MonthlyCalculator{}
	default:
		return nil
	}
}
