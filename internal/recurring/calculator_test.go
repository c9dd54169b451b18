package recurring

import (
	"testing"
	"time"

	"github.com/rezkam/taskflow/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDailyNextDueDate(t *testing.T) {
	got := DailyCalculator{}.NextDueDate(date(2026, 3, 1))
	if want := date(2026, 3, 2); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWeeklyNextDueDate(t *testing.T) {
	got := WeeklyCalculator{}.NextDueDate(date(2026, 3, 1))
	if want := date(2026, 3, 8); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMonthlyNextDueDate(t *testing.T) {
	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{"mid month", date(2026, 3, 15), date(2026, 4, 15)},
		{"jan 31 clamps to feb 28", date(2026, 1, 31), date(2026, 2, 28)},
		{"jan 31 leap year clamps to feb 29", date(2028, 1, 31), date(2028, 2, 29)},
		{"jan 30 clamps to feb 28", date(2026, 1, 30), date(2026, 2, 28)},
		{"mar 31 clamps to apr 30", date(2026, 3, 31), date(2026, 4, 30)},
		{"dec rolls into next year", date(2026, 12, 15), date(2027, 1, 15)},
		{"dec 31 to jan 31", date(2026, 12, 31), date(2027, 1, 31)},
		{"feb 28 stays on the 28th", date(2026, 2, 28), date(2026, 3, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyCalculator{}.NextDueDate(tt.after)
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyPreservesTimeOfDay(t *testing.T) {
	after := time.Date(2026, 1, 31, 9, 30, 0, 0, time.UTC)
	got := MonthlyCalculator{}.NextDueDate(after)
	want := time.Date(2026, 2, 28, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestForFrequency(t *testing.T) {
	tests := []struct {
		freq domain.Frequency
		want Calculator
	}{
		{domain.FrequencyDaily, DailyCalculator{}},
		{domain.FrequencyWeekly, WeeklyCalculator{}},
		{domain.FrequencyMonthly, MonthlyCalculator{}},
	}
	for _, tt := range tests {
		if got := ForFrequency(tt.freq); got != tt.want {
			t.Errorf("ForFrequency(%s) = %v, want %v", tt.freq, got, tt.want)
		}
	}
	if got := ForFrequency(domain.Frequency("yearly")); got != nil {
		t.Errorf("unknown frequency must return nil, got %v", got)
	}
}
