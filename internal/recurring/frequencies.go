package recurring

import "time"

// DailyCalculator advances one day.
type DailyCalculator struct{}

func (DailyCalculator) NextDueDate(after time.Time) time.Time {
	return after.AddDate(0, 0, 1)
}

// WeeklyCalculator advances seven days.
type WeeklyCalculator struct{}

func (WeeklyCalculator) NextDueDate(after time.Time) time.Time {
	return after.AddDate(0, 0, 7)
}

// MonthlyCalculator advances one calendar month. AddDate normalizes
// overflow (Jan 31 + 1 month = Mar 3), which is wrong for due dates, so
// when the target month lacks the source day the result clamps to the
// target month's last day: Jan 31 -> Feb 28 (Feb 29 in leap years).
type MonthlyCalculator struct{}

func (MonthlyCalculator) NextDueDate(after time.Time) time.Time {
	year, month, day := after.Date()

	nextMonth := month + 1
	if nextMonth > time.December {
		nextMonth = time.January
		year++
	}

	if last := lastDayOfMonth(year, nextMonth); day > last {
		day = last
	}

	return time.Date(year, nextMonth, day,
		after.Hour(), after.Minute(), after.Second(), after.Nanosecond(), after.Location())
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	// Day zero of the following month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
