package ledger

import "time"

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days of month m in year y.
func DaysInMonth(y int, m time.Month) int {
	// day 0 of the next month is the last day of m
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths advances d by n calendar months, clamping the day to the target month's last day
// (Jan 31 + 1 month = Feb 28/29).
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	total := int(m) - 1 + n
	y += floorDiv(total, 12)
	mm := time.Month(total-floorDiv(total, 12)*12) + 1
	if last := DaysInMonth(y, mm); day > last {
		day = last
	}
	return time.Date(y, mm, day, 0, 0, 0, 0, time.UTC)
}

// WithDay moves d to day of its month, clamped to [1, days in month].
func WithDay(d time.Time, day int) time.Time {
	y, m, _ := d.Date()
	if day < 1 {
		day = 1
	}
	if last := DaysInMonth(y, m); day > last {
		day = last
	}
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
