package domain

import "time"

// MonthOf truncates t to the first day of its month in UTC, keeping the
// calendar month t has in its own location.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween returns the calendar month difference to - from, ignoring days.
func MonthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// YearStart returns January 1st of t's year in UTC.
func YearStart(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}
