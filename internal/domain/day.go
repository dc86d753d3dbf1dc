package domain

import "time"

const dayLayout = "2006-01-02"

// Day is a calendar date in "YYYY-MM-DD" form. The string form sorts
// lexically in date order, so range queries compare Days directly.
type Day string

// DayOf returns the calendar date of t. The caller picks the location; the
// same instant falls on different Days in different zones.
func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

// AddDays returns the Day n calendar days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(dayLayout))
}

func (d Day) String() string { return string(d) }
