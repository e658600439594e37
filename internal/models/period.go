package models

import "time"

// Period represents a calendar unit used by recurrence cadences and reminders
type Period string

const (
	PeriodMinutes Period = "minutes"
	PeriodHours   Period = "hours"
	PeriodDays    Period = "days"
	PeriodWeeks   Period = "weeks"
	PeriodMonths  Period = "months"
	PeriodYears   Period = "years"
)

// Valid checks if p is a known period
func (p Period) Valid() bool {
	switch p {
	case PeriodMinutes, PeriodHours, PeriodDays, PeriodWeeks, PeriodMonths, PeriodYears:
		return true
	}
	return false
}

// AddTo advances t by n periods of p. Calendar units go through AddDate so
// month lengths and leap days are respected.
func (p Period) AddTo(t time.Time, n int) time.Time {
	switch p {
	case PeriodMinutes:
		return t.Add(time.Duration(n) * time.Minute)
	case PeriodHours:
		return t.Add(time.Duration(n) * time.Hour)
	case PeriodDays:
		return t.AddDate(0, 0, n)
	case PeriodWeeks:
		return t.AddDate(0, 0, 7*n)
	case PeriodMonths:
		return t.AddDate(0, n, 0)
	case PeriodYears:
		return t.AddDate(n, 0, 0)
	}
	return t
}

// SubtractFrom moves t back by n periods of p
func (p Period) SubtractFrom(t time.Time, n int) time.Time {
	return p.AddTo(t, -n)
}
