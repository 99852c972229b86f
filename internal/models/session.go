package models

import "time"

// SessionBounds is the term window attendance may be taken in.
type SessionBounds struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// DefaultSessionBounds spans the calendar year of now.
func DefaultSessionBounds(now time.Time) SessionBounds {
	year := now.Year()
	return SessionBounds{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// Session is the raw key/value row of the sessions table.
type Session struct {
	Key       string  `db:"key"`
	DateValue *string `db:"date_value"`
}
