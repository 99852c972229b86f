package dto

import (
	"time"

	"github.com/noah-isme/sunday-attendance/internal/models"
)

// SessionResponse exposes the session bounds as ISO dates.
type SessionResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// NewSessionResponse converts session bounds.
func NewSessionResponse(b models.SessionBounds) SessionResponse {
	return SessionResponse{StartDate: models.FormatDate(b.Start), EndDate: models.FormatDate(b.End)}
}

// CalendarResponse lists attendance dates.
type CalendarResponse struct {
	Weekday string   `json:"weekday"`
	Today   string   `json:"today"`
	Dates   []string `json:"dates"`
}

// NewCalendarResponse converts a list of dates.
func NewCalendarResponse(weekday time.Weekday, today time.Time, dates []time.Time) CalendarResponse {
	out := CalendarResponse{Weekday: weekday.String(), Today: models.FormatDate(today), Dates: make([]string, len(dates))}
	for i, d := range dates {
		out.Dates[i] = models.FormatDate(d)
	}
	return out
}
