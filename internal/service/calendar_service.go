package service

import (
	"context"
	"time"

	"github.com/noah-isme/sunday-attendance/internal/models"
)

// EligibleDates lists every date falling on weekday between start and end inclusive, in
// ascending order. It is empty when start is after end.
func EligibleDates(start, end time.Time, weekday time.Weekday) []time.Time {
	start, end = models.DateOf(start), models.DateOf(end)
	dates := make([]time.Time, 0)
	if start.After(end) {
		return dates
	}
	offset := (int(weekday) - int(start.Weekday()) + 7) % 7
	for d := start.AddDate(0, 0, offset); !d.After(end); d = d.AddDate(0, 0, 7) {
		dates = append(dates, d)
	}
	return dates
}

// DatesUpTo keeps the dates on or before today.
func DatesUpTo(dates []time.Time, today time.Time) []time.Time {
	today = models.DateOf(today)
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if !d.After(today) {
			out = append(out, d)
		}
	}
	return out
}

type sessionProvider interface {
	Get(ctx context.Context) (models.SessionBounds, error)
}

// CalendarService answers which dates attendance is taken on.
type CalendarService struct {
	sessions sessionProvider
	weekday  time.Weekday
	location *time.Location
	now      func() time.Time
}

// NewCalendarService constructs a CalendarService. A nil location means local time.
func NewCalendarService(sessions sessionProvider, weekday time.Weekday, location *time.Location) *CalendarService {
	if location == nil {
		location = time.Local
	}
	return &CalendarService{sessions: sessions, weekday: weekday, location: location, now: time.Now}
}

// Weekday returns the configured attendance weekday.
func (s *CalendarService) Weekday() time.Weekday {
	return s.weekday
}

// Today returns the current calendar date in the configured location.
func (s *CalendarService) Today() time.Time {
	return models.DateOf(s.now().In(s.location))
}

// SessionDates lists every eligible date of the current session.
func (s *CalendarService) SessionDates(ctx context.Context) ([]time.Time, error) {
	bounds, err := s.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	return EligibleDates(bounds.Start, bounds.End, s.weekday), nil
}

// MarkableDates lists the session dates that are not in the future.
func (s *CalendarService) MarkableDates(ctx context.Context) ([]time.Time, error) {
	dates, err := s.SessionDates(ctx)
	if err != nil {
		return nil, err
	}
	return DatesUpTo(dates, s.Today()), nil
}

// IsMarkable reports whether attendance may be recorded for date.
func (s *CalendarService) IsMarkable(ctx context.Context, date time.Time) (bool, error) {
	dates, err := s.MarkableDates(ctx)
	if err != nil {
		return false, err
	}
	date = models.DateOf(date)
	for _, d := range dates {
		if d.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}
