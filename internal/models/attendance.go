package models

import (
	"strings"
	"time"
)

// DateLayout is the ISO-8601 form dates are persisted in.
const DateLayout = "2006-01-02"

// AttendanceStatus is the stored status of one student on one date.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "P"
	AttendanceStatusAbsent  AttendanceStatus = "A"
	AttendanceStatusNoClass AttendanceStatus = "N/C"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusNoClass:
		return true
	default:
		return false
	}
}

// Markable reports whether the status may be chosen per student. N/C is only set class-wide.
func (s AttendanceStatus) Markable() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// Attendance is a single (date, student) mark.
type Attendance struct {
	Date      string           `db:"date" json:"date"`
	StudentID int64            `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
}

// FormatDate renders a date the way it is stored.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a stored or user supplied ISO date.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, raw)
}

// DateOf truncates t to its calendar day in UTC, keeping the wall-clock date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AttendanceSheetEntry is one roster line of the marking sheet for a date.
type AttendanceSheetEntry struct {
	Position      int               `json:"position"`
	StudentID     int64             `json:"student_id"`
	StudentName   string            `json:"student_name"`
	DefaultStatus AttendanceStatus  `json:"default_status"`
	Recorded      *AttendanceStatus `json:"recorded,omitempty"`
}

// AttendanceSheet is the pre-filled marking form for one class on one date.
type AttendanceSheet struct {
	Date      string                 `json:"date"`
	ClassID   int64                  `json:"class_id"`
	ClassName string                 `json:"class_name"`
	NoSession bool                   `json:"no_session"`
	Entries   []AttendanceSheetEntry `json:"entries"`
}

// DateLabel renders a date as a report column header, e.g. "07 JAN".
func DateLabel(t time.Time) string {
	return strings.ToUpper(t.Format("02 Jan"))
}
