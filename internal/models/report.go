package models

import "time"

// ReportStatus is the resolved status of a student on a report date. It is computed at
// report time only and never persisted.
type ReportStatus int

const (
	ReportStatusPresent ReportStatus = iota
	ReportStatusAbsent
	ReportStatusNoClass
	ReportStatusMissed
)

// String renders the status the way it appears in report cells.
func (s ReportStatus) String() string {
	switch s {
	case ReportStatusPresent:
		return "P"
	case ReportStatusAbsent:
		return "A"
	case ReportStatusNoClass:
		return "N/C"
	case ReportStatusMissed:
		return "A (M)"
	default:
		return "?"
	}
}

// MarshalText lets report statuses serialise as their cell value.
func (s ReportStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CountsAsClass reports whether the date counts toward Total Classes.
func (s ReportStatus) CountsAsClass() bool {
	return s != ReportStatusNoClass
}

// Fixed report column names.
const (
	ReportColumnClass        = "Class"
	ReportColumnTeacher      = "Teacher"
	ReportColumnStudent      = "Student Name"
	ReportColumnTotalClasses = "Total Classes"
	ReportColumnAttended     = "Attended"
	ReportColumnPercentage   = "Attendance %"
)

// AttendanceReportRow is one student's line of the report.
type AttendanceReportRow struct {
	StudentID    int64          `json:"student_id"`
	ClassID      *int64         `json:"class_id,omitempty"`
	ClassName    string         `json:"class"`
	Teacher      string         `json:"teacher"`
	StudentName  string         `json:"student_name"`
	Statuses     []ReportStatus `json:"statuses"`
	TotalClasses int            `json:"total_classes"`
	Attended     int            `json:"attended"`
	Percentage   string         `json:"attendance_pct"`
}

// AttendanceReportSummary carries the headline numbers of a report range.
type AttendanceReportSummary struct {
	DatesInRange     int `json:"dates_in_range"`
	SessionsHeld     int `json:"sessions_held"`
	StudentsEnrolled int `json:"students_enrolled"`
}

// AttendanceReport is the tabular attendance report for a date range.
type AttendanceReport struct {
	From    time.Time               `json:"from"`
	To      time.Time               `json:"to"`
	Dates   []time.Time             `json:"dates"`
	Rows    []AttendanceReportRow   `json:"rows"`
	Summary AttendanceReportSummary `json:"summary"`
}

// Columns lists the report headers with date columns in ISO form.
func (r *AttendanceReport) Columns() []string {
	columns := []string{ReportColumnClass, ReportColumnTeacher, ReportColumnStudent}
	for _, d := range r.Dates {
		columns = append(columns, FormatDate(d))
	}
	return append(columns, ReportColumnTotalClasses, ReportColumnAttended, ReportColumnPercentage)
}

// ReportFormat enumerates the supported export encodings.
type ReportFormat string

const (
	ReportFormatXLSX ReportFormat = "xlsx"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
)

// ContentType returns the MIME type served for the format.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ReportFormatCSV:
		return "text/csv"
	case ReportFormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
