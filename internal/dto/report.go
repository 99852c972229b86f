package dto

import "github.com/noah-isme/sunday-attendance/internal/models"

// ReportRow is one student line of the attendance report.
type ReportRow struct {
	StudentID    int64    `json:"student_id"`
	Class        string   `json:"class"`
	Teacher      string   `json:"teacher"`
	StudentName  string   `json:"student_name"`
	Statuses     []string `json:"statuses"`
	TotalClasses int      `json:"total_classes"`
	Attended     int      `json:"attended"`
	Percentage   string   `json:"attendance_pct"`
}

// AttendanceReportResponse is the JSON form of the report. Statuses line up with Dates.
type AttendanceReportResponse struct {
	From       string                         `json:"from"`
	To         string                         `json:"to"`
	Columns    []string                       `json:"columns"`
	Dates      []string                       `json:"dates"`
	DateLabels []string                       `json:"date_labels"`
	Rows       []ReportRow                    `json:"rows"`
	Summary    models.AttendanceReportSummary `json:"summary"`
}

// NewAttendanceReportResponse converts a generated report.
func NewAttendanceReportResponse(report *models.AttendanceReport) AttendanceReportResponse {
	out := AttendanceReportResponse{
		From:       models.FormatDate(report.From),
		To:         models.FormatDate(report.To),
		Columns:    report.Columns(),
		Dates:      make([]string, len(report.Dates)),
		DateLabels: make([]string, len(report.Dates)),
		Rows:       make([]ReportRow, 0, len(report.Rows)),
		Summary:    report.Summary,
	}
	for i, d := range report.Dates {
		out.Dates[i] = models.FormatDate(d)
		out.DateLabels[i] = models.DateLabel(d)
	}
	for _, r := range report.Rows {
		statuses := make([]string, len(r.Statuses))
		for i, s := range r.Statuses {
			statuses[i] = s.String()
		}
		out.Rows = append(out.Rows, ReportRow{
			StudentID:    r.StudentID,
			Class:        r.ClassName,
			Teacher:      r.Teacher,
			StudentName:  r.StudentName,
			Statuses:     statuses,
			TotalClasses: r.TotalClasses,
			Attended:     r.Attended,
			Percentage:   r.Percentage,
		})
	}
	return out
}
