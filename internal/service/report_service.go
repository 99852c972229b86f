package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sunday-attendance/internal/models"
	appErrors "github.com/noah-isme/sunday-attendance/pkg/errors"
)

// ResolveStatus decides the report status of one student on one date. A class-wide closure
// wins over the student's own mark; with neither, the date counts as missed.
func ResolveStatus(classClosed bool, own *models.AttendanceStatus) models.ReportStatus {
	if classClosed {
		return models.ReportStatusNoClass
	}
	if own == nil {
		return models.ReportStatusMissed
	}
	switch *own {
	case models.AttendanceStatusPresent:
		return models.ReportStatusPresent
	case models.AttendanceStatusNoClass:
		return models.ReportStatusNoClass
	default:
		return models.ReportStatusAbsent
	}
}

// FormatPercentage renders attended/total with one decimal, 0.0% when total is zero.
func FormatPercentage(attended, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(attended)/float64(total)*100)
}

type reportKey struct {
	date      string
	studentID int64
}

type closureKey struct {
	date    string
	classID int64
}

// ReportService builds attendance reports from the read model.
type ReportService struct {
	readModel *ReadModel
	calendar  *CalendarService
	logger    *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(readModel *ReadModel, calendar *CalendarService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{readModel: readModel, calendar: calendar, logger: logger}
}

// Range returns from and to, substituting the session bounds for zero values.
func (s *ReportService) Range(ctx context.Context, from, to time.Time) (time.Time, time.Time, error) {
	if !from.IsZero() && !to.IsZero() {
		return models.DateOf(from), models.DateOf(to), nil
	}
	snapshot, err := s.readModel.Snapshot(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if from.IsZero() {
		from = snapshot.Session.Start
	}
	if to.IsZero() {
		to = snapshot.Session.End
	}
	return models.DateOf(from), models.DateOf(to), nil
}

// Generate builds the report for every student over the eligible dates of [from, to].
func (s *ReportService) Generate(ctx context.Context, from, to time.Time) (*models.AttendanceReport, error) {
	from, to, err := s.Range(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	snapshot, err := s.readModel.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	report := BuildReport(snapshot, from, to, s.calendar.Weekday())
	s.logger.Debug("attendance report generated",
		zap.String("from", models.FormatDate(from)),
		zap.String("to", models.FormatDate(to)),
		zap.Int("rows", len(report.Rows)),
		zap.Int("dates", len(report.Dates)))
	return report, nil
}

// BuildReport is the pure report computation over a snapshot.
func BuildReport(snapshot *models.Snapshot, from, to time.Time, weekday time.Weekday) *models.AttendanceReport {
	dates := EligibleDates(from, to, weekday)
	isoDates := make([]string, len(dates))
	for i, d := range dates {
		isoDates[i] = models.FormatDate(d)
	}

	classOf := make(map[int64]*int64, len(snapshot.Students))
	for _, st := range snapshot.Students {
		classOf[st.ID] = st.ClassID
	}
	marks := make(map[reportKey]models.AttendanceStatus, len(snapshot.Attendance))
	closed := make(map[closureKey]struct{})
	for _, m := range snapshot.Attendance {
		marks[reportKey{date: m.Date, studentID: m.StudentID}] = m.Status
		if m.Status != models.AttendanceStatusNoClass {
			continue
		}
		if classID := classOf[m.StudentID]; classID != nil {
			closed[closureKey{date: m.Date, classID: *classID}] = struct{}{}
		}
	}

	students := append([]models.StudentDetail(nil), snapshot.Students...)
	sortStudentDetails(students)

	rows := make([]models.AttendanceReportRow, 0, len(students))
	for _, st := range students {
		row := models.AttendanceReportRow{
			StudentID:   st.ID,
			ClassID:     st.ClassID,
			ClassName:   derefString(st.ClassName),
			Teacher:     derefString(st.TeacherName),
			StudentName: st.Name,
			Statuses:    make([]models.ReportStatus, 0, len(isoDates)),
		}
		for _, date := range isoDates {
			classClosed := false
			if st.ClassID != nil {
				_, classClosed = closed[closureKey{date: date, classID: *st.ClassID}]
			}
			var own *models.AttendanceStatus
			if status, ok := marks[reportKey{date: date, studentID: st.ID}]; ok {
				own = &status
			}
			status := ResolveStatus(classClosed, own)
			row.Statuses = append(row.Statuses, status)
			if status.CountsAsClass() {
				row.TotalClasses++
			}
			if status == models.ReportStatusPresent {
				row.Attended++
			}
		}
		row.Percentage = FormatPercentage(row.Attended, row.TotalClasses)
		rows = append(rows, row)
	}

	return &models.AttendanceReport{
		From:    from,
		To:      to,
		Dates:   dates,
		Rows:    rows,
		Summary: summarize(snapshot, classOf, from, to, len(dates), len(rows)),
	}
}

// summarize counts distinct (date, class) pairs with at least one held mark in range.
func summarize(snapshot *models.Snapshot, classOf map[int64]*int64, from, to time.Time, dates, students int) models.AttendanceReportSummary {
	lo, hi := models.FormatDate(from), models.FormatDate(to)
	held := make(map[closureKey]struct{})
	for _, m := range snapshot.Attendance {
		if m.Status == models.AttendanceStatusNoClass || m.Date < lo || m.Date > hi {
			continue
		}
		if classID := classOf[m.StudentID]; classID != nil {
			held[closureKey{date: m.Date, classID: *classID}] = struct{}{}
		}
	}
	return models.AttendanceReportSummary{
		DatesInRange:     dates,
		SessionsHeld:     len(held),
		StudentsEnrolled: students,
	}
}
