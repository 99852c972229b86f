package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/pkg/database"
	appErrors "github.com/noah-isme/sunday-attendance/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context) ([]models.Attendance, error)
	Upsert(ctx context.Context, record models.Attendance) error
	UpsertMany(ctx context.Context, records []models.Attendance) error
}

// StudentMark is the status chosen for one student.
type StudentMark struct {
	StudentID int64                   `json:"student_id" validate:"required,gt=0"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
}

// RecordSessionRequest records one class on one date. NoSession marks the whole roster
// N/C and ignores Marks.
type RecordSessionRequest struct {
	Date      string        `json:"date" validate:"required,datetime=2006-01-02"`
	ClassID   int64         `json:"class_id" validate:"required,gt=0"`
	NoSession bool          `json:"no_session"`
	Marks     []StudentMark `json:"marks" validate:"dive"`
}

// UpsertAttendanceRequest writes a single (date, student) mark.
type UpsertAttendanceRequest struct {
	Date      string                  `json:"date" validate:"required,datetime=2006-01-02"`
	StudentID int64                   `json:"student_id" validate:"required,gt=0"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
}

// AttendanceService records attendance marks.
type AttendanceService struct {
	repo      attendanceRepository
	students  studentRepository
	classes   classRepository
	calendar  *CalendarService
	readModel *ReadModel
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceRepository, students studentRepository, classes classRepository, calendar *CalendarService, readModel *ReadModel, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:      repo,
		students:  students,
		classes:   classes,
		calendar:  calendar,
		readModel: readModel,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Mark records a class session for a date that is open for marking: a session date that is
// not in the future.
func (s *AttendanceService) Mark(ctx context.Context, req RecordSessionRequest) ([]models.Attendance, error) {
	if err := s.validateSession(&req); err != nil {
		return nil, err
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	markable, err := s.calendar.IsMarkable(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session dates")
	}
	if !markable {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not an open attendance date", req.Date))
	}
	return s.RecordClassSession(ctx, req)
}

// RecordClassSession writes the marks of one class on one date in a single transaction.
// With NoSession every student of the roster gets N/C; otherwise each mark must be P or A
// for a student of the class.
func (s *AttendanceService) RecordClassSession(ctx context.Context, req RecordSessionRequest) ([]models.Attendance, error) {
	if err := s.validateSession(&req); err != nil {
		return nil, err
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	roster, err := s.students.ListByClass(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	records, err := buildSessionRecords(models.FormatDate(date), roster, req.NoSession, req.Marks)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpsertMany(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	s.readModel.Invalidate(ctx)

	counts := make(map[models.AttendanceStatus]int)
	for _, rec := range records {
		counts[rec.Status]++
	}
	for status, n := range counts {
		s.metrics.RecordAttendanceMarks(status, n)
	}
	s.logger.Info("attendance recorded",
		zap.String("date", req.Date),
		zap.Int64("class_id", req.ClassID),
		zap.Bool("no_session", req.NoSession),
		zap.Int("marks", len(records)))
	return records, nil
}

// buildSessionRecords resolves the rows to write in roster order.
// validateSession checks req; with NoSession set the per-student marks are discarded first.
func (s *AttendanceService) validateSession(req *RecordSessionRequest) error {
	if req.NoSession {
		req.Marks = nil
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	return nil
}

func buildSessionRecords(date string, roster []models.Student, noSession bool, marks []StudentMark) ([]models.Attendance, error) {
	SortRoster(roster)
	records := make([]models.Attendance, 0, len(roster))
	if noSession {
		for _, st := range roster {
			records = append(records, models.Attendance{Date: date, StudentID: st.ID, Status: models.AttendanceStatusNoClass})
		}
		return records, nil
	}

	chosen := make(map[int64]models.AttendanceStatus, len(marks))
	for _, m := range marks {
		if !m.Status.Markable() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status %q is not allowed for student %d", m.Status, m.StudentID))
		}
		if _, dup := chosen[m.StudentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %d is marked more than once", m.StudentID))
		}
		chosen[m.StudentID] = m.Status
	}
	for _, st := range roster {
		if status, ok := chosen[st.ID]; ok {
			records = append(records, models.Attendance{Date: date, StudentID: st.ID, Status: status})
			delete(chosen, st.ID)
		}
	}
	for _, m := range marks {
		if _, left := chosen[m.StudentID]; left {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %d is not in this class", m.StudentID))
		}
	}
	return records, nil
}

// Upsert writes one mark directly, replacing any previous status for the pair.
func (s *AttendanceService) Upsert(ctx context.Context, req UpsertAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}

	record := models.Attendance{Date: models.FormatDate(date), StudentID: req.StudentID, Status: req.Status}
	if err := s.repo.Upsert(ctx, record); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	s.readModel.Invalidate(ctx)
	s.metrics.RecordAttendanceMarks(record.Status, 1)
	s.logger.Info("attendance upserted", zap.String("date", record.Date), zap.Int64("student_id", record.StudentID), zap.String("status", string(record.Status)))
	return &record, nil
}

// Sheet builds the marking form of a class for a date. Stored P/A marks are reused, N/C or
// missing marks default to P, and the no-session flag starts on when any stored mark of the
// class on that date is N/C.
func (s *AttendanceService) Sheet(ctx context.Context, date string, classID int64) (*models.AttendanceSheet, error) {
	day, err := models.ParseDate(date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	snapshot, err := s.readModel.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	var class *models.Class
	for i := range snapshot.Classes {
		if snapshot.Classes[i].ID == classID {
			class = &snapshot.Classes[i]
			break
		}
	}
	if class == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	iso := models.FormatDate(day)
	roster := make([]models.Student, 0)
	for _, d := range snapshot.StudentsInClass(classID) {
		roster = append(roster, d.Student)
	}
	SortRoster(roster)

	recorded := make(map[int64]models.AttendanceStatus)
	for _, mark := range snapshot.Attendance {
		if mark.Date == iso {
			recorded[mark.StudentID] = mark.Status
		}
	}

	sheet := &models.AttendanceSheet{Date: iso, ClassID: classID, ClassName: class.Name, Entries: make([]models.AttendanceSheetEntry, 0, len(roster))}
	for i, st := range roster {
		entry := models.AttendanceSheetEntry{
			Position:      i + 1,
			StudentID:     st.ID,
			StudentName:   st.Name,
			DefaultStatus: models.AttendanceStatusPresent,
		}
		if status, ok := recorded[st.ID]; ok {
			stored := status
			entry.Recorded = &stored
			if status == models.AttendanceStatusNoClass {
				sheet.NoSession = true
			} else {
				entry.DefaultStatus = status
			}
		}
		sheet.Entries = append(sheet.Entries, entry)
	}
	return sheet, nil
}
