package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/pkg/database"
	appErrors "github.com/noah-isme/sunday-attendance/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error)
	ListByClass(ctx context.Context, classID int64) ([]models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
	MoveToClass(ctx context.Context, id, classID int64) (int, error)
	SwapOrder(ctx context.Context, a, b models.Student) error
}

// CreateStudentRequest captures the new student payload.
type CreateStudentRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	ClassID int64  `json:"class_id" validate:"required,gt=0"`
}

// MoveStudentRequest moves a student to another class.
type MoveStudentRequest struct {
	ClassID int64 `json:"class_id" validate:"required,gt=0"`
}

// StudentService coordinates student registration and class moves.
type StudentService struct {
	repo      studentRepository
	classes   classRepository
	readModel *ReadModel
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, classes classRepository, readModel *ReadModel, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, classes: classes, readModel: readModel, validator: validate, logger: logger}
}

// List returns students ordered by class name, roster position and name.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	snapshot, err := s.readModel.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if filter.ClassID == nil {
		return snapshot.Students, nil
	}
	return snapshot.StudentsInClass(*filter.ClassID), nil
}

// Get returns a student with class details.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student at the end of the class roster.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	class, err := s.requireClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}

	student := &models.Student{Name: req.Name, ClassID: &class.ID}
	if err := s.repo.Create(ctx, student); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.readModel.Invalidate(ctx)
	s.logger.Info("student created", zap.Int64("student_id", student.ID), zap.Int64("class_id", class.ID), zap.Int("order_index", student.OrderIndex))
	return &models.StudentDetail{Student: *student, ClassName: &class.Name, TeacherName: class.TeacherName}, nil
}

// Delete removes a student together with its attendance history.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.readModel.Invalidate(ctx)
	s.logger.Info("student deleted", zap.Int64("student_id", id))
	return nil
}

// Move promotes a student into another class, appending it to the destination roster.
// Attendance history stays with the student.
func (s *StudentService) Move(ctx context.Context, id int64, req MoveStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if student.InClass(req.ClassID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is already in this class")
	}
	class, err := s.requireClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.MoveToClass(ctx, id, class.ID)
	if err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		case database.IsForeignKeyViolation(err):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move student")
		}
	}
	s.readModel.Invalidate(ctx)
	s.logger.Info("student moved", zap.Int64("student_id", id), zap.Int64("class_id", class.ID), zap.Int("order_index", order))

	student.ClassID = &class.ID
	student.OrderIndex = order
	student.ClassName = &class.Name
	student.TeacherName = class.TeacherName
	return student, nil
}

func (s *StudentService) requireClass(ctx context.Context, id int64) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}
