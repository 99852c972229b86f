package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/pkg/database"
	appErrors "github.com/noah-isme/sunday-attendance/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context) ([]models.Class, error)
	FindByID(ctx context.Context, id int64) (*models.Class, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	UpdateTeacher(ctx context.Context, id int64, teacher *string) error
	DeleteIfEmpty(ctx context.Context, id int64) (int, error)
}

// CreateClassRequest captures creation payload.
type CreateClassRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	TeacherName *string `json:"teacher_name" validate:"omitempty,max=100"`
}

// UpdateTeacherRequest sets or clears the teacher of a class.
type UpdateTeacherRequest struct {
	TeacherName *string `json:"teacher_name" validate:"omitempty,max=100"`
}

// ClassService coordinates class operations.
type ClassService struct {
	repo      classRepository
	readModel *ReadModel
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, readModel *ReadModel, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, readModel: readModel, validator: validate, logger: logger}
}

// List returns every class ordered by name.
func (s *ClassService) List(ctx context.Context) ([]models.Class, error) {
	snapshot, err := s.readModel.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return snapshot.Classes, nil
}

// Get returns one class.
func (s *ClassService) Get(ctx context.Context, id int64) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create adds a new class. Names are trimmed and must be unique.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.TeacherName = trimOptional(req.TeacherName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("class %q already exists", req.Name))
	}

	class := &models.Class{Name: req.Name, TeacherName: req.TeacherName}
	if err := s.repo.Create(ctx, class); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("class %q already exists", req.Name))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.readModel.Invalidate(ctx)
	s.logger.Info("class created", zap.Int64("class_id", class.ID), zap.String("name", class.Name))
	return class, nil
}

// UpdateTeacher assigns the teacher of a class. An empty name clears it.
func (s *ClassService) UpdateTeacher(ctx context.Context, id int64, req UpdateTeacherRequest) (*models.Class, error) {
	req.TeacherName = trimOptional(req.TeacherName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTeacher(ctx, id, req.TeacherName); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	s.readModel.Invalidate(ctx)
	class.TeacherName = req.TeacherName
	s.logger.Info("class teacher updated", zap.Int64("class_id", id))
	return class, nil
}

// Delete removes a class that no longer has students.
func (s *ClassService) Delete(ctx context.Context, id int64) error {
	class, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.repo.DeleteIfEmpty(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	case database.IsForeignKeyViolation(err):
		return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot delete class %q: students are still assigned to it", class.Name))
	case err != nil:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	case count > 0:
		return classNotEmpty(class.Name, count)
	}
	s.readModel.Invalidate(ctx)
	s.logger.Info("class deleted", zap.Int64("class_id", id), zap.String("name", class.Name))
	return nil
}

func classNotEmpty(name string, count int) error {
	return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot delete class %q: %d student(s) are still assigned to it", name, count))
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
