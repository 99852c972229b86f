package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sunday-attendance/internal/models"
	appErrors "github.com/noah-isme/sunday-attendance/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context) ([]models.Session, error)
	Update(ctx context.Context, start, end string) error
}

// UpdateSessionRequest carries new session bounds as ISO dates.
type UpdateSessionRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// SessionService reads and changes the session bounds.
type SessionService struct {
	repo      sessionRepository
	readModel *ReadModel
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(repo sessionRepository, readModel *ReadModel, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, readModel: readModel, validator: validate, logger: logger}
}

// Get returns the current bounds, defaulting to the calendar year when unset.
func (s *SessionService) Get(ctx context.Context) (models.SessionBounds, error) {
	snapshot, err := s.readModel.Snapshot(ctx)
	if err != nil {
		return models.SessionBounds{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return snapshot.Session, nil
}

// Update replaces both bounds. Attendance outside the new window is kept.
func (s *SessionService) Update(ctx context.Context, req UpdateSessionRequest) (models.SessionBounds, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.SessionBounds{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return models.SessionBounds{}, appErrors.Clone(appErrors.ErrValidation, "invalid start_date")
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return models.SessionBounds{}, appErrors.Clone(appErrors.ErrValidation, "invalid end_date")
	}
	if !start.Before(end) {
		return models.SessionBounds{}, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}

	if err := s.repo.Update(ctx, models.FormatDate(start), models.FormatDate(end)); err != nil {
		return models.SessionBounds{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	s.readModel.Invalidate(ctx)
	s.logger.Info("session updated", zap.String("start", req.StartDate), zap.String("end", req.EndDate))
	return models.SessionBounds{Start: start, End: end}, nil
}
