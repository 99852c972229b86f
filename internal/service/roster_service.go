package service

import (
	"context"
	"database/sql"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sunday-attendance/internal/models"
	appErrors "github.com/noah-isme/sunday-attendance/pkg/errors"
)

// SortRoster orders a class roster by (order_index, name). Ties on both keep the id order.
func SortRoster(roster []models.Student) {
	sort.SliceStable(roster, func(i, j int) bool {
		a, b := roster[i], roster[j]
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex < b.OrderIndex
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// PlanSwap finds the neighbour studentID trades places with when moving in direction. The
// returned students carry their current order_index values; ok is false when the student is
// unknown or already at that end of the roster.
func PlanSwap(roster []models.Student, studentID int64, direction models.RosterDirection) (current, neighbour models.Student, ok bool) {
	sorted := append([]models.Student(nil), roster...)
	SortRoster(sorted)

	pos := -1
	for i, st := range sorted {
		if st.ID == studentID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return models.Student{}, models.Student{}, false
	}

	target := pos
	switch direction {
	case models.RosterDirectionUp:
		target = pos - 1
	case models.RosterDirectionDown:
		target = pos + 1
	}
	if target == pos || target < 0 || target >= len(sorted) {
		return models.Student{}, models.Student{}, false
	}
	return sorted[pos], sorted[target], true
}

// ReorderRequest moves one student a step up or down its class roster.
type ReorderRequest struct {
	StudentID int64                  `json:"student_id" validate:"required,gt=0"`
	Direction models.RosterDirection `json:"direction" validate:"required,oneof=up down"`
}

// RosterService keeps the manual ordering of class rosters.
type RosterService struct {
	students  studentRepository
	classes   classRepository
	readModel *ReadModel
	logger    *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(students studentRepository, classes classRepository, readModel *ReadModel, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{students: students, classes: classes, readModel: readModel, logger: logger}
}

// Roster returns the students of a class in roster order.
func (s *RosterService) Roster(ctx context.Context, classID int64) ([]models.Student, error) {
	snapshot, err := s.readModel.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if !snapshotHasClass(snapshot, classID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	details := snapshot.StudentsInClass(classID)
	roster := make([]models.Student, 0, len(details))
	for _, d := range details {
		roster = append(roster, d.Student)
	}
	SortRoster(roster)
	return roster, nil
}

// Reorder swaps a student with its neighbour and returns the resulting roster. A student
// at the boundary or outside the class leaves the roster untouched.
func (s *RosterService) Reorder(ctx context.Context, classID int64, req ReorderRequest) ([]models.Student, error) {
	if !req.Direction.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "direction must be up or down")
	}
	roster, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if len(roster) == 0 {
		if _, err := s.classes.FindByID(ctx, classID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
	}

	current, neighbour, ok := PlanSwap(roster, req.StudentID, req.Direction)
	if !ok {
		SortRoster(roster)
		return roster, nil
	}
	if err := s.students.SwapOrder(ctx, current, neighbour); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reorder roster")
	}
	s.readModel.Invalidate(ctx)
	s.logger.Info("roster reordered",
		zap.Int64("class_id", classID),
		zap.Int64("student_id", current.ID),
		zap.Int64("swapped_with", neighbour.ID),
		zap.String("direction", string(req.Direction)))

	for i := range roster {
		switch roster[i].ID {
		case current.ID:
			roster[i].OrderIndex = neighbour.OrderIndex
		case neighbour.ID:
			roster[i].OrderIndex = current.OrderIndex
		}
	}
	SortRoster(roster)
	return roster, nil
}

func snapshotHasClass(snapshot *models.Snapshot, classID int64) bool {
	for _, c := range snapshot.Classes {
		if c.ID == classID {
			return true
		}
	}
	return false
}
