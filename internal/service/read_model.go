package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/pkg/database"
)

const (
	snapshotCacheKey     = "snapshot"
	snapshotCachePattern = "snapshot*"
)

type classLister interface {
	List(ctx context.Context) ([]models.Class, error)
}

type studentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error)
}

type attendanceLister interface {
	List(ctx context.Context) ([]models.Attendance, error)
}

type sessionLister interface {
	List(ctx context.Context) ([]models.Session, error)
}

// ReadModel serves the derived class, student, attendance and session data from the cache,
// loading it from the store on the first read after an invalidation.
type ReadModel struct {
	classes    classLister
	students   studentLister
	attendance attendanceLister
	sessions   sessionLister
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time

	mu sync.Mutex
}

// NewReadModel constructs the read model. A nil cache means every read hits the store.
func NewReadModel(classes classLister, students studentLister, attendance attendanceLister, sessions sessionLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ReadModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadModel{
		classes:    classes,
		students:   students,
		attendance: attendance,
		sessions:   sessions,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Snapshot returns the current read model.
func (m *ReadModel) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	var cached models.Snapshot
	if hit, err := m.cache.Get(ctx, snapshotCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	// Serialise loads so concurrent misses do not all hit the store.
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit, err := m.cache.Get(ctx, snapshotCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	snapshot, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	_ = m.cache.Set(ctx, snapshotCacheKey, snapshot, 0)
	return snapshot, nil
}

// Invalidate drops the cached snapshot. Callers invoke it after every successful write.
func (m *ReadModel) Invalidate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.cache.Invalidate(ctx, snapshotCachePattern); err != nil {
		m.logger.Warn("read model invalidation failed", zap.Error(err))
	}
}

func (m *ReadModel) load(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	defer func() { m.metrics.ObserveDBQuery("read_model", time.Since(start)) }()

	classes, err := m.classes.List(ctx)
	if err != nil {
		return nil, err
	}
	students, err := m.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, err
	}
	sortStudentDetails(students)
	marks, err := m.attendance.List(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := m.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Snapshot{
		Classes:    classes,
		Students:   students,
		Attendance: marks,
		Session:    sessionBoundsFromRows(rows, m.now()),
	}, nil
}

// sessionBoundsFromRows falls back to the calendar year of now for any missing or
// unparsable bound.
func sessionBoundsFromRows(rows []models.Session, now time.Time) models.SessionBounds {
	bounds := models.DefaultSessionBounds(now)
	for _, row := range rows {
		if row.DateValue == nil {
			continue
		}
		parsed, err := models.ParseDate(*row.DateValue)
		if err != nil {
			continue
		}
		switch row.Key {
		case database.SessionKeyStart:
			bounds.Start = parsed
		case database.SessionKeyEnd:
			bounds.End = parsed
		}
	}
	return bounds
}

// sortStudentDetails orders students by class name, roster position and name. Students
// without a class sort first, whatever the store's NULL ordering.
func sortStudentDetails(students []models.StudentDetail) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		an, bn := derefString(a.ClassName), derefString(b.ClassName)
		if an != bn {
			return an < bn
		}
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex < b.OrderIndex
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
