package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/pkg/database"
	appErrors "github.com/noah-isme/sunday-attendance/pkg/errors"
)

var errForeignKey = &pq.Error{Code: "23503", Message: "foreign key violation"}

// fakeStore is an in-memory stand-in for the four repositories, enforcing the same
// restrict and cascade rules as the schema.
type fakeStore struct {
	classes    map[int64]models.Class
	students   map[int64]models.Student
	attendance map[reportKey]models.AttendanceStatus
	sessions   map[string]string
	nextID     int64
	loads      int
	failWrites error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		classes:    make(map[int64]models.Class),
		students:   make(map[int64]models.Student),
		attendance: make(map[reportKey]models.AttendanceStatus),
		sessions:   make(map[string]string),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addClass(name string, teacher *string) models.Class {
	c := models.Class{ID: f.id(), Name: name, TeacherName: teacher}
	f.classes[c.ID] = c
	return c
}

func (f *fakeStore) addStudent(name string, classID int64, order int) models.Student {
	st := models.Student{ID: f.id(), Name: name, ClassID: &classID, OrderIndex: order}
	f.students[st.ID] = st
	return st
}

func (f *fakeStore) mark(date string, studentID int64, status models.AttendanceStatus) {
	f.attendance[reportKey{date: date, studentID: studentID}] = status
}

type fakeClassRepo struct{ *fakeStore }

func (r fakeClassRepo) List(ctx context.Context) ([]models.Class, error) {
	out := make([]models.Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeClassRepo) FindByID(ctx context.Context, id int64) (*models.Class, error) {
	c, ok := r.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r fakeClassRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	for _, c := range r.classes {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeClassRepo) Create(ctx context.Context, class *models.Class) error {
	if r.failWrites != nil {
		return r.failWrites
	}
	class.ID = r.id()
	r.classes[class.ID] = *class
	return nil
}

func (r fakeClassRepo) UpdateTeacher(ctx context.Context, id int64, teacher *string) error {
	c, ok := r.classes[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.TeacherName = teacher
	r.classes[id] = c
	return nil
}

func (r fakeClassRepo) DeleteIfEmpty(ctx context.Context, id int64) (int, error) {
	if r.failWrites != nil {
		return 0, r.failWrites
	}
	if _, ok := r.classes[id]; !ok {
		return 0, sql.ErrNoRows
	}
	n := 0
	for _, st := range r.students {
		if st.InClass(id) {
			n++
		}
	}
	if n == 0 {
		delete(r.classes, id)
	}
	return n, nil
}

type fakeStudentRepo struct{ *fakeStore }

func (r fakeStudentRepo) detail(st models.Student) models.StudentDetail {
	d := models.StudentDetail{Student: st}
	if st.ClassID != nil {
		if c, ok := r.classes[*st.ClassID]; ok {
			name := c.Name
			d.ClassName = &name
			d.TeacherName = c.TeacherName
		}
	}
	return d
}

func (r fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	out := make([]models.StudentDetail, 0, len(r.students))
	for _, st := range r.students {
		if filter.ClassID != nil && !st.InClass(*filter.ClassID) {
			continue
		}
		out = append(out, r.detail(st))
	}
	return out, nil
}

func (r fakeStudentRepo) ListByClass(ctx context.Context, classID int64) ([]models.Student, error) {
	out := make([]models.Student, 0)
	for _, st := range r.students {
		if st.InClass(classID) {
			out = append(out, st)
		}
	}
	SortRoster(out)
	return out, nil
}

func (r fakeStudentRepo) FindByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	st, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := r.detail(st)
	return &d, nil
}

func (r fakeStudentRepo) nextOrder(classID int64) int {
	max := 0
	for _, st := range r.students {
		if st.InClass(classID) && st.OrderIndex > max {
			max = st.OrderIndex
		}
	}
	return max + 1
}

func (r fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	student.OrderIndex = r.nextOrder(*student.ClassID)
	student.ID = r.id()
	r.students[student.ID] = *student
	return nil
}

func (r fakeStudentRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.students, id)
	for key := range r.attendance {
		if key.studentID == id {
			delete(r.attendance, key)
		}
	}
	return nil
}

func (r fakeStudentRepo) MoveToClass(ctx context.Context, id, classID int64) (int, error) {
	st, ok := r.students[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	next := r.nextOrder(classID)
	st.ClassID = &classID
	st.OrderIndex = next
	r.students[id] = st
	return next, nil
}

func (r fakeStudentRepo) SwapOrder(ctx context.Context, a, b models.Student) error {
	sa, sb := r.students[a.ID], r.students[b.ID]
	sa.OrderIndex, sb.OrderIndex = b.OrderIndex, a.OrderIndex
	r.students[a.ID], r.students[b.ID] = sa, sb
	return nil
}

type fakeAttendanceRepo struct{ *fakeStore }

func (r fakeAttendanceRepo) List(ctx context.Context) ([]models.Attendance, error) {
	r.loads++
	out := make([]models.Attendance, 0, len(r.attendance))
	for key, status := range r.attendance {
		out = append(out, models.Attendance{Date: key.date, StudentID: key.studentID, Status: status})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

func (r fakeAttendanceRepo) Upsert(ctx context.Context, record models.Attendance) error {
	if _, ok := r.students[record.StudentID]; !ok {
		return errForeignKey
	}
	r.mark(record.Date, record.StudentID, record.Status)
	return nil
}

func (r fakeAttendanceRepo) UpsertMany(ctx context.Context, records []models.Attendance) error {
	if r.failWrites != nil {
		return r.failWrites
	}
	for _, rec := range records {
		r.mark(rec.Date, rec.StudentID, rec.Status)
	}
	return nil
}

type fakeSessionRepo struct{ *fakeStore }

func (r fakeSessionRepo) List(ctx context.Context) ([]models.Session, error) {
	out := make([]models.Session, 0, len(r.sessions))
	for key, value := range r.sessions {
		v := value
		out = append(out, models.Session{Key: key, DateValue: &v})
	}
	return out, nil
}

func (r fakeSessionRepo) Update(ctx context.Context, start, end string) error {
	r.sessions[database.SessionKeyStart] = start
	r.sessions[database.SessionKeyEnd] = end
	return nil
}

type testServices struct {
	store      *fakeStore
	readModel  *ReadModel
	session    *SessionService
	calendar   *CalendarService
	classes    *ClassService
	students   *StudentService
	roster     *RosterService
	attendance *AttendanceService
	reports    *ReportService
	exports    *ExportService
}

// newTestServices wires every service over one fake store with an in-memory cache and a
// fixed clock.
func newTestServices(now time.Time) *testServices {
	store := newFakeStore()
	store.sessions[database.SessionKeyStart] = "2024-01-01"
	store.sessions[database.SessionKeyEnd] = "2024-12-31"

	cache := NewCacheService(newMapCache(), nil, 0, nil, true)
	readModel := NewReadModel(fakeClassRepo{store}, fakeStudentRepo{store}, fakeAttendanceRepo{store}, fakeSessionRepo{store}, cache, nil, nil)
	readModel.now = func() time.Time { return now }

	session := NewSessionService(fakeSessionRepo{store}, readModel, nil, nil)
	calendar := NewCalendarService(session, time.Sunday, time.UTC)
	calendar.now = func() time.Time { return now }
	reports := NewReportService(readModel, calendar, nil)

	return &testServices{
		store:      store,
		readModel:  readModel,
		session:    session,
		calendar:   calendar,
		classes:    NewClassService(fakeClassRepo{store}, readModel, nil, nil),
		students:   NewStudentService(fakeStudentRepo{store}, fakeClassRepo{store}, readModel, nil, nil),
		roster:     NewRosterService(fakeStudentRepo{store}, fakeClassRepo{store}, readModel, nil),
		attendance: NewAttendanceService(fakeAttendanceRepo{store}, fakeStudentRepo{store}, fakeClassRepo{store}, calendar, readModel, nil, nil, nil),
		reports:    reports,
		exports:    NewExportService(reports, ExportConfig{}, nil, nil, nil, nil),
	}
}

// mapCache is a minimal CacheRepository keeping values by pointer-free copies.
type mapCache struct {
	values map[string]models.Snapshot
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]models.Snapshot)}
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	v, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.Snapshot) = v
	return nil
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.values[key] = *value.(*models.Snapshot)
	return nil
}

func (c *mapCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.values = make(map[string]models.Snapshot)
	return nil
}

func strPtr(v string) *string { return &v }

func int64Ptr(v int64) *int64 { return &v }

func errorCode(err error) string {
	return appErrors.CodeOf(err)
}
