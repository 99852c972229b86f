package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sunday-attendance/pkg/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newTestApp(t *testing.T) *apiClient {
	t.Helper()
	return newTestAppWith(t, func(*config.Config) {})
}

func newTestAppWith(t *testing.T, mutate func(*config.Config)) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env:        config.EnvDevelopment,
		APIPrefix:  "/api/v1",
		Database:   config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"},
		Cache:      config.CacheConfig{Backend: config.CacheBackendMemory},
		Attendance: config.AttendanceConfig{Weekday: time.Sunday, Location: time.UTC},
		Reports:    config.ReportsConfig{FilePrefix: "Report"},
		Metrics:    config.MetricsConfig{Enabled: true},
	}
	mutate(cfg)
	application, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })
	return &apiClient{t: t, router: application.Router}
}

func (a *apiClient) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(a.t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *apiClient) decode(w *httptest.ResponseRecorder, dest interface{}) envelope {
	a.t.Helper()
	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if dest != nil {
		require.NoError(a.t, json.Unmarshal(env.Data, dest), w.Body.String())
	}
	return env
}

type idOnly struct {
	ID int64 `json:"id"`
}

func (a *apiClient) createClass(name string) int64 {
	w := a.do(http.MethodPost, "/api/v1/classes", map[string]interface{}{"name": name})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var out idOnly
	a.decode(w, &out)
	return out.ID
}

func (a *apiClient) createStudent(name string, classID int64) int64 {
	w := a.do(http.MethodPost, "/api/v1/students", map[string]interface{}{"name": name, "class_id": classID})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var out idOnly
	a.decode(w, &out)
	return out.ID
}

func TestProbes(t *testing.T) {
	api := newTestApp(t)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/metrics", nil).Code)
}

func TestClassLifecycle(t *testing.T) {
	api := newTestApp(t)

	classID := api.createClass("Beginner")
	w := api.do(http.MethodPost, "/api/v1/classes", map[string]interface{}{"name": "Beginner"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPut, fmt.Sprintf("/api/v1/classes/%d/teacher", classID), map[string]interface{}{"teacher_name": "Mrs. Lee"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	studentID := api.createStudent("Ann", classID)
	w = api.do(http.MethodDelete, fmt.Sprintf("/api/v1/classes/%d", classID), nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	env := api.decode(w, nil)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Message, "1 student(s)")

	w = api.do(http.MethodDelete, fmt.Sprintf("/api/v1/students/%d", studentID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(http.MethodDelete, fmt.Sprintf("/api/v1/classes/%d", classID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(http.MethodGet, "/api/v1/classes", nil)
	var classes []idOnly
	api.decode(w, &classes)
	assert.Empty(t, classes)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodDelete, "/api/v1/classes/abc", nil).Code)
}

func TestRosterReorderAndMove(t *testing.T) {
	api := newTestApp(t)
	beginner := api.createClass("Beginner")
	primary := api.createClass("Primary")
	ann := api.createStudent("Ann", beginner)
	ben := api.createStudent("Ben", beginner)

	w := api.do(http.MethodPost, fmt.Sprintf("/api/v1/classes/%d/roster/reorder", beginner),
		map[string]interface{}{"student_id": ben, "direction": "up"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var roster []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	api.decode(w, &roster)
	require.Len(t, roster, 2)
	assert.Equal(t, "Ben", roster[0].Name)
	assert.Equal(t, "Ann", roster[1].Name)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/v1/classes/%d/roster/reorder", beginner),
		map[string]interface{}{"student_id": ann, "direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/v1/students/%d/move", ann), map[string]interface{}{"class_id": primary})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodGet, fmt.Sprintf("/api/v1/students?class_id=%d", primary), nil)
	var students []struct {
		Name      string `json:"name"`
		ClassName string `json:"class_name"`
	}
	api.decode(w, &students)
	require.Len(t, students, 1)
	assert.Equal(t, "Ann", students[0].Name)
	assert.Equal(t, "Primary", students[0].ClassName)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/v1/students/%d/move", ann), map[string]interface{}{"class_id": primary})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceAndReportFlow(t *testing.T) {
	api := newTestApp(t)

	w := api.do(http.MethodPut, "/api/v1/session", map[string]interface{}{"start_date": "2020-01-01", "end_date": "2020-01-31"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/calendar/markable", nil)
	var calendar struct {
		Weekday string   `json:"weekday"`
		Dates   []string `json:"dates"`
	}
	api.decode(w, &calendar)
	assert.Equal(t, "Sunday", calendar.Weekday)
	assert.Equal(t, []string{"2020-01-05", "2020-01-12", "2020-01-19", "2020-01-26"}, calendar.Dates)

	beginner := api.createClass("Beginner")
	primary := api.createClass("Primary")
	ann := api.createStudent("Ann", beginner)
	ben := api.createStudent("Ben", beginner)
	cal := api.createStudent("Cal", primary)

	w = api.do(http.MethodPost, "/api/v1/attendance/sessions", map[string]interface{}{
		"date": "2020-01-05", "class_id": beginner,
		"marks": []map[string]interface{}{{"student_id": ann, "status": "P"}, {"student_id": ben, "status": "A"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/v1/attendance/sessions", map[string]interface{}{
		"date": "2020-01-05", "class_id": primary, "no_session": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/v1/attendance/sessions", map[string]interface{}{
		"date": "2020-01-06", "class_id": beginner,
		"marks": []map[string]interface{}{{"student_id": ann, "status": "P"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/v1/attendance/sessions", map[string]interface{}{
		"date": "2020-01-12", "class_id": beginner,
		"marks": []map[string]interface{}{{"student_id": cal, "status": "P"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, fmt.Sprintf("/api/v1/attendance/sheet?date=2020-01-05&class_id=%d", primary), nil)
	var sheet struct {
		NoSession bool `json:"no_session"`
		Entries   []struct {
			DefaultStatus string `json:"default_status"`
		} `json:"entries"`
	}
	api.decode(w, &sheet)
	assert.True(t, sheet.NoSession)
	require.Len(t, sheet.Entries, 1)
	assert.Equal(t, "P", sheet.Entries[0].DefaultStatus)

	w = api.do(http.MethodGet, "/api/v1/reports/attendance?from=2020-01-05&to=2020-01-12", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report struct {
		Dates []string `json:"dates"`
		Rows  []struct {
			StudentName  string   `json:"student_name"`
			Statuses     []string `json:"statuses"`
			TotalClasses int      `json:"total_classes"`
			Attended     int      `json:"attended"`
			Percentage   string   `json:"attendance_pct"`
		} `json:"rows"`
	}
	api.decode(w, &report)
	assert.Equal(t, []string{"2020-01-05", "2020-01-12"}, report.Dates)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, "Ann", report.Rows[0].StudentName)
	assert.Equal(t, []string{"P", "A (M)"}, report.Rows[0].Statuses)
	assert.Equal(t, "50.0%", report.Rows[0].Percentage)
	assert.Equal(t, "Cal", report.Rows[2].StudentName)
	assert.Equal(t, []string{"N/C", "A (M)"}, report.Rows[2].Statuses)
	assert.Equal(t, 1, report.Rows[2].TotalClasses)

	w = api.do(http.MethodGet, "/api/v1/reports/attendance/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, `attachment; filename="Report_20200101_20200131.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "05 JAN")

	w = api.do(http.MethodGet, "/api/v1/reports/attendance?from=2020-02-01&to=2020-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectUpsertUnknownStudent(t *testing.T) {
	api := newTestApp(t)
	w := api.do(http.MethodPut, "/api/v1/attendance", map[string]interface{}{"date": "2020-01-05", "student_id": 42, "status": "P"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportIsArchived(t *testing.T) {
	dir := t.TempDir()
	api := newTestAppWith(t, func(cfg *config.Config) {
		cfg.Reports.ArchiveDir = dir
		cfg.Reports.ArchiveRetention = time.Hour
	})

	w := api.do(http.MethodPut, "/api/v1/session", map[string]interface{}{"start_date": "2020-01-01", "end_date": "2020-01-31"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(http.MethodGet, "/api/v1/reports/attendance/export?format=pdf", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data, err := os.ReadFile(filepath.Join(dir, "Report_20200101_20200131.pdf"))
	require.NoError(t, err)
	assert.Equal(t, w.Body.Bytes(), data)
}

func TestDocsAndMetricsToggles(t *testing.T) {
	api := newTestAppWith(t, func(cfg *config.Config) {
		cfg.Metrics.Enabled = false
		cfg.Docs.Enabled = true
	})
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/metrics", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/docs/doc.json", nil).Code)
}
