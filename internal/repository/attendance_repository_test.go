package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sunday-attendance/internal/models"
)

func TestAttendanceRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT date, student_id, status FROM attendance ORDER BY date, student_id").
		WillReturnRows(sqlmock.NewRows([]string{"date", "student_id", "status"}).AddRow("2025-01-05", 1, "N/C"))

	rows, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.AttendanceStatusNoClass, rows[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertManyRollsBack(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance").WithArgs("2025-01-05", int64(1), models.AttendanceStatusPresent).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attendance").WithArgs("2025-01-05", int64(2), models.AttendanceStatusAbsent).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.UpsertMany(context.Background(), []models.Attendance{
		{Date: "2025-01-05", StudentID: 1, Status: models.AttendanceStatusPresent},
		{Date: "2025-01-05", StudentID: 2, Status: models.AttendanceStatusAbsent},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateWritesBothBounds(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").WithArgs("start_date", "2025-01-01").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sessions").WithArgs("end_date", "2025-06-30").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), "2025-01-01", "2025-06-30"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
