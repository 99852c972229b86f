package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sunday-attendance/internal/models"
)

func int64Ptr(v int64) *int64 { return &v }

func TestStudentRepositoryListByClassFilter(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "class_id", "order_index", "class_name", "teacher_name"}).
		AddRow(1, "Ann", 2, 1, "Beginner", nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE s.class_id = ? ORDER BY c.name, order_index, s.name, s.id")).
		WithArgs(int64(2)).
		WillReturnRows(rows)

	students, err := repo.List(context.Background(), models.StudentFilter{ClassID: int64Ptr(2)})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Beginner", *students[0].ClassName)
	assert.Equal(t, 1, students[0].OrderIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateAppendsToRoster(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(order_index), 0) FROM students WHERE class_id = ?")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(4))
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Ben", int64(2), 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	student := &models.Student{Name: "Ben", ClassID: int64Ptr(2)}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.Equal(t, int64(11), student.ID)
	assert.Equal(t, 5, student.OrderIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryMoveRollsBackWhenMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))
	mock.ExpectExec("UPDATE students SET class_id").WithArgs(int64(3), 1, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.MoveToClass(context.Background(), 99, 3)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySwapOrder(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET order_index").WithArgs(2, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET order_index").WithArgs(1, int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SwapOrder(context.Background(),
		models.Student{ID: 1, OrderIndex: 1},
		models.Student{ID: 2, OrderIndex: 2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("DELETE FROM students").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 5), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
