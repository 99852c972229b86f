package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/pkg/database"
)

func newSQLiteStore(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.DialectSQLite, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	return db
}

func TestStoreRosterLifecycle(t *testing.T) {
	db := newSQLiteStore(t)
	ctx := context.Background()
	classes := NewClassRepository(db)
	students := NewStudentRepository(db)
	attendance := NewAttendanceRepository(db)

	beginner := &models.Class{Name: "Beginner"}
	primary := &models.Class{Name: "Primary"}
	require.NoError(t, classes.Create(ctx, beginner))
	require.NoError(t, classes.Create(ctx, primary))

	ann := &models.Student{Name: "Ann", ClassID: &beginner.ID}
	ben := &models.Student{Name: "Ben", ClassID: &beginner.ID}
	require.NoError(t, students.Create(ctx, ann))
	require.NoError(t, students.Create(ctx, ben))
	assert.Equal(t, 1, ann.OrderIndex)
	assert.Equal(t, 2, ben.OrderIndex)

	require.NoError(t, attendance.Upsert(ctx, models.Attendance{Date: "2025-01-05", StudentID: ann.ID, Status: models.AttendanceStatusPresent}))
	require.NoError(t, attendance.Upsert(ctx, models.Attendance{Date: "2025-01-05", StudentID: ann.ID, Status: models.AttendanceStatusAbsent}))

	marks, err := attendance.List(ctx)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, models.AttendanceStatusAbsent, marks[0].Status)

	// Moving keeps history and appends to the destination roster.
	order, err := students.MoveToClass(ctx, ann.ID, primary.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, order)
	marks, err = attendance.List(ctx)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, ann.ID, marks[0].StudentID)

	// A class with students cannot be removed.
	err = classes.Delete(ctx, primary.ID)
	require.Error(t, err)
	assert.True(t, database.IsForeignKeyViolation(err))
	count, err := classes.DeleteIfEmpty(ctx, primary.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Deleting a student cascades to its marks only.
	require.NoError(t, attendance.Upsert(ctx, models.Attendance{Date: "2025-01-05", StudentID: ben.ID, Status: models.AttendanceStatusPresent}))
	require.NoError(t, students.Delete(ctx, ann.ID))
	marks, err = attendance.List(ctx)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, ben.ID, marks[0].StudentID)
	assert.Equal(t, models.AttendanceStatusPresent, marks[0].Status)

	count, err = classes.DeleteIfEmpty(ctx, primary.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	_, err = classes.FindByID(ctx, primary.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStoreSwapOrderAndListing(t *testing.T) {
	db := newSQLiteStore(t)
	ctx := context.Background()
	classes := NewClassRepository(db)
	students := NewStudentRepository(db)

	class := &models.Class{Name: "Juniors"}
	require.NoError(t, classes.Create(ctx, class))
	for _, name := range []string{"Cara", "Dan", "Eve"} {
		require.NoError(t, students.Create(ctx, &models.Student{Name: name, ClassID: &class.ID}))
	}

	roster, err := students.ListByClass(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, roster, 3)
	require.NoError(t, students.SwapOrder(ctx, roster[0], roster[1]))

	roster, err = students.ListByClass(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dan", "Cara", "Eve"}, []string{roster[0].Name, roster[1].Name, roster[2].Name})

	all, err := students.List(ctx, models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Juniors", *all[0].ClassName)
}

func TestStoreSessionUpdate(t *testing.T) {
	db := newSQLiteStore(t)
	ctx := context.Background()
	sessions := NewSessionRepository(db)

	require.NoError(t, sessions.Update(ctx, "2025-02-01", "2025-05-31"))
	rows, err := sessions.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, database.SessionKeyEnd, rows[0].Key)
	assert.Equal(t, "2025-05-31", *rows[0].DateValue)
	assert.Equal(t, "2025-02-01", *rows[1].DateValue)
}
