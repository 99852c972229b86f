package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/pkg/database"
)

const upsertAttendanceQuery = `INSERT INTO attendance (date, student_id, status) VALUES (?, ?, ?)
ON CONFLICT (date, student_id) DO UPDATE SET status = excluded.status`

// AttendanceRepository handles persistence for attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns every stored mark ordered by date then student.
func (r *AttendanceRepository) List(ctx context.Context) ([]models.Attendance, error) {
	const query = `SELECT date, student_id, status FROM attendance ORDER BY date, student_id`
	rows := make([]models.Attendance, 0)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// Upsert inserts a mark or replaces the status of the existing (date, student) mark.
func (r *AttendanceRepository) Upsert(ctx context.Context, record models.Attendance) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(upsertAttendanceQuery), record.Date, record.StudentID, record.Status); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// UpsertMany writes all records in one transaction; either every mark lands or none does.
func (r *AttendanceRepository) UpsertMany(ctx context.Context, records []models.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(upsertAttendanceQuery)
		for _, rec := range records {
			if _, err := tx.ExecContext(ctx, query, rec.Date, rec.StudentID, rec.Status); err != nil {
				return fmt.Errorf("bulk upsert attendance: %w", err)
			}
		}
		return nil
	})
}
