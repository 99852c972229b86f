package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/pkg/database"
)

const studentDetailColumns = `s.id, s.name, s.class_id, COALESCE(s.order_index, 0) AS order_index, c.name AS class_name, c.teacher_name`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students with class details ordered by class name, roster position and name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	query := `SELECT ` + studentDetailColumns + ` FROM students s LEFT JOIN classes c ON c.id = s.class_id`
	args := []interface{}{}
	if filter.ClassID != nil {
		query += ` WHERE s.class_id = ?`
		args = append(args, *filter.ClassID)
	}
	query += ` ORDER BY c.name, order_index, s.name, s.id`

	students := make([]models.StudentDetail, 0)
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListByClass returns the roster of a class ordered by (order_index, name).
func (r *StudentRepository) ListByClass(ctx context.Context, classID int64) ([]models.Student, error) {
	query := r.db.Rebind(`SELECT id, name, class_id, COALESCE(order_index, 0) AS order_index
FROM students WHERE class_id = ? ORDER BY order_index, name, id`)
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return students, nil
}

// FindByID fetches a student with class details.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	query := r.db.Rebind(`SELECT ` + studentDetailColumns + ` FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE s.id = ?`)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a student at the end of its class roster.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ClassID == nil {
		return fmt.Errorf("create student: class is required")
	}
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		next, err := nextOrderIndex(ctx, tx, *student.ClassID)
		if err != nil {
			return err
		}
		student.OrderIndex = next
		query := tx.Rebind(`INSERT INTO students (name, class_id, order_index) VALUES (?, ?, ?) RETURNING id`)
		if err := tx.GetContext(ctx, &student.ID, query, student.Name, *student.ClassID, student.OrderIndex); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		return nil
	})
}

// Delete removes a student; the store cascades the delete to its attendance rows.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM students WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res)
}

// MoveToClass reassigns a student to classID at the end of the destination roster and
// returns the new order index. Attendance rows are left untouched.
func (r *StudentRepository) MoveToClass(ctx context.Context, id, classID int64) (int, error) {
	var next int
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		next, err = nextOrderIndex(ctx, tx, classID)
		if err != nil {
			return err
		}
		query := tx.Rebind(`UPDATE students SET class_id = ?, order_index = ? WHERE id = ?`)
		res, err := tx.ExecContext(ctx, query, classID, next, id)
		if err != nil {
			return fmt.Errorf("move student: %w", err)
		}
		return requireAffected(res)
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// SwapOrder exchanges the order_index values of two students atomically.
func (r *StudentRepository) SwapOrder(ctx context.Context, a, b models.Student) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`UPDATE students SET order_index = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, query, b.OrderIndex, a.ID); err != nil {
			return fmt.Errorf("swap order: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, a.OrderIndex, b.ID); err != nil {
			return fmt.Errorf("swap order: %w", err)
		}
		return nil
	})
}

func nextOrderIndex(ctx context.Context, tx *sqlx.Tx, classID int64) (int, error) {
	query := tx.Rebind(`SELECT COALESCE(MAX(order_index), 0) FROM students WHERE class_id = ?`)
	var max int
	if err := tx.GetContext(ctx, &max, query, classID); err != nil {
		return 0, fmt.Errorf("next order index: %w", err)
	}
	return max + 1, nil
}
