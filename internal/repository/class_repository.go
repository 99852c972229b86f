package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/pkg/database"
)

const countClassStudentsQuery = `SELECT COUNT(*) FROM students WHERE class_id = ?`

// ClassRepository manages persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns every class ordered by name.
func (r *ClassRepository) List(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, teacher_name FROM classes ORDER BY name`
	classes := make([]models.Class, 0)
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID returns a class record by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id int64) (*models.Class, error) {
	query := r.db.Rebind(`SELECT id, name, teacher_name FROM classes WHERE id = ?`)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ExistsByName checks if a class with the same name already exists.
func (r *ClassRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	query := r.db.Rebind(`SELECT 1 FROM classes WHERE name = ? LIMIT 1`)
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class name: %w", err)
	}
	return true, nil
}

// Create persists a class record and fills in its generated ID.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	query := r.db.Rebind(`INSERT INTO classes (name, teacher_name) VALUES (?, ?) RETURNING id`)
	if err := r.db.GetContext(ctx, &class.ID, query, class.Name, class.TeacherName); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// UpdateTeacher sets or clears the teacher of a class.
func (r *ClassRepository) UpdateTeacher(ctx context.Context, id int64, teacher *string) error {
	query := r.db.Rebind(`UPDATE classes SET teacher_name = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, teacher, id)
	if err != nil {
		return fmt.Errorf("update class teacher: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a class record. Students still referencing it make the store refuse.
func (r *ClassRepository) Delete(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM classes WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return requireAffected(res)
}

// DeleteIfEmpty counts the students of a class and removes the class only when the count
// is zero, both inside one transaction. It returns the count it saw; a non-zero count means
// nothing was deleted.
func (r *ClassRepository) DeleteIfEmpty(ctx context.Context, id int64) (int, error) {
	var count int
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &count, tx.Rebind(countClassStudentsQuery), id); err != nil {
			return fmt.Errorf("count class students: %w", err)
		}
		if count > 0 {
			return nil
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM classes WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete class: %w", err)
		}
		return requireAffected(res)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountStudents returns how many students are assigned to a class.
func (r *ClassRepository) CountStudents(ctx context.Context, classID int64) (int, error) {
	query := r.db.Rebind(countClassStudentsQuery)
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID); err != nil {
		return 0, fmt.Errorf("count class students: %w", err)
	}
	return count, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
