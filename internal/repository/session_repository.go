package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sunday-attendance/internal/models"
	"github.com/noah-isme/sunday-attendance/pkg/database"
)

// SessionRepository persists the session start/end bounds.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns the raw session rows.
func (r *SessionRepository) List(ctx context.Context) ([]models.Session, error) {
	const query = `SELECT key, date_value FROM sessions ORDER BY key`
	rows := make([]models.Session, 0)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return rows, nil
}

// Update writes both bounds in one transaction.
func (r *SessionRepository) Update(ctx context.Context, start, end string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`INSERT INTO sessions (key, date_value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET date_value = excluded.date_value`)
		if _, err := tx.ExecContext(ctx, query, database.SessionKeyStart, start); err != nil {
			return fmt.Errorf("update session start: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, database.SessionKeyEnd, end); err != nil {
			return fmt.Errorf("update session end: %w", err)
		}
		return nil
	})
}
