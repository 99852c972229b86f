package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Session bound keys stored in the sessions table.
const (
	SessionKeyStart = "start_date"
	SessionKeyEnd   = "end_date"
)

type additiveColumn struct {
	table      string
	column     string
	definition string
}

// Columns introduced after the first release. Older databases get them added in place.
var additiveColumns = []additiveColumn{
	{table: "classes", column: "teacher_name", definition: "TEXT"},
	{table: "students", column: "order_index", definition: "INTEGER DEFAULT 0"},
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS classes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		teacher_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		class_id INTEGER,
		order_index INTEGER DEFAULT 0,
		FOREIGN KEY (class_id) REFERENCES classes (id) ON DELETE RESTRICT
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		date TEXT NOT NULL,
		student_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (date, student_id),
		FOREIGN KEY (student_id) REFERENCES students (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		key TEXT PRIMARY KEY,
		date_value TEXT
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS classes (
		id SERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		teacher_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		class_id INTEGER REFERENCES classes (id) ON DELETE RESTRICT,
		order_index INTEGER DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		date TEXT NOT NULL,
		student_id INTEGER NOT NULL REFERENCES students (id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		PRIMARY KEY (date, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		key TEXT PRIMARY KEY,
		date_value TEXT
	)`,
}

// Migrate creates missing tables, adds columns introduced after the first schema and seeds
// the session bounds with the calendar year of now. It is safe to run on every start.
func Migrate(ctx context.Context, db *sqlx.DB, dialect Dialect, now time.Time) error {
	schema := sqliteSchema
	if dialect == DialectPostgres {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	for _, col := range additiveColumns {
		exists, err := columnExists(ctx, db, dialect, col.table, col.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.column, col.definition)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", col.table, col.column, err)
		}
	}

	year := now.Year()
	defaults := map[string]string{
		SessionKeyStart: fmt.Sprintf("%d-01-01", year),
		SessionKeyEnd:   fmt.Sprintf("%d-12-31", year),
	}
	seed := db.Rebind(`INSERT INTO sessions (key, date_value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`)
	for _, key := range []string{SessionKeyStart, SessionKeyEnd} {
		if _, err := db.ExecContext(ctx, seed, key, defaults[key]); err != nil {
			return fmt.Errorf("seed session %s: %w", key, err)
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sqlx.DB, dialect Dialect, table, column string) (bool, error) {
	var columns []string
	var err error
	switch dialect {
	case DialectPostgres:
		err = db.SelectContext(ctx, &columns, `SELECT column_name FROM information_schema.columns WHERE table_name = $1`, table)
	default:
		err = db.SelectContext(ctx, &columns, fmt.Sprintf(`SELECT name FROM pragma_table_info('%s')`, table))
	}
	if err != nil {
		return false, fmt.Errorf("inspect columns of %s: %w", table, err)
	}
	for _, name := range columns {
		if name == column {
			return true, nil
		}
	}
	return false, nil
}
