package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sunday-attendance/pkg/config"
)

// Dialect identifies the SQL flavour behind a connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Open connects to the configured driver and reports its dialect.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, Dialect, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := NewPostgres(cfg)
		return db, DialectPostgres, err
	case config.DriverSQLite, "":
		db, err := NewSQLite(cfg.Path)
		return db, DialectSQLite, err
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
