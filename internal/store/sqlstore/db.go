// Package sqlstore persists users, favorites and recommendation history
// through sqlx, on SQLite (default) or Postgres.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB is the shared handle. Open it once in main and inject it.
type DB struct {
	*sqlx.DB
	driver string
}

// Open connects, pings and creates the schema.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore open: %w", err)
	}
	if driver == DriverSQLite {
		// Single writer; also keeps ":memory:" on one connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore ping: %w", err)
	}

	s := &DB{DB: db, driver: driver}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore schema: %w", err)
	}

	slog.Info("database opened", "driver", driver)
	return s, nil
}

// Driver returns the driver name the handle was opened with.
func (s *DB) Driver() string { return s.driver }

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, ":memory:") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

func ensureDir(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlstore mkdir %s: %w", dir, err)
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		totp_secret   TEXT NOT NULL DEFAULT '',
		totp_enabled  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS favorites (
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		symbol     TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (user_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		symbol     TEXT NOT NULL,
		signal     TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		ts         BIGINT NOT NULL,
		rsi        DOUBLE PRECISION NOT NULL,
		macd       DOUBLE PRECISION NOT NULL,
		sma        DOUBLE PRECISION NOT NULL,
		price      DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_user_ts ON recommendations (user_id, ts DESC)`,
}

func (s *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// isUniqueViolation reports a unique/primary key conflict on either driver.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}
