package repository

import (
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// ErrContention is returned when the store aborts a transaction because of
// lock wait timeout or deadlock. Nothing was committed; the operation is safe
// to retry.
var ErrContention = errors.New("storage contention, retry")

// NewDB creates a new MySQL database connection pool with the given DSN.
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		slog.Warn("database ping failed, continuing; queries will retry the connection", "error", err)
	}

	return db, nil
}

// isDuplicateEntryError checks if a MySQL error is a duplicate entry error (code 1062).
func isDuplicateEntryError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}

// isContentionError checks if a MySQL error is a lock wait timeout (1205) or
// deadlock (1213). Both mean the transaction was rolled back with no effects.
func isContentionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Lock wait timeout") || strings.Contains(msg, "Deadlock found")
}
