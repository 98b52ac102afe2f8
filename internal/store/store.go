package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"wellness_wallet/internal/domain"
)

// Store owns the shared database handle. Every mutation site goes through
// Atomically so the balance write and its ledger entry always commit or roll
// back as one unit.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm handle. The connection pool belongs to process
// startup; Store never closes it.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle for read-only queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Atomically runs fn inside one database transaction. fn receives the
// transaction handle and must issue every write through it. Transient
// lock-contention failures are reported as domain.ErrTxAborted, the only
// rejection kind a caller may retry: nothing was committed.
func (s *Store) Atomically(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %v", domain.ErrTxAborted, err)
	}
	return err
}

// isTransient reports whether err is a lock-contention failure the store may
// raise under concurrent access. MySQL reports deadlocks and lock waits,
// SQLite reports busy/locked states.
func isTransient(err error) bool {
	msg := err.Error()
	for _, needle := range []string{
		"Deadlock found",             // MySQL 1213
		"Lock wait timeout exceeded", // MySQL 1205
		"database is locked",         // SQLITE_BUSY
		"database table is locked",   // SQLITE_LOCKED
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
