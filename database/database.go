package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ziadayman00/learning-platform/config"
)

func Open(cfg config.DB) (*sqlx.DB, error) {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}

	return sqlx.Connect("postgres", u.String())
}

func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	var tmp bool
	return db.QueryRowContext(ctx, `SELECT true`).Scan(&tmp)
}

func Transaction(db *sqlx.DB, fn func(tx sqlx.ExtContext) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if errTx := tx.Rollback(); errTx != nil {
			return fmt.Errorf("rolling back transaction: %v (original error: %w)", errTx, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err is a violation of a unique
// constraint, such as the (user_id, course_id) enrollment key.
func IsUniqueViolation(err error) bool {
	var pqerr *pq.Error
	if !errors.As(err, &pqerr) {
		return false
	}
	return pqerr.Code == pqUniqueViolation
}

// IsConflict reports whether err is a transient concurrency conflict that is
// safe to retry with the same idempotent statement.
func IsConflict(err error) bool {
	var pqerr *pq.Error
	if !errors.As(err, &pqerr) {
		return false
	}
	return pqerr.Code == pqSerializationFailure || pqerr.Code == pqDeadlockDetected
}

// Retry runs fn, retrying a handful of times when the store reports a
// transient conflict. All callers pass idempotent upserts, so re-running the
// same statement is safe.
func Retry(fn func() error) error {
	const attempts = 3

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !IsConflict(err) {
			return err
		}
	}
	return err
}
