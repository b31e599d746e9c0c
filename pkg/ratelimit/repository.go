package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository stores attempt logs by identity key.
type AttemptRepository interface {
	// Get returns ErrNotFound when key has no log.
	Get(ctx context.Context, key string) (*AttemptLog, error)
	// Update applies fn to key's log (zero value when absent) and persists
	// the result atomically with respect to other Updates of the same key.
	Update(ctx context.Context, key string, fn func(log *AttemptLog) error) error
}

// PostgresAttemptRepository keeps one row per identity in password_reset_attempts.
type PostgresAttemptRepository struct {
	db *pgxpool.Pool
}

func NewPostgresAttemptRepository(db *pgxpool.Pool) *PostgresAttemptRepository {
	return &PostgresAttemptRepository{db: db}
}

func (r *PostgresAttemptRepository) Get(ctx context.Context, key string) (*AttemptLog, error) {
	query := `
		SELECT email, attempts, last_attempt
		FROM password_reset_attempts
		WHERE identity_key = $1
	`

	var log AttemptLog
	err := r.db.QueryRow(ctx, query, key).Scan(&log.Email, &log.Attempts, &log.LastAttempt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// Update locks the row for the duration of fn. A missing row is inserted
// first so concurrent first writers serialize on it too.
func (r *PostgresAttemptRepository) Update(ctx context.Context, key string, fn func(log *AttemptLog) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO password_reset_attempts (identity_key, email, attempts, last_attempt)
		VALUES ($1, '', '{}', 0)
		ON CONFLICT (identity_key) DO NOTHING
	`, key)
	if err != nil {
		return fmt.Errorf("ensure row: %w", err)
	}

	var log AttemptLog
	err = tx.QueryRow(ctx, `
		SELECT email, attempts, last_attempt
		FROM password_reset_attempts
		WHERE identity_key = $1
		FOR UPDATE
	`, key).Scan(&log.Email, &log.Attempts, &log.LastAttempt)
	if err != nil {
		return fmt.Errorf("lock row: %w", err)
	}

	if err := fn(&log); err != nil {
		return err
	}
	if log.Attempts == nil {
		log.Attempts = []int64{}
	}

	_, err = tx.Exec(ctx, `
		UPDATE password_reset_attempts
		SET email = $2, attempts = $3, last_attempt = $4, updated_at = NOW() AT TIME ZONE 'UTC'
		WHERE identity_key = $1
	`, key, log.Email, log.Attempts, log.LastAttempt)
	if err != nil {
		return fmt.Errorf("update row: %w", err)
	}

	return tx.Commit(ctx)
}
