package emailverification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is the verification state of one identity. Times are Unix
// milliseconds.
type Record struct {
	Email          string `json:"email"`
	Verified       bool   `json:"verified"`
	VerifiedAt     int64  `json:"timestamp"`
	CodeHash       string `json:"codeHash,omitempty"`
	IssuedAt       int64  `json:"issuedAt"`
	FailedAttempts int    `json:"failedAttempts"`
}

// VerifiedTime returns VerifiedAt as a time.
func (r Record) VerifiedTime() time.Time {
	return time.UnixMilli(r.VerifiedAt).UTC()
}

// UpdateAction tells Update what to do with the record after fn ran.
type UpdateAction int

const (
	SaveRecord UpdateAction = iota
	DeleteRecord
	LeaveRecord
)

// EmailVerificationRepository defines the storage operations for verification records
type EmailVerificationRepository interface {
	// Get returns ErrNotFound when key has no record.
	Get(ctx context.Context, key string) (*Record, error)
	// Put creates or replaces the record for key.
	Put(ctx context.Context, key string, rec Record) error
	// Update applies fn to the existing record atomically and then saves,
	// deletes or leaves it. It returns ErrNotFound when key has no record and
	// fn's error without writing when fn fails.
	Update(ctx context.Context, key string, fn func(rec *Record) (UpdateAction, error)) error
	// Delete removes the record; deleting a missing record is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteStale removes verified records verified before verifiedBefore and
	// pending records issued before issuedBefore.
	DeleteStale(ctx context.Context, verifiedBefore, issuedBefore int64) (int, error)
}

// Repository stores verification records in the verification_codes table
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new postgres verification repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectRecord = `
	SELECT email, verified, verified_at, code_hash, issued_at, failed_attempts
	FROM verification_codes
	WHERE identity_key = $1
`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.Email, &rec.Verified, &rec.VerifiedAt, &rec.CodeHash, &rec.IssuedAt, &rec.FailedAttempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) Get(ctx context.Context, key string) (*Record, error) {
	return scanRecord(r.db.QueryRow(ctx, selectRecord, key))
}

const upsertRecord = `
	INSERT INTO verification_codes (identity_key, email, verified, verified_at, code_hash, issued_at, failed_attempts)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (identity_key) DO UPDATE
	SET email = EXCLUDED.email,
	    verified = EXCLUDED.verified,
	    verified_at = EXCLUDED.verified_at,
	    code_hash = EXCLUDED.code_hash,
	    issued_at = EXCLUDED.issued_at,
	    failed_attempts = EXCLUDED.failed_attempts,
	    updated_at = NOW() AT TIME ZONE 'UTC'
`

func (r *Repository) Put(ctx context.Context, key string, rec Record) error {
	_, err := r.db.Exec(ctx, upsertRecord, key, rec.Email, rec.Verified, rec.VerifiedAt, rec.CodeHash, rec.IssuedAt, rec.FailedAttempts)
	return err
}

func (r *Repository) Update(ctx context.Context, key string, fn func(rec *Record) (UpdateAction, error)) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := scanRecord(tx.QueryRow(ctx, selectRecord+" FOR UPDATE", key))
	if err != nil {
		return err
	}

	action, err := fn(rec)
	if err != nil {
		return err
	}

	switch action {
	case SaveRecord:
		_, err = tx.Exec(ctx, upsertRecord, key, rec.Email, rec.Verified, rec.VerifiedAt, rec.CodeHash, rec.IssuedAt, rec.FailedAttempts)
	case DeleteRecord:
		_, err = tx.Exec(ctx, `DELETE FROM verification_codes WHERE identity_key = $1`, key)
	case LeaveRecord:
		return nil
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Delete(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE identity_key = $1`, key)
	return err
}

func (r *Repository) DeleteStale(ctx context.Context, verifiedBefore, issuedBefore int64) (int, error) {
	query := `
		DELETE FROM verification_codes
		WHERE (verified AND verified_at < $1)
		OR (NOT verified AND issued_at < $2)
	`

	tag, err := r.db.Exec(ctx, query, verifiedBefore, issuedBefore)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
