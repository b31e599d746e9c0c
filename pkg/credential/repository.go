package credential

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRecord is an account as stored.
type AccountRecord struct {
	UID               uuid.UUID
	Email             string
	DisplayName       string
	PasswordHash      string
	PasswordUpdatedAt *time.Time
}

// AccountRepository stores account records.
type AccountRepository interface {
	// FindByEmail matches emails case-insensitively.
	FindByEmail(ctx context.Context, email string) (*AccountRecord, error)
	FindByUID(ctx context.Context, uid uuid.UUID) (*AccountRecord, error)
	Create(ctx context.Context, rec AccountRecord) error
	// UpdatePasswordHash returns ErrAccountNotFound for unknown uids.
	UpdatePasswordHash(ctx context.Context, uid uuid.UUID, hash string, at time.Time) error
}

// PostgresAccountRepository reads and writes the accounts table.
type PostgresAccountRepository struct {
	db *pgxpool.Pool
}

func NewPostgresAccountRepository(db *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const selectAccount = `
	SELECT uid, email, display_name, password_hash, password_updated_at
	FROM accounts
`

func scanAccount(row pgx.Row) (*AccountRecord, error) {
	var rec AccountRecord
	err := row.Scan(&rec.UID, &rec.Email, &rec.DisplayName, &rec.PasswordHash, &rec.PasswordUpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresAccountRepository) FindByEmail(ctx context.Context, email string) (*AccountRecord, error) {
	return scanAccount(r.db.QueryRow(ctx, selectAccount+" WHERE lower(email) = lower($1)", email))
}

func (r *PostgresAccountRepository) FindByUID(ctx context.Context, uid uuid.UUID) (*AccountRecord, error) {
	return scanAccount(r.db.QueryRow(ctx, selectAccount+" WHERE uid = $1", uid))
}

func (r *PostgresAccountRepository) Create(ctx context.Context, rec AccountRecord) error {
	query := `
		INSERT INTO accounts (uid, email, display_name, password_hash, password_updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, rec.UID, rec.Email, rec.DisplayName, rec.PasswordHash, rec.PasswordUpdatedAt)
	return err
}

func (r *PostgresAccountRepository) UpdatePasswordHash(ctx context.Context, uid uuid.UUID, hash string, at time.Time) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, password_updated_at = $3
		WHERE uid = $1
	`
	tag, err := r.db.Exec(ctx, query, uid, hash, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
