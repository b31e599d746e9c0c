package credential

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned when no account has the email or uid
	ErrAccountNotFound = errors.New("account not found")

	// ErrWeakPassword wraps every password policy violation
	ErrWeakPassword = errors.New("password does not meet the password policy")
)

// Account is the public view of an account.
type Account struct {
	UID         uuid.UUID
	Email       string
	DisplayName string
}

// Service is what the password reset workflow needs from the credential store.
type Service interface {
	LookupByEmail(ctx context.Context, email string) (*Account, error)
	UpdatePassword(ctx context.Context, uid uuid.UUID, newPassword string) error
}
