package credential

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// LocalService implements Service on top of an AccountRepository.
type LocalService struct {
	repo    AccountRepository
	checker PasswordPolicyChecker
	hasher  PasswordHasher
	clock   clockwork.Clock
}

type LocalServiceOption func(*LocalService)

func WithPolicyChecker(checker PasswordPolicyChecker) LocalServiceOption {
	return func(s *LocalService) {
		s.checker = checker
	}
}

func WithHasher(hasher PasswordHasher) LocalServiceOption {
	return func(s *LocalService) {
		s.hasher = hasher
	}
}

func WithClock(clock clockwork.Clock) LocalServiceOption {
	return func(s *LocalService) {
		s.clock = clock
	}
}

func NewLocalService(repo AccountRepository, opts ...LocalServiceOption) *LocalService {
	s := &LocalService{
		repo:    repo,
		checker: NewDefaultPasswordPolicyChecker(nil, nil),
		hasher:  BcryptHasher{},
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func toAccount(rec *AccountRecord) *Account {
	return &Account{UID: rec.UID, Email: rec.Email, DisplayName: rec.DisplayName}
}

func (s *LocalService) LookupByEmail(ctx context.Context, email string) (*Account, error) {
	rec, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	return toAccount(rec), nil
}

// UpdatePassword checks newPassword against the policy and stores its hash.
func (s *LocalService) UpdatePassword(ctx context.Context, uid uuid.UUID, newPassword string) error {
	if err := s.checker.CheckPasswordComplexity(newPassword); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, uid, hash, s.clock.Now().UTC()); err != nil {
		return err
	}

	slog.Info("Password updated", "uid", uid)
	return nil
}

// CreateAccount adds an account. The password must satisfy the policy.
func (s *LocalService) CreateAccount(ctx context.Context, email, displayName, password string) (*Account, error) {
	if err := s.checker.CheckPasswordComplexity(password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now().UTC()
	rec := AccountRecord{
		UID:               uuid.New(),
		Email:             strings.ToLower(strings.TrimSpace(email)),
		DisplayName:       displayName,
		PasswordHash:      hash,
		PasswordUpdatedAt: &now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return toAccount(&rec), nil
}

// VerifyPassword reports whether password matches the account's hash.
func (s *LocalService) VerifyPassword(ctx context.Context, email, password string) (bool, error) {
	rec, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return false, err
	}
	return s.hasher.Verify(password, rec.PasswordHash)
}
