package emailverification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/eduverse/accountd/pkg/identitykey"
	"github.com/eduverse/accountd/pkg/metrics"
	"github.com/eduverse/accountd/pkg/notification"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultVerificationTTL = 15 * time.Minute
	DefaultCodeTTL         = 10 * time.Minute
	DefaultResendCooldown  = 60 * time.Second
	DefaultMaxCodeAttempts = 5
)

// Status is the result of ConsumeIfValid.
type Status int

const (
	StatusValid Status = iota
	StatusNotFound
	StatusNotVerified
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusNotFound:
		return "not_found"
	case StatusNotVerified:
		return "not_verified"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// SendResult describes an issued code.
type SendResult struct {
	Email     string
	ExpiresAt time.Time
}

// EmailVerificationService handles email verification operations
type EmailVerificationService struct {
	repo                EmailVerificationRepository
	notificationManager *notification.NotificationManager
	clock               clockwork.Clock
	metrics             *metrics.Metrics
	generateCode        func() (string, error)
	verificationTTL     time.Duration
	codeTTL             time.Duration
	resendCooldown      time.Duration
	maxCodeAttempts     int
}

// EmailVerificationServiceOption defines configuration options
type EmailVerificationServiceOption func(*EmailVerificationService)

// WithVerificationTTL sets how long a confirmed email authorizes a reset
func WithVerificationTTL(ttl time.Duration) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.verificationTTL = ttl
	}
}

// WithCodeTTL sets how long an issued code can be confirmed
func WithCodeTTL(ttl time.Duration) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.codeTTL = ttl
	}
}

// WithResendCooldown sets the minimum time between two codes for one email
func WithResendCooldown(cooldown time.Duration) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.resendCooldown = cooldown
	}
}

// WithMaxCodeAttempts sets how many wrong codes discard the pending record
func WithMaxCodeAttempts(n int) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.maxCodeAttempts = n
	}
}

func WithClock(clock clockwork.Clock) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.clock = clock
	}
}

func WithMetrics(m *metrics.Metrics) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.metrics = m
	}
}

// WithCodeGenerator replaces the random 6-digit code source
func WithCodeGenerator(fn func() (string, error)) EmailVerificationServiceOption {
	return func(s *EmailVerificationService) {
		s.generateCode = fn
	}
}

// NewEmailVerificationService creates a new email verification service
func NewEmailVerificationService(
	repo EmailVerificationRepository,
	notificationManager *notification.NotificationManager,
	opts ...EmailVerificationServiceOption,
) *EmailVerificationService {
	service := &EmailVerificationService{
		repo:                repo,
		notificationManager: notificationManager,
		clock:               clockwork.NewRealClock(),
		generateCode:        generateCode,
		verificationTTL:     DefaultVerificationTTL,
		codeTTL:             DefaultCodeTTL,
		resendCooldown:      DefaultResendCooldown,
		maxCodeAttempts:     DefaultMaxCodeAttempts,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

func (s *EmailVerificationService) CodeTTL() time.Duration { return s.codeTTL }

// generateCode returns a uniformly random 6-digit code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Load returns the record stored for key
func (s *EmailVerificationService) Load(ctx context.Context, key string) (*Record, error) {
	return s.repo.Get(ctx, key)
}

// ConsumeIfValid reports whether key holds a verification usable at now.
// Expired records are deleted. A valid record is left in place for the caller
// to Clear once the reset has committed.
func (s *EmailVerificationService) ConsumeIfValid(ctx context.Context, key string, now time.Time) (Status, error) {
	rec, err := s.repo.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return StatusNotFound, nil
	}
	if err != nil {
		return StatusNotFound, fmt.Errorf("load verification: %w", err)
	}

	if !rec.Verified {
		return StatusNotVerified, nil
	}

	if now.UnixMilli()-rec.VerifiedAt > s.verificationTTL.Milliseconds() {
		if err := s.repo.Delete(ctx, key); err != nil {
			slog.Error("Failed to delete expired verification", "key", key, "err", err)
		}
		slog.Info("Verification expired", "key", key, "verified_at", rec.VerifiedTime())
		return StatusExpired, nil
	}

	return StatusValid, nil
}

// Clear deletes the record for key. Clearing a missing record succeeds.
func (s *EmailVerificationService) Clear(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear verification: %w", err)
	}
	return nil
}

// SendCode issues a new code for email and emails it. The pending record is
// removed again when the email cannot be sent.
func (s *EmailVerificationService) SendCode(ctx context.Context, email, name string) (*SendResult, error) {
	identity, err := identitykey.New(email)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	nowMs := now.UnixMilli()

	existing, err := s.repo.Get(ctx, identity.Key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load verification: %w", err)
	case existing.Verified && nowMs-existing.VerifiedAt <= s.verificationTTL.Milliseconds():
		s.metrics.CodeSent("already_verified")
		return nil, ErrAlreadyVerified
	case !existing.Verified && nowMs-existing.IssuedAt < s.resendCooldown.Milliseconds():
		slog.Warn("Verification code requested too soon", "key", identity.Key)
		s.metrics.CodeSent("rate_limited")
		return nil, ErrRateLimitExceeded
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, err
	}

	rec := Record{
		Email:    identity.Email,
		CodeHash: hashCode(code),
		IssuedAt: nowMs,
	}
	if err := s.repo.Put(ctx, identity.Key, rec); err != nil {
		slog.Error("Failed to store verification code", "key", identity.Key, "err", err)
		return nil, fmt.Errorf("store verification code: %w", err)
	}

	if err := s.sendCodeEmail(ctx, identity, name, code, nowMs); err != nil {
		slog.Error("Failed to send verification email", "key", identity.Key, "err", err)
		if delErr := s.repo.Delete(ctx, identity.Key); delErr != nil {
			slog.Error("Failed to remove undelivered verification code", "key", identity.Key, "err", delErr)
		}
		s.metrics.CodeSent("delivery_failed")
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.metrics.CodeSent("sent")
	slog.Info("Verification code sent", "key", identity.Key)
	return &SendResult{Email: identity.Email, ExpiresAt: now.Add(s.codeTTL)}, nil
}

func (s *EmailVerificationService) sendCodeEmail(ctx context.Context, identity identitykey.Identity, name, code string, issuedAt int64) error {
	if s.notificationManager == nil {
		return fmt.Errorf("notification manager not configured")
	}
	return s.notificationManager.Send(ctx, notification.VerificationCodeNotice, notification.NotificationData{
		To:   identity.Email,
		Name: name,
		Data: map[string]string{
			"Code":          code,
			"ExpiryMinutes": strconv.Itoa(int(s.codeTTL.Minutes())),
		},
		IdempotencyKey: identity.Key + ":" + strconv.FormatInt(issuedAt, 10),
	})
}

// ConfirmCode checks code against the pending record for email and marks
// the email verified when it matches.
func (s *EmailVerificationService) ConfirmCode(ctx context.Context, email, code string) error {
	identity, err := identitykey.New(email)
	if err != nil {
		return err
	}
	nowMs := s.clock.Now().UnixMilli()

	var outcome error
	err = s.repo.Update(ctx, identity.Key, func(rec *Record) (UpdateAction, error) {
		if rec.Verified {
			outcome = ErrAlreadyVerified
			return LeaveRecord, nil
		}
		if nowMs-rec.IssuedAt > s.codeTTL.Milliseconds() {
			outcome = ErrCodeExpired
			return DeleteRecord, nil
		}
		if subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(rec.CodeHash)) != 1 {
			rec.FailedAttempts++
			if rec.FailedAttempts >= s.maxCodeAttempts {
				outcome = ErrTooManyAttempts
				return DeleteRecord, nil
			}
			outcome = ErrCodeMismatch
			return SaveRecord, nil
		}

		rec.Verified = true
		rec.VerifiedAt = nowMs
		rec.CodeHash = ""
		rec.FailedAttempts = 0
		return SaveRecord, nil
	})
	if errors.Is(err, ErrNotFound) {
		s.metrics.CodeConfirmed("not_found")
		return ErrNotFound
	}
	if err != nil {
		slog.Error("Failed to confirm verification code", "key", identity.Key, "err", err)
		return fmt.Errorf("confirm code: %w", err)
	}
	if outcome != nil {
		slog.Info("Verification code rejected", "key", identity.Key, "reason", outcome)
		s.metrics.CodeConfirmed(confirmOutcome(outcome))
		return outcome
	}

	s.metrics.CodeConfirmed("verified")
	slog.Info("Email verified", "key", identity.Key)
	return nil
}

func confirmOutcome(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyVerified):
		return "already_verified"
	case errors.Is(err, ErrCodeExpired):
		return "expired"
	case errors.Is(err, ErrTooManyAttempts):
		return "too_many_attempts"
	default:
		return "mismatch"
	}
}

// CleanupExpired deletes verified records past the verification TTL and
// pending records past the code TTL.
func (s *EmailVerificationService) CleanupExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	removed, err := s.repo.DeleteStale(ctx,
		now.Add(-s.verificationTTL).UnixMilli(),
		now.Add(-s.codeTTL).UnixMilli(),
	)
	if err != nil {
		slog.Error("Failed to cleanup expired verifications", "err", err)
		return 0, fmt.Errorf("failed to cleanup expired verifications: %w", err)
	}
	if removed > 0 {
		slog.Info("Expired verifications cleaned up", "count", removed)
	}
	return removed, nil
}

// RunCleanup calls CleanupExpired every interval until ctx is done.
func (s *EmailVerificationService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.CleanupExpired(ctx)
		}
	}
}
