package passwordreset

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eduverse/accountd/pkg/credential"
	"github.com/eduverse/accountd/pkg/emailverification"
	"github.com/eduverse/accountd/pkg/errors"
	"github.com/eduverse/accountd/pkg/identitykey"
	"github.com/eduverse/accountd/pkg/metrics"
	"github.com/eduverse/accountd/pkg/notification"
	"github.com/eduverse/accountd/pkg/ratelimit"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultUpstreamTimeout = 5 * time.Second
	MinPasswordLength      = 8
)

// State is a step of the reset workflow.
type State string

const (
	StateStart               State = "start"
	StateRateChecked         State = "rate_checked"
	StateVerificationChecked State = "verification_checked"
	StateCredentialResolved  State = "credential_resolved"
	StatePasswordUpdated     State = "password_updated"
	StateRateRecorded        State = "rate_recorded"
	StateVerificationCleared State = "verification_cleared"
	StateNotifySent          State = "notify_sent"
	StateDone                State = "done"
	StateRejected            State = "rejected"
	StatePartialSuccess      State = "partial_success"
)

// Post-commit steps, as reported in Result.FailedSteps and metrics.
const (
	StepRecordAttempt     = "record_attempt"
	StepClearVerification = "clear_verification"
	StepNotify            = "notify"
)

// Request is the input of ResetPassword.
type Request struct {
	Email       string
	NewPassword string
}

// Result describes a reset that passed the commit point.
type Result struct {
	State       State // StateDone or StatePartialSuccess
	Email       string
	UID         string
	CompletedAt time.Time
	FailedSteps []string
}

// AttemptLimiter throttles completed resets per identity.
type AttemptLimiter interface {
	Check(ctx context.Context, key string, now time.Time) (ratelimit.Decision, error)
	Record(ctx context.Context, key, email string, now time.Time) error
}

// VerificationGate answers whether an identity holds a usable verification.
type VerificationGate interface {
	ConsumeIfValid(ctx context.Context, key string, now time.Time) (emailverification.Status, error)
	Clear(ctx context.Context, key string) error
}

// NoticeQueue accepts notices for detached delivery.
type NoticeQueue interface {
	Enqueue(noticeType notification.NoticeType, data notification.NotificationData) (string, error)
}

// Service runs password resets.
type Service struct {
	limiter         AttemptLimiter
	verifier        VerificationGate
	accounts        credential.Service
	notices         NoticeQueue
	clock           clockwork.Clock
	metrics         *metrics.Metrics
	upstreamTimeout time.Duration
}

type Option func(*Service)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithOutbox sets where password-changed notices go. Without one no notice
// is sent.
func WithOutbox(q NoticeQueue) Option {
	return func(s *Service) {
		s.notices = q
	}
}

// WithUpstreamTimeout bounds each call to the credential service.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.upstreamTimeout = d
		}
	}
}

func NewService(limiter AttemptLimiter, verifier VerificationGate, accounts credential.Service, opts ...Option) *Service {
	s := &Service{
		limiter:         limiter,
		verifier:        verifier,
		accounts:        accounts,
		clock:           clockwork.NewRealClock(),
		upstreamTimeout: DefaultUpstreamTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResetPassword sets a new password for req.Email. Every returned error is an
// *errors.Error carrying the rejection code.
func (s *Service) ResetPassword(ctx context.Context, req Request) (*Result, error) {
	if !strings.Contains(req.Email, "@") {
		return nil, s.reject("", errors.InvalidInput("email", "must contain @"))
	}
	if utf8.RuneCountInString(req.NewPassword) < MinPasswordLength {
		return nil, s.reject("", errors.InvalidInput("newPassword", fmt.Sprintf("must be at least %d characters", MinPasswordLength)))
	}
	identity, err := identitykey.New(req.Email)
	if err != nil {
		return nil, s.reject("", errors.InvalidInput("email", "must contain @"))
	}
	key := identity.Key
	now := s.clock.Now().UTC()
	s.trace(key, StateStart)

	decision, err := s.limiter.Check(ctx, key, now)
	if err != nil {
		slog.Error("Failed to check reset attempts", "key", key, "err", err)
		return nil, s.reject(key, errors.Internal(err, "Failed to check password reset limit"))
	}
	if !decision.Allowed {
		slog.Warn("Password reset rate limited", "key", key, "active", decision.Active, "retry_at", decision.RetryAt)
		return nil, s.reject(key, rateLimitedError(decision))
	}
	s.trace(key, StateRateChecked)

	status, err := s.verifier.ConsumeIfValid(ctx, key, now)
	if err != nil {
		slog.Error("Failed to check verification", "key", key, "err", err)
		return nil, s.reject(key, errors.Internal(err, "Failed to check email verification"))
	}
	switch status {
	case emailverification.StatusNotFound:
		return nil, s.reject(key, errors.New(errors.ErrCodeVerificationMissing, "Email verification required before resetting password"))
	case emailverification.StatusNotVerified:
		return nil, s.reject(key, errors.New(errors.ErrCodeVerificationNotCompleted, "Email verification not completed"))
	case emailverification.StatusExpired:
		return nil, s.reject(key, errors.New(errors.ErrCodeVerificationExpired, "Email verification expired, please verify again"))
	}
	s.trace(key, StateVerificationChecked)

	account, err := s.lookup(ctx, identity.Email)
	if err != nil {
		return nil, s.reject(key, upstreamError(err, "lookup account"))
	}
	s.trace(key, StateCredentialResolved)

	if err := s.updatePassword(ctx, account, req.NewPassword); err != nil {
		return nil, s.reject(key, upstreamError(err, "update password"))
	}
	s.trace(key, StatePasswordUpdated)
	slog.Info("Password reset committed", "key", key, "uid", account.UID)

	// The password is changed; the rest must run even if the client is gone.
	result := s.Complete(context.WithoutCancel(ctx), identity, account.DisplayName, now)
	result.UID = account.UID.String()
	return result, nil
}

func (s *Service) lookup(ctx context.Context, email string) (*credential.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()
	return s.accounts.LookupByEmail(ctx, email)
}

func (s *Service) updatePassword(ctx context.Context, account *credential.Account, newPassword string) error {
	ctx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()
	return s.accounts.UpdatePassword(ctx, account.UID, newPassword)
}

// Complete does the bookkeeping after a committed reset. Each step runs even
// if an earlier one fails, and repeating Complete for the same identity and
// time records the attempt once and leaves the verification deleted.
func (s *Service) Complete(ctx context.Context, identity identitykey.Identity, displayName string, now time.Time) *Result {
	key := identity.Key
	nowMs := now.UnixMilli()
	result := &Result{
		State:       StateDone,
		Email:       identity.Email,
		CompletedAt: now,
	}
	fail := func(step string, err error) {
		slog.Error("Password reset cleanup step failed", "key", key, "step", step, "err", err)
		s.metrics.CleanupFailure(step)
		result.FailedSteps = append(result.FailedSteps, step)
	}

	if err := s.limiter.Record(ctx, key, identity.Email, now); err != nil {
		fail(StepRecordAttempt, err)
	} else {
		s.trace(key, StateRateRecorded)
	}

	if err := s.verifier.Clear(ctx, key); err != nil {
		fail(StepClearVerification, err)
	} else {
		s.trace(key, StateVerificationCleared)
	}

	if s.notices != nil {
		_, err := s.notices.Enqueue(notification.PasswordChangedNotice, notification.NotificationData{
			To:   identity.Email,
			Name: displayName,
			Data: map[string]string{
				"ChangedAt": now.UTC().Format(time.RFC1123),
				"Email":     identity.Email,
			},
			IdempotencyKey: key + ":" + strconv.FormatInt(nowMs, 10),
		})
		if err != nil {
			fail(StepNotify, err)
		} else {
			s.trace(key, StateNotifySent)
		}
	}

	if len(result.FailedSteps) > 0 {
		result.State = StatePartialSuccess
		slog.Warn("Password reset completed with cleanup failures", "key", key, "failed_steps", result.FailedSteps)
	}
	s.metrics.ResetOutcome(string(result.State))
	return result
}

func (s *Service) trace(key string, state State) {
	slog.Debug("Reset state", "key", key, "state", state)
}

func (s *Service) reject(key string, err *errors.Error) *errors.Error {
	slog.Info("Password reset rejected", "key", key, "code", err.Code)
	s.metrics.ResetOutcome(strings.ToLower(string(err.Code)))
	return err
}

func rateLimitedError(d ratelimit.Decision) *errors.Error {
	return errors.Newf(errors.ErrCodeRateLimited,
		"Password reset limit reached. You can reset your password again in %d day(s).", d.RetryAfterDays).
		WithDetail("rateLimitExceeded", true).
		WithDetail("resetAvailableAt", d.RetryAt.UTC().Format(time.RFC3339)).
		WithDetail("retryAfterDays", d.RetryAfterDays)
}

// upstreamError maps a credential service failure to its rejection.
func upstreamError(err error, op string) *errors.Error {
	switch {
	case stderrors.Is(err, credential.ErrAccountNotFound):
		return errors.Wrap(err, errors.ErrCodeAccountNotFound, "No account found with this email address")
	case stderrors.Is(err, credential.ErrWeakPassword):
		return errors.Wrap(err, errors.ErrCodeWeakPassword, weakPasswordMessage(err))
	case stderrors.Is(err, context.DeadlineExceeded):
		slog.Error("Credential service timed out", "op", op, "err", err)
		return errors.Wrap(err, errors.ErrCodeUpstreamTimeout, "The account service did not respond in time")
	default:
		slog.Error("Credential service failed", "op", op, "err", err)
		return errors.Wrap(err, errors.ErrCodeUpstream, "Failed to update password")
	}
}

func weakPasswordMessage(err error) string {
	reason := strings.TrimPrefix(err.Error(), credential.ErrWeakPassword.Error()+": ")
	if reason == "" || reason == err.Error() {
		return "Password does not meet the password policy"
	}
	return "Password does not meet the password policy: " + reason
}
