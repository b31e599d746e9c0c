package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

const (
	DefaultWindow      = 7 * 24 * time.Hour
	DefaultMaxAttempts = 2
)

// AttemptLog is the persisted history of completed password resets for one
// identity. Attempts are Unix milliseconds.
type AttemptLog struct {
	Email       string  `json:"email"`
	Attempts    []int64 `json:"attempts"`
	LastAttempt int64   `json:"lastAttempt"`
}

// Active returns the attempts younger than window at now, oldest first.
func (l *AttemptLog) Active(now time.Time, window time.Duration) []int64 {
	if l == nil {
		return nil
	}
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()
	active := make([]int64, 0, len(l.Attempts))
	for _, ts := range l.Attempts {
		if nowMs-ts < windowMs {
			active = append(active, ts)
		}
	}
	slices.Sort(active)
	return active
}

// Decision is the outcome of a Check.
type Decision struct {
	Allowed        bool
	Active         int
	RetryAt        time.Time
	RetryAfter     time.Duration
	RetryAfterDays int
}

// ResetLimiter enforces at most MaxAttempts completed resets per identity in
// any rolling Window.
type ResetLimiter struct {
	repo        AttemptRepository
	window      time.Duration
	maxAttempts int
}

type ResetLimiterOption func(*ResetLimiter)

func WithWindow(window time.Duration) ResetLimiterOption {
	return func(l *ResetLimiter) {
		if window > 0 {
			l.window = window
		}
	}
}

func WithMaxAttempts(n int) ResetLimiterOption {
	return func(l *ResetLimiter) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

func NewResetLimiter(repo AttemptRepository, opts ...ResetLimiterOption) *ResetLimiter {
	l := &ResetLimiter{
		repo:        repo,
		window:      DefaultWindow,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *ResetLimiter) Window() time.Duration { return l.window }

// Check reports whether key may reset again at now. It never writes.
func (l *ResetLimiter) Check(ctx context.Context, key string, now time.Time) (Decision, error) {
	log, err := l.repo.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Decision{}, fmt.Errorf("load attempts: %w", err)
	}

	active := log.Active(now, l.window)
	if len(active) < l.maxAttempts {
		return Decision{Allowed: true, Active: len(active)}, nil
	}

	// The oldest attempt whose expiry brings the count under the limit.
	pivot := active[len(active)-l.maxAttempts]
	retryAt := time.UnixMilli(pivot).UTC().Add(l.window)
	retryAfter := retryAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{
		Allowed:        false,
		Active:         len(active),
		RetryAt:        retryAt,
		RetryAfter:     retryAfter,
		RetryAfterDays: int(math.Ceil(float64(retryAfter) / float64(24*time.Hour))),
	}, nil
}

// Record appends now to key's log, pruning expired entries in the same write.
// Recording a timestamp that is already present changes nothing.
func (l *ResetLimiter) Record(ctx context.Context, key, email string, now time.Time) error {
	nowMs := now.UnixMilli()
	err := l.repo.Update(ctx, key, func(log *AttemptLog) error {
		active := log.Active(now, l.window)
		if !slices.Contains(active, nowMs) {
			active = append(active, nowMs)
		}
		log.Attempts = active
		log.Email = email
		if nowMs > log.LastAttempt {
			log.LastAttempt = nowMs
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}
