package emailverification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eduverse/accountd/pkg/identitykey"
	"github.com/eduverse/accountd/pkg/notification"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	service  *EmailVerificationService
	repo     *InMemoryEmailVerificationRepository
	notifier *notification.MockNotifier
	clock    *clockwork.FakeClock
	key      string
}

func newFixture(t *testing.T, opts ...EmailVerificationServiceOption) *fixture {
	t.Helper()
	notifier := &notification.MockNotifier{}
	manager, err := notification.NewNotificationManager(notifier, notification.WithDefaultTemplates())
	require.NoError(t, err)

	f := &fixture{
		repo:     NewInMemoryEmailVerificationRepository(),
		notifier: notifier,
		clock:    clockwork.NewFakeClockAt(t0),
		key:      identitykey.Key("user@x.com"),
	}
	opts = append([]EmailVerificationServiceOption{
		WithClock(f.clock),
		WithCodeGenerator(func() (string, error) { return "123456", nil }),
	}, opts...)
	f.service = NewEmailVerificationService(f.repo, manager, opts...)
	return f
}

func (f *fixture) verified(t *testing.T, at time.Time) {
	t.Helper()
	require.NoError(t, f.repo.Put(context.Background(), f.key, Record{
		Email:      "user@x.com",
		Verified:   true,
		VerifiedAt: at.UnixMilli(),
	}))
}

func TestConsumeIfValid(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		status, err := f.service.ConsumeIfValid(ctx, f.key, t0)
		require.NoError(t, err)
		assert.Equal(t, StatusNotFound, status)
	})

	t.Run("pending is left intact", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.repo.Put(ctx, f.key, Record{Email: "user@x.com", IssuedAt: t0.UnixMilli()}))
		status, err := f.service.ConsumeIfValid(ctx, f.key, t0)
		require.NoError(t, err)
		assert.Equal(t, StatusNotVerified, status)
		_, err = f.repo.Get(ctx, f.key)
		assert.NoError(t, err)
	})

	t.Run("verified sixteen minutes ago is expired and deleted", func(t *testing.T) {
		f := newFixture(t)
		f.verified(t, t0.Add(-16*time.Minute))
		status, err := f.service.ConsumeIfValid(ctx, f.key, t0)
		require.NoError(t, err)
		assert.Equal(t, StatusExpired, status)
		_, err = f.repo.Get(ctx, f.key)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("verified exactly at the ttl is still valid", func(t *testing.T) {
		f := newFixture(t)
		f.verified(t, t0.Add(-15*time.Minute))
		status, err := f.service.ConsumeIfValid(ctx, f.key, t0)
		require.NoError(t, err)
		assert.Equal(t, StatusValid, status)
	})

	t.Run("valid record is not consumed", func(t *testing.T) {
		f := newFixture(t)
		f.verified(t, t0.Add(-5*time.Minute))
		status, err := f.service.ConsumeIfValid(ctx, f.key, t0)
		require.NoError(t, err)
		assert.Equal(t, StatusValid, status)
		rec, err := f.service.Load(ctx, f.key)
		require.NoError(t, err)
		assert.True(t, rec.Verified)
	})
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.verified(t, t0)

	require.NoError(t, f.service.Clear(ctx, f.key))
	require.NoError(t, f.service.Clear(ctx, f.key))
	_, err := f.service.Load(ctx, f.key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendCode(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a pending record and emails the code", func(t *testing.T) {
		f := newFixture(t)
		result, err := f.service.SendCode(ctx, "  User@X.com ", "Jane")
		require.NoError(t, err)
		assert.Equal(t, "user@x.com", result.Email)
		assert.Equal(t, t0.Add(DefaultCodeTTL), result.ExpiresAt)

		rec, err := f.repo.Get(ctx, f.key)
		require.NoError(t, err)
		assert.False(t, rec.Verified)
		assert.Equal(t, t0.UnixMilli(), rec.IssuedAt)
		assert.Equal(t, hashCode("123456"), rec.CodeHash)
		assert.NotContains(t, rec.CodeHash, "123456")

		sent := f.notifier.Delivered()
		require.Len(t, sent, 1)
		assert.Equal(t, "user@x.com", sent[0].To)
		assert.Contains(t, sent[0].Text, "123456")
		assert.Contains(t, sent[0].Text, "Hello, Jane!")
		assert.Contains(t, sent[0].Text, "10 minutes")
	})

	t.Run("cooldown", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.SendCode(ctx, "user@x.com", "")
		require.NoError(t, err)

		f.clock.Advance(30 * time.Second)
		_, err = f.service.SendCode(ctx, "user@x.com", "")
		assert.ErrorIs(t, err, ErrRateLimitExceeded)

		f.clock.Advance(30 * time.Second)
		_, err = f.service.SendCode(ctx, "user@x.com", "")
		assert.NoError(t, err)
		assert.Len(t, f.notifier.Delivered(), 2)
	})

	t.Run("already verified", func(t *testing.T) {
		f := newFixture(t)
		f.verified(t, t0.Add(-time.Minute))
		_, err := f.service.SendCode(ctx, "user@x.com", "")
		assert.ErrorIs(t, err, ErrAlreadyVerified)

		f.clock.Advance(15 * time.Minute)
		_, err = f.service.SendCode(ctx, "user@x.com", "")
		assert.NoError(t, err)
	})

	t.Run("delivery failure removes the record", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.Err = errors.New("smtp down")
		_, err := f.service.SendCode(ctx, "user@x.com", "")
		assert.ErrorIs(t, err, ErrDeliveryFailed)
		_, err = f.repo.Get(ctx, f.key)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid email", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.SendCode(ctx, "not-an-email", "")
		assert.ErrorIs(t, err, identitykey.ErrInvalidEmail)
	})
}

func TestConfirmCode(t *testing.T) {
	ctx := context.Background()

	t.Run("no code requested", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.service.ConfirmCode(ctx, "user@x.com", "123456"), ErrNotFound)
	})

	t.Run("correct code verifies", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.SendCode(ctx, "user@x.com", "")
		require.NoError(t, err)
		f.clock.Advance(2 * time.Minute)

		require.NoError(t, f.service.ConfirmCode(ctx, "USER@x.com", "123456"))
		rec, err := f.repo.Get(ctx, f.key)
		require.NoError(t, err)
		assert.True(t, rec.Verified)
		assert.Equal(t, t0.Add(2*time.Minute).UnixMilli(), rec.VerifiedAt)
		assert.Empty(t, rec.CodeHash)

		status, err := f.service.ConsumeIfValid(ctx, f.key, f.clock.Now())
		require.NoError(t, err)
		assert.Equal(t, StatusValid, status)

		assert.ErrorIs(t, f.service.ConfirmCode(ctx, "user@x.com", "123456"), ErrAlreadyVerified)
	})

	t.Run("expired code is deleted", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.SendCode(ctx, "user@x.com", "")
		require.NoError(t, err)
		f.clock.Advance(11 * time.Minute)

		assert.ErrorIs(t, f.service.ConfirmCode(ctx, "user@x.com", "123456"), ErrCodeExpired)
		_, err = f.repo.Get(ctx, f.key)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("wrong codes count and eventually discard", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.SendCode(ctx, "user@x.com", "")
		require.NoError(t, err)

		for i := 1; i < DefaultMaxCodeAttempts; i++ {
			assert.ErrorIs(t, f.service.ConfirmCode(ctx, "user@x.com", "000000"), ErrCodeMismatch)
			rec, err := f.repo.Get(ctx, f.key)
			require.NoError(t, err)
			assert.Equal(t, i, rec.FailedAttempts)
		}
		assert.ErrorIs(t, f.service.ConfirmCode(ctx, "user@x.com", "000000"), ErrTooManyAttempts)
		assert.ErrorIs(t, f.service.ConfirmCode(ctx, "user@x.com", "123456"), ErrNotFound)
	})
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	put := func(key string, rec Record) {
		require.NoError(t, f.repo.Put(ctx, key, rec))
	}
	put("fresh-verified", Record{Verified: true, VerifiedAt: t0.Add(-10 * time.Minute).UnixMilli()})
	put("stale-verified", Record{Verified: true, VerifiedAt: t0.Add(-20 * time.Minute).UnixMilli()})
	put("fresh-pending", Record{IssuedAt: t0.Add(-5 * time.Minute).UnixMilli()})
	put("stale-pending", Record{IssuedAt: t0.Add(-11 * time.Minute).UnixMilli()})

	removed, err := f.service.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	for _, key := range []string{"fresh-verified", "fresh-pending"} {
		_, err := f.repo.Get(ctx, key)
		assert.NoError(t, err, key)
	}
	for _, key := range []string{"stale-verified", "stale-pending"} {
		_, err := f.repo.Get(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound, key)
	}
}

func TestRunCleanup(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.verified(t, t0.Add(-time.Minute))

	done := make(chan struct{})
	go func() {
		f.service.RunCleanup(ctx, 5*time.Minute)
		close(done)
	}()

	waitCtx, waitCancel := context.WithTimeout(ctx, time.Second)
	defer waitCancel()
	require.NoError(t, f.clock.BlockUntilContext(waitCtx, 1))

	f.clock.Advance(20 * time.Minute)
	assert.Eventually(t, func() bool {
		_, err := f.repo.Get(context.Background(), f.key)
		return errors.Is(err, ErrNotFound)
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}
