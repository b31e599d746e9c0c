package credential

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eduverse/accountd/pkg/store/storetest"
)

func newTestService(repo AccountRepository, clock clockwork.Clock) *LocalService {
	return NewLocalService(repo,
		WithHasher(BcryptHasher{Cost: bcrypt.MinCost}),
		WithClock(clock),
	)
}

func TestLocalServiceResetFlow(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(NewInMemoryAccountRepository(), clock)

	created, err := svc.CreateAccount(ctx, " User@X.com ", "User", "Initial1pw")
	require.NoError(t, err)
	assert.Equal(t, "user@x.com", created.Email)

	found, err := svc.LookupByEmail(ctx, "USER@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.UID, found.UID)

	require.NoError(t, svc.UpdatePassword(ctx, found.UID, "Brand9NewPw"))

	ok, err := svc.VerifyPassword(ctx, "user@x.com", "Brand9NewPw")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyPassword(ctx, "user@x.com", "Initial1pw")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalServiceErrors(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryAccountRepository()
	svc := newTestService(repo, clockwork.NewFakeClock())

	_, err := svc.LookupByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	err = svc.UpdatePassword(ctx, uuid.New(), "Valid1Password")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	acct, err := svc.CreateAccount(ctx, "a@x.com", "A", "Valid1Password")
	require.NoError(t, err)

	err = svc.UpdatePassword(ctx, acct.UID, "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	rec, err := repo.FindByUID(ctx, acct.UID)
	require.NoError(t, err)
	ok, err := BcryptHasher{}.Verify("Valid1Password", rec.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok, "weak password must not replace the stored hash")

	_, err = svc.CreateAccount(ctx, "A@x.com", "Dup", "Valid1Password")
	assert.Error(t, err)
}

func TestLocalServiceCanceledContext(t *testing.T) {
	repo := NewInMemoryAccountRepository()
	svc := newTestService(repo, clockwork.NewFakeClock())
	acct, err := svc.CreateAccount(context.Background(), "c@x.com", "C", "Valid1Password")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = svc.UpdatePassword(ctx, acct.UID, "Another1Password")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostgresAccountRepository(t *testing.T) {
	pool := storetest.Postgres(t)
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewPostgresAccountRepository(pool)
	svc := newTestService(repo, clock)

	acct, err := svc.CreateAccount(ctx, "pg@x.com", "Pg", "Valid1Password")
	require.NoError(t, err)

	found, err := svc.LookupByEmail(ctx, "PG@X.COM")
	require.NoError(t, err)
	assert.Equal(t, acct.UID, found.UID)

	clock.Advance(time.Hour)
	require.NoError(t, svc.UpdatePassword(ctx, acct.UID, "Updated1Password"))

	rec, err := repo.FindByUID(ctx, acct.UID)
	require.NoError(t, err)
	require.NotNil(t, rec.PasswordUpdatedAt)
	assert.True(t, rec.PasswordUpdatedAt.Equal(clock.Now()))

	err = repo.UpdatePasswordHash(ctx, uuid.New(), "x", clock.Now())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
