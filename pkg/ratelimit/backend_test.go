package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/eduverse/accountd/pkg/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresAttemptRepository(t *testing.T) {
	pool := storetest.Postgres(t)
	testAttemptRepository(t, NewPostgresAttemptRepository(pool))
}

func TestRedisAttemptRepository(t *testing.T) {
	client := storetest.Redis(t)
	repo := NewRedisAttemptRepository(client, time.Hour)
	testAttemptRepository(t, repo)

	ttl, err := client.TTL(context.Background(), redisKeyPrefix+"concurrent").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}
