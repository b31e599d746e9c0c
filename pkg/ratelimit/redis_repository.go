package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "password_reset_attempts:"

// RedisAttemptRepository stores each log as a JSON string that expires one
// window after the last write.
type RedisAttemptRepository struct {
	client     redis.UniversalClient
	ttl        time.Duration
	maxRetries int
}

func NewRedisAttemptRepository(client redis.UniversalClient, ttl time.Duration) *RedisAttemptRepository {
	if ttl <= 0 {
		ttl = DefaultWindow
	}
	return &RedisAttemptRepository{client: client, ttl: ttl, maxRetries: 50}
}

func (r *RedisAttemptRepository) Get(ctx context.Context, key string) (*AttemptLog, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var log AttemptLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode attempt log: %w", err)
	}
	return &log, nil
}

// Update runs fn inside WATCH/MULTI and retries when another client wrote
// the key in between.
func (r *RedisAttemptRepository) Update(ctx context.Context, key string, fn func(log *AttemptLog) error) error {
	redisKey := redisKeyPrefix + key

	txf := func(tx *redis.Tx) error {
		var log AttemptLog
		data, err := tx.Get(ctx, redisKey).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, &log); err != nil {
				return fmt.Errorf("decode attempt log: %w", err)
			}
		}

		if err := fn(&log); err != nil {
			return err
		}

		encoded, err := json.Marshal(log)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, encoded, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < r.maxRetries; i++ {
		err := r.client.Watch(ctx, txf, redisKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: too much contention", key)
}
