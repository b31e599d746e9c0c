package ratelimit

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig contains configuration for creating an attempt repository
type RepositoryConfig struct {
	// Pool is required for PostgreSQL repositories
	Pool *pgxpool.Pool
	// DataDir is required for file-based repositories
	DataDir string
	// Redis is required for redis repositories
	Redis redis.UniversalClient
	// TTL is the redis key expiry, normally the rate window
	TTL time.Duration
}

// NewAttemptRepository creates an attempt repository for the given backend.
func NewAttemptRepository(backend string, config RepositoryConfig) (AttemptRepository, error) {
	switch backend {
	case "memory", "":
		return NewInMemoryAttemptRepository(), nil
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresAttemptRepository(config.Pool), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileAttemptRepository(config.DataDir)
	case "redis":
		if config.Redis == nil {
			return nil, fmt.Errorf("redis client required for redis repository")
		}
		return NewRedisAttemptRepository(config.Redis, config.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s (supported: memory, file, postgres, redis)", backend)
	}
}
