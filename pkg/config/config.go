package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
)

// StoreConfig selects the persistence backends.
type StoreConfig struct {
	// Persistence backs verification records and accounts.
	Persistence string `env:"ACCOUNTD_PERSISTENCE" env-default:"memory"`
	// RateLimitBackend backs the reset attempt log.
	RateLimitBackend string `env:"ACCOUNTD_RATELIMIT_BACKEND" env-default:"memory"`
	DataDir          string `env:"ACCOUNTD_DATA_DIR" env-default:"./data"`
	Migrate          bool   `env:"ACCOUNTD_MIGRATE" env-default:"true"`
}

// RedisConfig configures the redis client used by the redis attempt backend.
type RedisConfig struct {
	Addrs      []string `env:"ACCOUNTD_REDIS_ADDRS" env-separator:"," env-default:"localhost:6379"`
	Password   string   `env:"ACCOUNTD_REDIS_PASSWORD"`
	DB         int      `env:"ACCOUNTD_REDIS_DB" env-default:"0"`
	MasterName string   `env:"ACCOUNTD_REDIS_MASTER_NAME"`
}

type ResetConfig struct {
	Window          time.Duration `env:"RESET_WINDOW" env-default:"168h"`
	MaxAttempts     int           `env:"RESET_MAX_ATTEMPTS" env-default:"2"`
	UpstreamTimeout time.Duration `env:"RESET_UPSTREAM_TIMEOUT" env-default:"5s"`
}

type VerificationConfig struct {
	TTL             time.Duration `env:"VERIFICATION_TTL" env-default:"15m"`
	CodeTTL         time.Duration `env:"VERIFICATION_CODE_TTL" env-default:"10m"`
	ResendCooldown  time.Duration `env:"VERIFICATION_RESEND_COOLDOWN" env-default:"60s"`
	MaxCodeAttempts int           `env:"VERIFICATION_MAX_CODE_ATTEMPTS" env-default:"5"`
	CleanupInterval time.Duration `env:"VERIFICATION_CLEANUP_INTERVAL" env-default:"5m"`
}

// OutboxConfig tunes detached notification delivery.
type OutboxConfig struct {
	Workers      int           `env:"OUTBOX_WORKERS" env-default:"2"`
	QueueSize    int           `env:"OUTBOX_QUEUE_SIZE" env-default:"256"`
	MaxRetries   uint64        `env:"OUTBOX_MAX_RETRIES" env-default:"5"`
	RetryBackoff time.Duration `env:"OUTBOX_RETRY_BACKOFF" env-default:"1s"`
	SendTimeout  time.Duration `env:"OUTBOX_SEND_TIMEOUT" env-default:"30s"`
}

type Config struct {
	AppConfig          app.AppConfig
	Database           DatabaseConfig
	Store              StoreConfig
	Redis              RedisConfig
	Email              EmailConfig
	Reset              ResetConfig
	Verification       VerificationConfig
	Outbox             OutboxConfig
	PasswordComplexity PasswordComplexityConfig
	HTTPRateLimit      HTTPRateLimitConfig
	LogLevel           string `env:"ACCOUNTD_LOG_LEVEL" env-default:"info"`
}

// Load reads .env (when present) and then the environment into a Config.
func Load() (Config, error) {
	loadEnvFile(".env")

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

func loadEnvFile(path string) {
	err := godotenv.Load(path)
	switch {
	case err == nil:
		slog.Info("Configuration loaded from .env file", "path", path)
	case errors.Is(err, fs.ErrNotExist):
	default:
		slog.Error("Failed to load .env file", "path", path, "err", err)
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
