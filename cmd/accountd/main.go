package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/eduverse/accountd/pkg/config"
	"github.com/eduverse/accountd/pkg/credential"
	"github.com/eduverse/accountd/pkg/emailverification"
	verificationapi "github.com/eduverse/accountd/pkg/emailverification/api"
	"github.com/eduverse/accountd/pkg/metrics"
	"github.com/eduverse/accountd/pkg/notification"
	"github.com/eduverse/accountd/pkg/passwordreset"
	resetapi "github.com/eduverse/accountd/pkg/passwordreset/api"
	"github.com/eduverse/accountd/pkg/ratelimit"
	"github.com/eduverse/accountd/pkg/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed loading configuration", "err", err)
		os.Exit(-1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(-1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.Store.Persistence == "postgres" || cfg.Store.RateLimitBackend == "postgres" {
		dbConfig := cfg.Database.ToDbConfig()
		pool, err = dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
			os.Exit(-1)
		}
		defer pool.Close()

		if cfg.Store.Migrate {
			if err := store.Migrate(ctx, pool); err != nil {
				slog.Error("Failed running migrations", "err", err)
				os.Exit(-1)
			}
		}
	}

	var redisClient redis.UniversalClient
	if cfg.Store.RateLimitBackend == "redis" {
		redisClient, err = store.NewRedisClient(ctx, store.RedisConfig{
			Addrs:      cfg.Redis.Addrs,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			MasterName: cfg.Redis.MasterName,
		})
		if err != nil {
			slog.Error("Failed connecting to redis", "addrs", cfg.Redis.Addrs, "err", err)
			os.Exit(-1)
		}
		defer redisClient.Close()
	}

	m := metrics.New()

	// notifications
	notifier, err := cfg.Email.NewNotifier()
	if err != nil {
		slog.Error("Failed creating notifier", "provider", cfg.Email.Provider, "err", err)
		os.Exit(-1)
	}
	notificationManager, err := notification.NewNotificationManager(notifier, notification.WithDefaultTemplates())
	if err != nil {
		slog.Error("Failed creating notification manager", "err", err)
		os.Exit(-1)
	}
	outbox := notification.NewOutbox(notificationManager,
		notification.WithWorkers(cfg.Outbox.Workers),
		notification.WithQueueSize(cfg.Outbox.QueueSize),
		notification.WithRetry(cfg.Outbox.MaxRetries, cfg.Outbox.RetryBackoff),
		notification.WithSendTimeout(cfg.Outbox.SendTimeout),
		notification.WithResultHook(func(job notification.Job, attempts int, err error) {
			outcome := "delivered"
			if err != nil {
				outcome = "failed"
			}
			m.Notification(string(job.Type), outcome)
		}),
	)

	// email verification
	verificationRepo, err := emailverification.OpenRepository(cfg.Store.Persistence, emailverification.StoreConfig{
		Pool:    pool,
		DataDir: cfg.Store.DataDir,
	})
	if err != nil {
		slog.Error("Failed creating verification repository", "backend", cfg.Store.Persistence, "err", err)
		os.Exit(-1)
	}
	verificationService := emailverification.NewEmailVerificationService(verificationRepo, notificationManager,
		emailverification.WithVerificationTTL(cfg.Verification.TTL),
		emailverification.WithCodeTTL(cfg.Verification.CodeTTL),
		emailverification.WithResendCooldown(cfg.Verification.ResendCooldown),
		emailverification.WithMaxCodeAttempts(cfg.Verification.MaxCodeAttempts),
		emailverification.WithMetrics(m),
	)
	go verificationService.RunCleanup(ctx, cfg.Verification.CleanupInterval)

	// reset attempts
	attemptRepo, err := ratelimit.NewAttemptRepository(cfg.Store.RateLimitBackend, ratelimit.RepositoryConfig{
		Pool:    pool,
		DataDir: cfg.Store.DataDir,
		Redis:   redisClient,
		TTL:     cfg.Reset.Window,
	})
	if err != nil {
		slog.Error("Failed creating attempt repository", "backend", cfg.Store.RateLimitBackend, "err", err)
		os.Exit(-1)
	}
	resetLimiter := ratelimit.NewResetLimiter(attemptRepo,
		ratelimit.WithWindow(cfg.Reset.Window),
		ratelimit.WithMaxAttempts(cfg.Reset.MaxAttempts),
	)

	// accounts
	accountRepo, err := credential.NewAccountRepository(cfg.Store.Persistence, pool)
	if err != nil {
		slog.Error("Failed creating account repository", "backend", cfg.Store.Persistence, "err", err)
		os.Exit(-1)
	}
	policy := cfg.PasswordComplexity.ToPasswordPolicy()
	accounts := credential.NewLocalService(accountRepo,
		credential.WithPolicyChecker(credential.NewDefaultPasswordPolicyChecker(policy, nil)),
	)

	resetService := passwordreset.NewService(resetLimiter, verificationService, accounts,
		passwordreset.WithOutbox(outbox),
		passwordreset.WithMetrics(m),
		passwordreset.WithUpstreamTimeout(cfg.Reset.UpstreamTimeout),
	)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Handle("/metrics", m.Handler())

	httpLimiter := ratelimit.NewMiddleware(cfg.HTTPRateLimit.ToMiddlewareConfig())
	defer httpLimiter.Stop()

	server.R.Group(func(r chi.Router) {
		r.Use(middleware.RequestID)
		if cfg.HTTPRateLimit.TrustProxyHeaders {
			r.Use(middleware.RealIP)
		}
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(m.Middleware)
		r.Use(httpLimiter.Handler)

		resetapi.NewHandler(resetService).Routes(r)
		verificationapi.NewHandler(verificationService).Routes(r)
	})

	slog.Info("accountd starting",
		"persistence", cfg.Store.Persistence,
		"ratelimit_backend", cfg.Store.RateLimitBackend,
		"email_provider", cfg.Email.Provider,
		"reset_window", cfg.Reset.Window,
		"reset_max_attempts", cfg.Reset.MaxAttempts,
	)

	server.Run()

	cancel()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	if err := outbox.Close(closeCtx); err != nil {
		slog.Error("Outbox did not drain", "err", err)
	}
}
