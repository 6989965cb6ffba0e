// Package main runs the waitlist intake service: subscription forwarding to
// a mailing list provider and membership-gated welcome emails.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"

	"waitlist-intake/config"
	"waitlist-intake/email"
	"waitlist-intake/listprovider"
	"waitlist-intake/pkg/waitlist"
	"waitlist-intake/ratelimit"
	"waitlist-intake/server"
	"waitlist-intake/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("Configuration incomplete, affected endpoints will fail closed", "error", err)
	}

	store, closeStore, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("Failed to initialize waitlist store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	limiter, closeLimiter, err := openLimiter(ctx, cfg.RateLimit, logger)
	if err != nil {
		logger.Error("Failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}
	defer closeLimiter()

	provider, err := listprovider.New(listprovider.Options{
		Name:            cfg.ListProvider.Name,
		KitAPIKey:       cfg.ListProvider.KitAPIKey,
		KitBaseURL:      cfg.ListProvider.KitBaseURL,
		MailchimpAPIKey: cfg.ListProvider.MailchimpAPIKey,
		MailchimpListID: cfg.ListProvider.MailchimpListID,
		Timeout:         cfg.ListProvider.Timeout(),
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize list provider", "error", err)
		os.Exit(1)
	}

	emailProvider, err := email.NewProvider(ctx, email.Options{
		Name:                 cfg.Email.Provider,
		FromAddr:             cfg.Email.From,
		FromName:             cfg.Email.FromName,
		ResendAPIKey:         cfg.Email.ResendAPIKey,
		BrevoAPIKey:          cfg.Email.BrevoAPIKey,
		SESRegion:            cfg.Email.SESRegion,
		SESAccessKey:         cfg.Email.SESAccessKey,
		SESSecretKey:         cfg.Email.SESSecretKey,
		GmailCredentialsJSON: cfg.Email.GoogleCredentialsJSON,
		Timeout:              cfg.Email.Timeout(),
	}, logger)
	switch {
	case waitlist.IsConfig(err):
		logger.Warn("Email provider not configured, welcome emails disabled", "provider", cfg.Email.Provider, "error", err)
		emailProvider = email.Unconfigured{Err: err}
	case err != nil:
		logger.Error("Failed to initialize email provider", "provider", cfg.Email.Provider, "error", err)
		os.Exit(1)
	}

	srv := server.New(&server.Config{
		Provider: provider,
		Store:    store,
		Limiter:  limiter,
		Emailer:  email.New(emailProvider, cfg.Email.Provider, logger),
		Logger:   logger,
	})

	logger.Info("Waitlist intake starting",
		"list_provider", provider.Name(),
		"email_provider", cfg.Email.Provider,
		"port", cfg.Server.Port)

	if err := srv.ListenAndServe(ctx, cfg.Server.Port, cfg.Server.InternalPort); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// openStore picks the waitlist backend: Postgres, then Cloud Storage, then an
// explicitly configured local directory for development.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Store, func(), error) {
	if missing := cfg.Missing(); missing != nil {
		logger.Warn("Waitlist store not configured, membership checks will fail closed", "error", missing)
		return storage.Unconfigured{Err: missing}, func() {}, nil
	}

	switch {
	case cfg.DatabaseURL != "":
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		pg := storage.NewPostgres(db, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("Using Postgres waitlist store")
		return pg, func() {
			if err := db.Close(); err != nil {
				logger.Warn("Failed to close database", "error", err)
			}
		}, nil

	case cfg.Bucket != "":
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Cloud Storage waitlist store", "bucket", cfg.Bucket)
		return storage.NewObjects(client, cfg.Bucket, "", []byte(cfg.Salt), logger), func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}, nil

	default:
		if err := os.MkdirAll(cfg.LocalPath, 0o755); err != nil {
			return nil, nil, err
		}
		logger.Info("Running in local development mode", "storage_path", cfg.LocalPath)
		return storage.NewObjects(nil, "", cfg.LocalPath, []byte(cfg.Salt), logger), func() {}, nil
	}
}

// openLimiter uses Redis when configured so counters are shared across
// instances, otherwise an in-process store pruned in the background.
func openLimiter(ctx context.Context, cfg config.RateLimitConfig, logger *slog.Logger) (*ratelimit.Limiter, func(), error) {
	if cfg.RedisURL != "" {
		client, err := ratelimit.OpenRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Redis rate limit store")
		limiter := ratelimit.New(ratelimit.NewRedisStore(client, ""), cfg.Window, cfg.MaxRequests, logger)
		return limiter, func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", "error", err)
			}
		}, nil
	}

	mem := ratelimit.NewMemoryStore()
	mem.StartJanitor(ctx, 5*time.Minute)
	return ratelimit.New(mem, cfg.Window, cfg.MaxRequests, logger), func() {}, nil
}
