package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/blob"
	"github.com/abhisek/docquiz/internal/config"
	"github.com/abhisek/docquiz/internal/events"
	"github.com/abhisek/docquiz/internal/generation"
	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/store"
)

// openStore opens the event and session database selected by cfg. SQLite
// honours --db; Postgres uses DATABASE_URL.
func openStore(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*store.Store, error) {
	driver, err := store.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DatabaseURL
	if driver == store.DriverSQLite {
		if p, _ := cmd.Flags().GetString("db"); p != "" || dsn == "" {
			if dsn, err = resolveDBPath(cmd); err != nil {
				return nil, fmt.Errorf("resolve database path: %w", err)
			}
		}
	} else if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the %s driver", driver)
	}

	s, err := store.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// sessionKV picks the session storage backend. The returned close func
// releases any client it opened.
func sessionKV(ctx context.Context, cfg *config.Config, st *store.Store, log zerolog.Logger) (store.KV, func(), error) {
	switch cfg.SessionBackend {
	case "", "sql":
		return st.KV(), func() {}, nil
	case "memory":
		return store.NewMemoryKV(), func() {}, nil
	case "redis":
		rdb, err := store.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedisKV(rdb, cfg.SessionPrefix, cfg.SessionTTL), func() { rdb.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown session backend: %q", cfg.SessionBackend)
}

// buildGenerator assembles the generation stack. A missing or broken
// provider is logged, not fatal: every request then fails with a
// configuration error.
func buildGenerator(ctx context.Context, eventRepo store.EventRepo, log zerolog.Logger) generation.Generator {
	cfg := llm.ConfigFromEnv()

	var provider llm.Provider
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("LLM provider not configured, generation will be unavailable")
	} else if p, err := llm.NewProvider(ctx, cfg, eventRepo, log); err != nil {
		log.Warn().Err(err).Str("provider", cfg.Provider).Msg("LLM provider failed to initialize")
	} else {
		provider = p
		log.Info().Str("provider", cfg.Provider).Str("model", p.ModelID()).Msg("LLM provider ready")
	}

	return generation.WithDedup(generation.WithRetry(generation.New(cfg, provider), cfg.Retry))
}

// blobStore returns the document archive, or nil when archiving is off.
func blobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "":
		return nil, nil
	case "fs":
		return blob.NewFSStore(cfg.UploadDir)
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
	}
	return nil, fmt.Errorf("unknown blob backend: %q", cfg.BlobBackend)
}

// publisher returns the lifecycle event sink.
func publisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		return events.Nop{}, nil
	}
	return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
}
