package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/care-coordinator/internal/api/router"
	"github.com/wolfman30/care-coordinator/internal/chat"
	appconfig "github.com/wolfman30/care-coordinator/internal/config"
	"github.com/wolfman30/care-coordinator/internal/directory"
	"github.com/wolfman30/care-coordinator/internal/prompts"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

// PromptSource is what the API needs from a prompt store: the pipeline
// resolves system prompts and the debug endpoint renders them with kwargs.
type PromptSource interface {
	chat.PromptSource
	prompts.Renderer
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, prompt overrides disabled", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildDirectoryStore returns the Postgres-backed store when DATABASE_URL is
// set and the in-memory default directory otherwise. The pool is nil for the
// in-memory store; callers close it on shutdown.
func BuildDirectoryStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (directory.Store, *pgxpool.Pool, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("DATABASE_URL not set; using the built-in provider directory")
		return directory.NewMemoryStore(directory.DefaultDirectory()), nil, nil
	}
	pool, err := directory.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("provider directory backed by postgres", "timeout", cfg.StoreTimeout)
	return directory.NewPostgresStore(pool, cfg.StoreTimeout), pool, nil
}

// BuildPromptSource returns the embedded templates, layered under Redis
// overrides when a client is available. The second result is nil without Redis.
func BuildPromptSource(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (PromptSource, *prompts.RedisSource, error) {
	if logger == nil {
		logger = logging.Default()
	}
	loc := time.UTC
	if cfg != nil && cfg.PromptTimezone != "" {
		l, err := time.LoadLocation(cfg.PromptTimezone)
		if err != nil {
			logger.Warn("unknown prompt timezone, using UTC", "timezone", cfg.PromptTimezone, "error", err)
		} else {
			loc = l
		}
	}

	embedded, err := prompts.NewEmbeddedSource(loc)
	if err != nil {
		return nil, nil, err
	}
	if redisClient == nil {
		return embedded, nil, nil
	}
	redisSource := prompts.NewRedisSource(redisClient, embedded, logger)
	return redisSource, redisSource, nil
}

// HealthChecks builds /health probes for the dependencies that are configured.
func HealthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
