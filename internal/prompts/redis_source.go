package prompts

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/care-coordinator/pkg/logging"
)

// RedisSource lets operators override prompts at runtime by storing template
// text under prompt:<id>. Missing keys and Redis failures fall back to the
// embedded prompts.
type RedisSource struct {
	redis    *redis.Client
	fallback *EmbeddedSource
	tracer   trace.Tracer
	logger   *logging.Logger
}

func NewRedisSource(client *redis.Client, fallback *EmbeddedSource, logger *logging.Logger) *RedisSource {
	if client == nil {
		panic("prompts: redis client cannot be nil")
	}
	if fallback == nil {
		panic("prompts: fallback source cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisSource{
		redis:    client,
		fallback: fallback,
		tracer:   otel.Tracer("care-coordinator.prompts"),
		logger:   logger,
	}
}

func (s *RedisSource) Resolve(ctx context.Context, id string) (string, error) {
	return s.Render(ctx, id, nil)
}

func (s *RedisSource) Render(ctx context.Context, id string, vars map[string]any) (string, error) {
	ctx, span := s.tracer.Start(ctx, "prompts.render")
	defer span.End()

	text, err := s.redis.Get(ctx, promptKey(id)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return s.fallback.Render(ctx, id, vars)
	case err != nil:
		span.RecordError(err)
		s.logger.WarnContext(ctx, "prompt override lookup failed, using embedded prompt", "prompt_id", id, "error", err)
		return s.fallback.Render(ctx, id, vars)
	}

	t, err := parse(id, text)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return execute(t, s.fallback.data(vars))
}

// Override stores template text for id after checking that it parses.
func (s *RedisSource) Override(ctx context.Context, id, text string) error {
	if _, err := parse(id, text); err != nil {
		return err
	}
	if err := s.redis.Set(ctx, promptKey(id), text, 0).Err(); err != nil {
		return fmt.Errorf("prompts: store override %s: %w", id, err)
	}
	return nil
}

// Reset removes any override for id.
func (s *RedisSource) Reset(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, promptKey(id)).Err(); err != nil {
		return fmt.Errorf("prompts: reset override %s: %w", id, err)
	}
	return nil
}

func promptKey(id string) string {
	return fmt.Sprintf("prompt:%s", id)
}
