package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ContestScoreAPI/internal/config"
	"ContestScoreAPI/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ResultsCache stores rendered contest results.
type ResultsCache interface {
	Get(ctx context.Context, contestID uuid.UUID) ([]byte, bool, error)
	Set(ctx context.Context, contestID uuid.UUID, payload []byte) error
	Invalidate(ctx context.Context, contestID uuid.UUID) error
	Shutdown(ctx context.Context) error
}

func resultsKey(contestID uuid.UUID) string {
	return "results:" + contestID.String()
}

// Redis keeps results as JSON strings with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// New returns a Redis cache when enabled in config, otherwise a Nop.
func New(logger *slog.Logger, cfg *config.Config) ResultsCache {
	if !cfg.RedisConfig.Enabled {
		return Nop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})
	return NewRedis(logger, client, cfg.RedisConfig.ResultsTTL)
}

func NewRedis(logger *slog.Logger, client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		log:    logger.With(slog.String("component", "cache")),
	}
}

func (r *Redis) Get(ctx context.Context, contestID uuid.UUID) ([]byte, bool, error) {
	op := "cache.Get"
	data, err := r.client.Get(ctx, resultsKey(contestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	metrics.CacheHits.Inc()
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, contestID uuid.UUID, payload []byte) error {
	op := "cache.Set"
	if err := r.client.Set(ctx, resultsKey(contestID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, contestID uuid.UUID) error {
	op := "cache.Invalidate"
	if err := r.client.Del(ctx, resultsKey(contestID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Redis) Shutdown(ctx context.Context) error {
	op := "cache.Shutdown"
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("error exit %s: %w", op, err)
	}
	return nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) ([]byte, bool, error) {
	metrics.CacheMisses.Inc()
	return nil, false, nil
}
func (Nop) Set(context.Context, uuid.UUID, []byte) error { return nil }
func (Nop) Invalidate(context.Context, uuid.UUID) error  { return nil }
func (Nop) Shutdown(context.Context) error               { return nil }
