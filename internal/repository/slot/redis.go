package slot

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type redisRepo struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis stores slots as plain Redis strings. A positive ttl is refreshed
// on every write; zero keeps values forever.
func NewRedis(client *redis.Client, ttl time.Duration, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisRepo{client: client, ttl: ttl, logger: logger}
}

func (r *redisRepo) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Warn("slot repo: redis get", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return v, nil
}

func (r *redisRepo) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		r.logger.Warn("slot repo: redis set", zap.String("key", key), zap.Error(err))
		return err
	}
	r.logger.Debug("slot repo: redis set", zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

func (r *redisRepo) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
