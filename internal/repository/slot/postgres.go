package slot

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres stores slots in the slots table created by the migrations.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM slots WHERE key = $1`
	var value []byte
	if err := r.pool.QueryRow(ctx, q, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Warn("slot repo: get", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return value, nil
}

func (r *postgresRepo) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO slots (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`
	if _, err := r.pool.Exec(ctx, q, key, value); err != nil {
		r.logger.Warn("slot repo: set", zap.String("key", key), zap.Error(err))
		return err
	}
	r.logger.Debug("slot repo: set", zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM slots WHERE key = $1`
	_, err := r.pool.Exec(ctx, q, key)
	return err
}

func (r *postgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
