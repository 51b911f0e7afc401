// Package slot stores small durable values by key, the server-side
// counterpart of a browser's local storage.
package slot

import (
	"context"
)

// Repository is a durable key/value store. Get returns domain.ErrNotFound
// for a key that was never set or was deleted.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type scoped struct {
	repo   Repository
	prefix string
}

// Scoped returns a view of repo where every key is prefixed with prefix.
func Scoped(repo Repository, prefix string) Repository {
	return &scoped{repo: repo, prefix: prefix}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.repo.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.repo.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, s.prefix+key)
}

func (s *scoped) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
