package category

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/store"
)

type categoryClient interface {
	Categories(ctx context.Context) ([]domain.Category, error)
}

type Service struct {
	backend categoryClient
	logger  *zap.Logger
}

func New(backend categoryClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, logger: logger}
}

// List returns the session's categories, fetching them on first use.
// Backend entries without a slug get one from their name; when the backend
// fails the built-in list is used.
func (s *Service) List(ctx context.Context, st *store.Store) []domain.Category {
	if cached := st.Snapshot().Categories; len(cached) > 0 {
		return cached
	}
	fetched, err := s.backend.Categories(ctx)
	if err != nil || len(fetched) == 0 {
		if err != nil {
			s.logger.Warn("category: fetch failed, using defaults", zap.Error(err))
		}
		st.SetCategories(domain.DefaultCategories)
		return domain.DefaultCategories
	}
	out := make([]domain.Category, 0, len(fetched))
	for _, c := range fetched {
		if strings.TrimSpace(c.Slug) == "" {
			c.Slug = catalog.Slugify(c.Name)
		}
		out = append(out, c)
	}
	st.SetCategories(out)
	return out
}

// Resolve maps a slug to its category. The empty slug is the all-products
// view and resolves to the zero Category.
func (s *Service) Resolve(ctx context.Context, st *store.Store, slug string) (domain.Category, error) {
	if slug == "" {
		return domain.Category{}, nil
	}
	for _, c := range s.List(ctx, st) {
		if c.Slug == slug {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrNotFound
}
