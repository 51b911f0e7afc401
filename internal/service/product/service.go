package product

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/store"
)

type productClient interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id int) (*domain.Product, error)
}

type Service struct {
	backend productClient
	logger  *zap.Logger
}

func New(backend productClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, logger: logger}
}

// Load fetches the product list into st. When a newer Load started in the
// meantime its result wins and this call returns whatever st holds.
func (s *Service) Load(ctx context.Context, st *store.Store) ([]domain.Product, error) {
	gen := st.BeginLoading()
	products, err := s.backend.Products(ctx)
	if err != nil {
		st.FailLoading(gen, err)
		s.logger.Warn("product: load failed", zap.Error(err))
		return nil, err
	}
	if !st.FinishProducts(gen, products) {
		s.logger.Debug("product: dropped stale result", zap.Uint64("generation", gen))
		return st.Products(), nil
	}
	s.logger.Debug("product: loaded", zap.Int("count", len(products)))
	return products, nil
}

// List returns the session's products, loading them on first use.
func (s *Service) List(ctx context.Context, st *store.Store) ([]domain.Product, error) {
	if products := st.Products(); len(products) > 0 {
		return products, nil
	}
	return s.Load(ctx, st)
}

// Product finds id in the session's list, falling back to the backend's
// single-product endpoint.
func (s *Service) Product(ctx context.Context, st *store.Store, id int) (*domain.Product, error) {
	products, err := s.List(ctx, st)
	if err == nil {
		for _, p := range products {
			if p.ID == id {
				return &p, nil
			}
		}
	}
	p, err := s.backend.Product(ctx, id)
	if err != nil {
		if backend.StatusOf(err) == http.StatusNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Search runs the header quick search and remembers the query.
func (s *Service) Search(ctx context.Context, st *store.Store, query string, limit int) ([]domain.Product, error) {
	st.SetSearch(query)
	products, err := s.List(ctx, st)
	if err != nil {
		return nil, err
	}
	return catalog.Search(products, query, limit), nil
}
