package product

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/filterstate"
	"storefront/internal/store"
)

type categoryResolver interface {
	Resolve(ctx context.Context, st *store.Store, slug string) (domain.Category, error)
}

const releaseTimeout = 2 * time.Second

// Browser runs catalog views. Each session has at most one mounted view;
// opening another category flushes and closes the previous one.
type Browser struct {
	products   *Service
	categories categoryResolver
	persister  *filterstate.Persister
	logger     *zap.Logger

	mu    sync.Mutex
	views map[string]*sessionView
}

type sessionView struct {
	mu   sync.Mutex
	view *filterstate.View
}

// Page is one rendered view plus whether its state came from the slot.
type Page struct {
	catalog.Result
	Category string `json:"category"`
	Restored bool   `json:"restored"`
}

func NewBrowser(products *Service, categories categoryResolver, persister *filterstate.Persister, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{
		products:   products,
		categories: categories,
		persister:  persister,
		logger:     logger,
		views:      make(map[string]*sessionView),
	}
}

func (b *Browser) session(id string) *sessionView {
	b.mu.Lock()
	defer b.mu.Unlock()
	sv, ok := b.views[id]
	if !ok {
		sv = &sessionView{}
		b.views[id] = sv
	}
	return sv
}

// mount returns the view for category, switching views if needed.
// sv.mu must be held.
func (b *Browser) mount(ctx context.Context, sess *store.Session, sv *sessionView, category string) (*filterstate.View, bool) {
	if sv.view != nil && sv.view.Category() == category {
		return sv.view, false
	}
	if sv.view != nil {
		sv.view.Flush(ctx)
		sv.view.Close()
	}
	view, restored := b.persister.Mount(ctx, sess.Slots, category)
	sv.view = view
	b.logger.Debug("browser: mounted view",
		zap.String("session", sess.ID),
		zap.String("key", view.Key()),
		zap.Bool("restored", restored),
	)
	return view, restored
}

type step func(state domain.FilterState, scope catalog.Scope, products []domain.Product) domain.FilterState

func (b *Browser) run(ctx context.Context, sess *store.Session, category string, preview int, fn step) (*Page, error) {
	cat, err := b.categories.Resolve(ctx, sess.Store, category)
	if err != nil {
		return nil, err
	}
	products, err := b.products.List(ctx, sess.Store)
	if err != nil {
		return nil, err
	}
	scope := catalog.Scope{CategoryID: cat.ID, Preview: preview}
	if preview > 0 {
		// previews are stateless: they neither restore nor touch the saved view
		res := catalog.Run(products, scope, domain.DefaultFilterState())
		return &Page{Result: res, Category: category}, nil
	}

	sv := b.session(sess.ID)
	sv.mu.Lock()
	defer sv.mu.Unlock()

	view, restored := b.mount(ctx, sess, sv, category)
	state := view.State()
	next := state
	if fn != nil {
		next = fn(state, scope, products)
	}
	// res.State carries the page clamped into the current range
	res := catalog.Run(products, scope, next)
	if !res.State.Equal(state) {
		view.Update(res.State)
	}
	return &Page{Result: res, Category: category, Restored: restored}, nil
}

// Browse renders category with its current (or restored) state.
func (b *Browser) Browse(ctx context.Context, sess *store.Session, category string, preview int) (*Page, error) {
	return b.run(ctx, sess, category, preview, nil)
}

// ApplyFilters applies patch; any filter change returns the view to page 1.
func (b *Browser) ApplyFilters(ctx context.Context, sess *store.Session, category string, patch catalog.Patch) (*Page, error) {
	return b.run(ctx, sess, category, 0, func(state domain.FilterState, scope catalog.Scope, products []domain.Product) domain.FilterState {
		return patch.Apply(state, catalog.PriceBounds(scope.Apply(products)))
	})
}

// SetPage moves to page, clamped to the pages the current filters produce.
func (b *Browser) SetPage(ctx context.Context, sess *store.Session, category string, page int) (*Page, error) {
	return b.run(ctx, sess, category, 0, func(state domain.FilterState, scope catalog.Scope, products []domain.Product) domain.FilterState {
		filtered := catalog.Filter(scope.Apply(products), state.Normalized())
		return catalog.SetPage(state, page, catalog.TotalPages(len(filtered), state.Normalized().PageSize))
	})
}

// Scroll records the scroll offset of category's view.
func (b *Browser) Scroll(ctx context.Context, sess *store.Session, category string, y float64) error {
	if _, err := b.categories.Resolve(ctx, sess.Store, category); err != nil {
		return err
	}
	sv := b.session(sess.ID)
	sv.mu.Lock()
	defer sv.mu.Unlock()
	view, _ := b.mount(ctx, sess, sv, category)
	view.Scroll(y)
	return nil
}

// Leave flushes and unmounts the session's view.
func (b *Browser) Leave(ctx context.Context, sessionID string) {
	b.mu.Lock()
	sv, ok := b.views[sessionID]
	delete(b.views, sessionID)
	b.mu.Unlock()
	if !ok {
		return
	}
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.view != nil {
		sv.view.Flush(ctx)
		sv.view.Close()
		sv.view = nil
	}
}

// Release is the registry eviction hook.
func (b *Browser) Release(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	b.Leave(ctx, sessionID)
}
