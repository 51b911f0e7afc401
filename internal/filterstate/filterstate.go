// Package filterstate keeps a catalog view's filters, page and scroll
// offset in a durable slot so that leaving and re-entering the view
// restores them.
package filterstate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/slot"
)

// AllKey identifies the view with no category selected.
const AllKey = "all"

const (
	DefaultNamespace = "catalog-filters"
	DefaultDebounce  = 250 * time.Millisecond
	// DefaultFrame is one display frame at 60Hz.
	DefaultFrame = 16 * time.Millisecond
)

// Key returns the slot key for a category's view.
func Key(namespace, category string) string {
	if category == "" {
		category = AllKey
	}
	return namespace + ":" + category
}

type Config struct {
	Namespace string
	Debounce  time.Duration
	Frame     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Frame <= 0 {
		c.Frame = DefaultFrame
	}
	return c
}

// Persister mounts views. It holds no per-visitor state.
type Persister struct {
	cfg    Config
	logger *zap.Logger
}

func NewPersister(cfg Config, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{cfg: cfg.withDefaults(), logger: logger}
}

// Key returns the slot key for category under the configured namespace.
func (p *Persister) Key(category string) string {
	return Key(p.cfg.Namespace, category)
}

// Mount reads the view's slot once. restored reports whether a persisted
// state was found; otherwise the view starts from defaults.
func (p *Persister) Mount(ctx context.Context, slots slot.Repository, category string) (v *View, restored bool) {
	key := p.Key(category)
	state := domain.DefaultFilterState()
	if saved, ok := read(ctx, slots, key, p.logger); ok {
		state = saved
		restored = true
	}

	lifetime, cancel := context.WithCancel(context.Background())
	return &View{
		key:      key,
		category: category,
		slots:    slots,
		cfg:      p.cfg,
		logger:   p.logger.With(zap.String("key", key)),
		state:    state,
		ctx:      lifetime,
		cancel:   cancel,
	}, restored
}

func read(ctx context.Context, slots slot.Repository, key string, logger *zap.Logger) (domain.FilterState, bool) {
	raw, err := slots.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("filterstate: read slot", zap.String("key", key), zap.Error(err))
		}
		return domain.FilterState{}, false
	}
	var state domain.FilterState
	if err := json.Unmarshal(raw, &state); err != nil {
		logger.Warn("filterstate: discard malformed slot", zap.String("key", key), zap.Error(err))
		return domain.FilterState{}, false
	}
	return state.Normalized(), true
}

// View is one mounted catalog view. Its timers live until Close.
type View struct {
	key      string
	category string
	slots    slot.Repository
	cfg      Config
	logger   *zap.Logger

	// writeMu serializes slot writes; mu guards the fields below it.
	writeMu       sync.Mutex
	mu            sync.Mutex
	state         domain.FilterState
	dirty         bool
	scrollPending bool
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
	save          *time.Timer
	frame         *time.Timer
}

func (v *View) Key() string { return v.key }
func (v *View) Category() string { return v.category }

func (v *View) State() domain.FilterState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Update replaces the state and schedules a debounced write. Calls
// arriving within the debounce window collapse into one write.
func (v *View) Update(state domain.FilterState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.state = state
	v.dirty = true
	if v.save != nil {
		v.save.Stop()
	}
	v.save = time.AfterFunc(v.cfg.Debounce, func() { v.writeState(v.ctx) })
}

// Scroll records the scroll offset. At most one write per frame merges the
// latest offset into the persisted state.
func (v *View) Scroll(y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.state.ScrollY = y
	if v.scrollPending {
		return
	}
	v.scrollPending = true
	v.frame = time.AfterFunc(v.cfg.Frame, func() { v.writeScroll(v.ctx) })
}

// Flush performs any pending write now.
func (v *View) Flush(ctx context.Context) {
	v.mu.Lock()
	dirty, scrollPending := v.dirty, v.scrollPending
	if v.save != nil {
		v.save.Stop()
	}
	if v.frame != nil {
		v.frame.Stop()
	}
	v.mu.Unlock()

	if dirty {
		// a full write carries the scroll offset too
		v.writeState(ctx)
		return
	}
	if scrollPending {
		v.writeScroll(ctx)
	}
}

// Close cancels pending writes. Once it returns no further write happens.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.cancel()
	if v.save != nil {
		v.save.Stop()
	}
	if v.frame != nil {
		v.frame.Stop()
	}
	v.mu.Unlock()

	// wait for an in-flight write
	v.writeMu.Lock()
	v.writeMu.Unlock()
}

func (v *View) writeState(ctx context.Context) {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	v.mu.Lock()
	if v.closed || !v.dirty {
		v.mu.Unlock()
		return
	}
	state := v.state
	v.dirty = false
	v.scrollPending = false
	v.mu.Unlock()

	v.put(ctx, state)
}

func (v *View) writeScroll(ctx context.Context) {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	v.mu.Lock()
	if v.closed || !v.scrollPending {
		v.mu.Unlock()
		return
	}
	current := v.state
	v.scrollPending = false
	v.mu.Unlock()

	merged, ok := read(ctx, v.slots, v.key, v.logger)
	if !ok {
		merged = current
	}
	merged.ScrollY = current.ScrollY
	v.put(ctx, merged)
}

func (v *View) put(ctx context.Context, state domain.FilterState) {
	raw, err := json.Marshal(state)
	if err != nil {
		v.logger.Warn("filterstate: encode", zap.Error(err))
		return
	}
	if err := v.slots.Set(ctx, v.key, raw); err != nil {
		v.logger.Warn("filterstate: write slot", zap.Error(err))
	}
}
