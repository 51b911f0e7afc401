package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/repository/slot"
)

// Session is one visitor's live state plus its slot namespace.
type Session struct {
	ID    string
	Store *Store
	Slots slot.Repository

	lastSeen time.Time
}

// SlotPrefix is the key prefix for every slot owned by session id.
func SlotPrefix(id string) string {
	return "session:" + id + ":"
}

type RegistryConfig struct {
	IdleTimeout time.Duration
	ToastTTL    time.Duration
}

// Registry keeps the open sessions of this process and evicts idle ones.
// Evicting only drops memory; the session's slots stay durable and the
// next request reopens them.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	slots    slot.Repository
	cfg      RegistryConfig
	logger   *zap.Logger
	onEvict  []func(id string)
	now      func() time.Time
}

func NewRegistry(slots slot.Repository, cfg RegistryConfig, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		slots:    slots,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// OnEvict registers fn to run when a session leaves the registry.
func (r *Registry) OnEvict(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = append(r.onEvict, fn)
}

// Get returns the live session for id, opening it from its slots first if
// needed.
func (r *Registry) Get(ctx context.Context, id string) *Session {
	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = r.now()
		r.mu.Unlock()
		return s
	}
	r.mu.Unlock()

	slots := slot.Scoped(r.slots, SlotPrefix(id))
	opened := &Session{
		ID:    id,
		Store: Open(ctx, slots, r.cfg.ToastTTL, r.logger.With(zap.String("session", id))),
		Slots: slots,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		// lost a race with another request for the same session
		opened.Store.Close()
		s.lastSeen = r.now()
		return s
	}
	opened.lastSeen = r.now()
	r.sessions[id] = opened
	r.logger.Debug("registry: opened session", zap.String("session", id))
	return opened
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the configured timeout and
// returns how many were removed.
func (r *Registry) Sweep() int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	var evicted []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			evicted = append(evicted, s)
			delete(r.sessions, id)
		}
	}
	hooks := append([]func(string){}, r.onEvict...)
	r.mu.Unlock()

	for _, s := range evicted {
		r.release(s, hooks)
	}
	if len(evicted) > 0 {
		r.logger.Info("registry: evicted idle sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

func (r *Registry) release(s *Session, hooks []func(string)) {
	for _, fn := range hooks {
		fn(s.ID)
	}
	s.Store.Close()
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close releases every open session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	hooks := append([]func(string){}, r.onEvict...)
	r.mu.Unlock()

	for _, s := range sessions {
		r.release(s, hooks)
	}
}
