package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/slot"
	"storefront/internal/store"
)

var ErrInvalidSession = errors.New("invalid session")

const metaKey = "meta"

// refreshEvery bounds how often Resolve rewrites the meta slot, which
// renews its TTL on expiring slot stores.
const refreshEvery = time.Hour

type meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service issues visitor session ids and checks them on each request.
// Session metadata is a slot, so ids survive restarts of this process.
type Service struct {
	slots  slot.Repository
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	known map[string]time.Time
}

func New(slots slot.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		slots:  slots,
		logger: logger,
		now:    time.Now,
		known:  make(map[string]time.Time),
	}
}

// Issue creates a new session and returns its id.
func (s *Service) Issue(ctx context.Context) (string, error) {
	id := uuid.NewString()
	raw, err := json.Marshal(meta{ID: id, CreatedAt: s.now().UTC()})
	if err != nil {
		return "", err
	}
	if err := slot.Scoped(s.slots, store.SlotPrefix(id)).Set(ctx, metaKey, raw); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	s.remember(id)
	s.logger.Info("session: issued", zap.String("session", id))
	return id, nil
}

// Resolve validates id and returns it in canonical form. A verified id
// has its meta slot rewritten at most once per refreshEvery.
func (s *Service) Resolve(ctx context.Context, id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidSession
	}
	id = parsed.String()

	s.mu.RLock()
	refreshed, ok := s.known[id]
	s.mu.RUnlock()
	if ok && s.now().Sub(refreshed) < refreshEvery {
		return id, nil
	}

	scoped := slot.Scoped(s.slots, store.SlotPrefix(id))
	raw, err := scoped.Get(ctx, metaKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.Forget(id)
			return "", ErrInvalidSession
		}
		return "", err
	}
	if err := scoped.Set(ctx, metaKey, raw); err != nil {
		s.logger.Warn("session: refresh meta failed", zap.String("session", id), zap.Error(err))
	}
	s.remember(id)
	return id, nil
}

// Forget drops id from the in-process cache of verified sessions.
func (s *Service) Forget(id string) {
	s.mu.Lock()
	delete(s.known, id)
	s.mu.Unlock()
}

func (s *Service) remember(id string) {
	s.mu.Lock()
	s.known[id] = s.now()
	s.mu.Unlock()
}
