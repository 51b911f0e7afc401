package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/slot"
)

// CartKey is the slot holding the JSON-encoded cart.
const CartKey = "cart"

const slotTimeout = 2 * time.Second

// LoadCart reads the persisted cart. A missing, unreadable or malformed
// value yields an empty cart.
func LoadCart(ctx context.Context, slots slot.Repository, logger *zap.Logger) domain.Cart {
	raw, err := slots.Get(ctx, CartKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("store: read cart slot", zap.Error(err))
		}
		return domain.Cart{}
	}
	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		logger.Warn("store: discard malformed cart slot", zap.Error(err))
		return domain.Cart{}
	}
	valid := make(domain.Cart, 0, len(cart))
	for _, line := range cart {
		if line.Quantity >= 1 {
			valid = append(valid, line)
		}
	}
	return valid
}

// CartPersister returns a listener writing the cart slot whenever the cart
// changed in a transition.
func CartPersister(slots slot.Repository, logger *zap.Logger) Listener {
	return func(prev, next State) {
		if slices.Equal(prev.Cart, next.Cart) {
			return
		}
		raw, err := json.Marshal(next.Cart)
		if err != nil {
			logger.Warn("store: encode cart", zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), slotTimeout)
		defer cancel()
		if err := slots.Set(ctx, CartKey, raw); err != nil {
			logger.Warn("store: write cart slot", zap.Error(err))
		}
	}
}

// Open builds a store whose cart is read once from slots and mirrored back
// after every cart change.
func Open(ctx context.Context, slots slot.Repository, toastTTL time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := New(LoadCart(ctx, slots, logger), toastTTL)
	s.Subscribe(CartPersister(slots, logger))
	return s
}
