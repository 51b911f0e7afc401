// Package store holds one visitor's client state. Every change goes
// through a named action; listeners observe each transition.
package store

import (
	"slices"
	"sync"
	"time"

	"storefront/internal/domain"
)

const AddedToCartMessage = "Producto agregado al carrito"

type Toast struct {
	Visible bool   `json:"isVisible"`
	Message string `json:"message"`
}

// State is the root object. Actions replace it wholesale; slices inside it
// are never modified in place.
type State struct {
	Products   []domain.Product  `json:"products"`
	Cart       domain.Cart       `json:"cart"`
	User       *domain.User      `json:"user"`
	Categories []domain.Category `json:"categories"`
	Orders     []domain.Order    `json:"orders"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
	Toast      Toast             `json:"toast"`
	Search     string            `json:"search"`
}

// Listener is called after each transition with the previous and new root.
// Listeners run while the store is locked and must not call back into it.
type Listener func(prev, next State)

type Store struct {
	mu         sync.Mutex
	state      State
	listeners  []Listener
	generation uint64
	toastTTL   time.Duration
	toastTimer *time.Timer
	closed     bool
}

// New returns a store seeded with cart. A non-positive toastTTL keeps
// toasts visible until HideToast.
func New(cart domain.Cart, toastTTL time.Duration) *Store {
	if cart == nil {
		cart = domain.Cart{}
	}
	return &Store{
		state:    State{Cart: cart},
		toastTTL: toastTTL,
	}
}

// Subscribe registers l and returns a func that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

// Snapshot returns the current root.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Cart() domain.Cart {
	return s.Snapshot().Cart
}

func (s *Store) Products() []domain.Product {
	return s.Snapshot().Products
}

func (s *Store) User() *domain.User {
	return s.Snapshot().User
}

// update applies fn to the root and notifies listeners. s.mu must be held.
func (s *Store) update(fn func(State) State) State {
	prev := s.state
	next := fn(prev)
	s.state = next
	for _, l := range s.listeners {
		if l != nil {
			l(prev, next)
		}
	}
	return next
}

func (s *Store) dispatch(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(fn)
}

// AddToCart merges quantity units of p into the cart and shows the
// confirmation toast.
func (s *Store) AddToCart(p domain.Product, quantity int, variant string) (domain.Cart, error) {
	return s.AddToCartChecked(p, quantity, variant, nil)
}

// AddToCartChecked is AddToCart with check run against the current cart
// under the store lock. A non-nil error from check aborts the add.
func (s *Store) AddToCartChecked(p domain.Product, quantity int, variant string, check func(domain.Cart) error) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if check != nil {
		if err := check(s.state.Cart); err != nil {
			return s.state.Cart, err
		}
	}
	cart, err := s.state.Cart.Add(p, quantity, variant)
	if err != nil {
		return s.state.Cart, err
	}
	s.update(func(st State) State {
		st.Cart = cart
		return st
	})
	s.showToastLocked(AddedToCartMessage)
	return cart, nil
}

func (s *Store) RemoveFromCart(productID int, variant string) domain.Cart {
	return s.dispatch(func(st State) State {
		st.Cart = st.Cart.Remove(productID, variant)
		return st
	}).Cart
}

func (s *Store) UpdateCartQuantity(productID, quantity int, variant string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, err := s.state.Cart.UpdateQuantity(productID, quantity, variant)
	if err != nil {
		return s.state.Cart, err
	}
	return s.update(func(st State) State {
		st.Cart = cart
		return st
	}).Cart, nil
}

func (s *Store) ClearCart() {
	s.dispatch(func(st State) State {
		st.Cart = st.Cart.Clear()
		return st
	})
}

func (s *Store) SetUser(u *domain.User) {
	s.dispatch(func(st State) State {
		st.User = u
		return st
	})
}

func (s *Store) SetCategories(categories []domain.Category) {
	s.dispatch(func(st State) State {
		st.Categories = slices.Clone(categories)
		return st
	})
}

func (s *Store) SetOrders(orders []domain.Order) {
	s.dispatch(func(st State) State {
		st.Orders = slices.Clone(orders)
		return st
	})
}

func (s *Store) SetSearch(q string) {
	s.dispatch(func(st State) State {
		st.Search = q
		return st
	})
}

// BeginLoading marks a product fetch as outstanding and returns its
// generation. Only the latest generation may complete the fetch.
func (s *Store) BeginLoading() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.update(func(st State) State {
		st.Loading = true
		st.Error = ""
		return st
	})
	return s.generation
}

// FinishProducts stores a fetch result. Results from a superseded
// generation are dropped and false is returned.
func (s *Store) FinishProducts(gen uint64, products []domain.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.closed {
		return false
	}
	s.update(func(st State) State {
		st.Products = slices.Clone(products)
		st.Loading = false
		st.Error = ""
		return st
	})
	return true
}

// FailLoading clears the loading flag and surfaces err as a toast, unless
// gen was superseded.
func (s *Store) FailLoading(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.closed {
		return false
	}
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	s.update(func(st State) State {
		st.Loading = false
		st.Error = msg
		return st
	})
	s.showToastLocked(msg)
	return true
}

func (s *Store) ShowToast(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showToastLocked(message)
}

func (s *Store) showToastLocked(message string) {
	if s.closed {
		return
	}
	s.update(func(st State) State {
		st.Toast = Toast{Visible: true, Message: message}
		return st
	})
	if s.toastTimer != nil {
		s.toastTimer.Stop()
	}
	if s.toastTTL > 0 {
		s.toastTimer = time.AfterFunc(s.toastTTL, s.HideToast)
	}
}

func (s *Store) HideToast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.state.Toast.Visible {
		return
	}
	s.update(func(st State) State {
		st.Toast = Toast{}
		return st
	})
}

// Close stops pending timers. Late fetch results and toasts are ignored
// afterwards; cart actions keep working.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.toastTimer != nil {
		s.toastTimer.Stop()
	}
}
