package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository/slot"
)

type spySlots struct {
	slot.Repository
	mu      sync.Mutex
	sets    int
	getErr  error
	setErr  error
	lastKey string
}

func newSpySlots() *spySlots {
	return &spySlots{Repository: slot.NewMemory()}
}

func (s *spySlots) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Repository.Get(ctx, key)
}

func (s *spySlots) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.sets++
	s.lastKey = key
	s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	return s.Repository.Set(ctx, key, value)
}

func (s *spySlots) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

var pod = domain.Product{ID: 7, Name: "Pod", Price: 500}

func TestAddToCartMergesAndPersists(t *testing.T) {
	slots := newSpySlots()
	s := Open(context.Background(), slots, 0, nil)

	_, err := s.AddToCart(pod, 2, "")
	require.NoError(t, err)
	cart, err := s.AddToCart(pod, 3, "")
	require.NoError(t, err)

	require.Len(t, cart, 1)
	assert.Equal(t, 5, cart[0].Quantity)
	assert.Equal(t, 2, slots.setCount())
	assert.Equal(t, CartKey, slots.lastKey)

	reopened := Open(context.Background(), slots, 0, nil)
	assert.Equal(t, cart, reopened.Cart())
}

func TestAddToCartShowsToast(t *testing.T) {
	s := New(nil, 0)
	_, err := s.AddToCart(pod, 1, "")
	require.NoError(t, err)

	toast := s.Snapshot().Toast
	assert.True(t, toast.Visible)
	assert.Equal(t, AddedToCartMessage, toast.Message)
}

func TestInvalidQuantityLeavesStateUntouched(t *testing.T) {
	slots := newSpySlots()
	s := Open(context.Background(), slots, 0, nil)

	_, err := s.AddToCart(pod, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = s.UpdateCartQuantity(pod.ID, -1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	assert.Empty(t, s.Cart())
	assert.Equal(t, 0, slots.setCount())
}

func TestAddToCartCheckedSeesCurrentCart(t *testing.T) {
	slots := newSpySlots()
	s := Open(context.Background(), slots, 0, nil)
	_, err := s.AddToCart(pod, 2, "")
	require.NoError(t, err)

	errFull := errors.New("full")
	var seen domain.Cart
	_, err = s.AddToCartChecked(pod, 1, "", func(c domain.Cart) error {
		seen = c
		return errFull
	})
	assert.ErrorIs(t, err, errFull)
	assert.Equal(t, 2, seen.Quantity(pod.ID, ""))
	assert.Equal(t, 2, s.Cart().Quantity(pod.ID, ""))
	assert.Equal(t, 1, slots.setCount())
}

func TestNonCartActionsDoNotWriteCart(t *testing.T) {
	slots := newSpySlots()
	s := Open(context.Background(), slots, 0, nil)

	s.SetUser(&domain.User{Email: "a@b.c"})
	s.SetSearch("elf")
	s.SetCategories(domain.DefaultCategories)
	s.RemoveFromCart(1, "")

	assert.Equal(t, 0, slots.setCount())
	assert.Equal(t, "elf", s.Snapshot().Search)
	assert.Equal(t, "a@b.c", s.User().Email)
}

func TestListenerSeesPrevAndNext(t *testing.T) {
	s := New(nil, 0)
	var seen [][2]int
	unsubscribe := s.Subscribe(func(prev, next State) {
		seen = append(seen, [2]int{prev.Cart.ItemCount(), next.Cart.ItemCount()})
	})

	_, _ = s.AddToCart(pod, 2, "")
	s.ClearCart()
	unsubscribe()
	_, _ = s.AddToCart(pod, 1, "")

	// AddToCart also transitions the toast, so it is seen twice.
	assert.Equal(t, [][2]int{{0, 2}, {2, 2}, {2, 0}}, seen)
}

func TestOpenTreatsMalformedCartAsEmpty(t *testing.T) {
	ctx := context.Background()
	slots := newSpySlots()
	require.NoError(t, slots.Repository.Set(ctx, CartKey, []byte(`{not json`)))

	s := Open(ctx, slots, 0, nil)
	assert.Empty(t, s.Cart())

	slots.getErr = errors.New("backend down")
	s = Open(ctx, slots, 0, nil)
	assert.Empty(t, s.Cart())
}

func TestOpenDropsInvalidLines(t *testing.T) {
	ctx := context.Background()
	slots := newSpySlots()
	require.NoError(t, slots.Repository.Set(ctx, CartKey, []byte(`[{"id":1,"quantity":0},{"id":2,"quantity":2}]`)))

	cart := Open(ctx, slots, 0, nil).Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, 2, cart[0].ProductID)
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	slots := newSpySlots()
	slots.setErr = errors.New("disk full")
	s := Open(context.Background(), slots, 0, nil)

	cart, err := s.AddToCart(pod, 1, "")
	require.NoError(t, err)
	assert.Len(t, cart, 1)
}

func TestGenerationGuard(t *testing.T) {
	s := New(nil, 0)

	first := s.BeginLoading()
	second := s.BeginLoading()
	assert.True(t, s.Snapshot().Loading)

	assert.True(t, s.FinishProducts(second, []domain.Product{{ID: 2}}))
	assert.False(t, s.FinishProducts(first, []domain.Product{{ID: 1}}))
	assert.False(t, s.FailLoading(first, errors.New("late")))

	st := s.Snapshot()
	assert.False(t, st.Loading)
	require.Len(t, st.Products, 1)
	assert.Equal(t, 2, st.Products[0].ID)
	assert.Empty(t, st.Error)
}

func TestFailLoadingSurfacesToast(t *testing.T) {
	s := New(nil, 0)
	gen := s.BeginLoading()

	assert.True(t, s.FailLoading(gen, errors.New("backend unavailable")))
	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.Equal(t, "backend unavailable", st.Error)
	assert.Equal(t, "backend unavailable", st.Toast.Message)
}

func TestToastAutoHides(t *testing.T) {
	s := New(nil, 20*time.Millisecond)
	defer s.Close()

	s.ShowToast("hola")
	assert.True(t, s.Snapshot().Toast.Visible)
	assert.Eventually(t, func() bool {
		return !s.Snapshot().Toast.Visible
	}, time.Second, 5*time.Millisecond)
}

func TestClosedStoreIgnoresLateResults(t *testing.T) {
	s := New(nil, 0)
	gen := s.BeginLoading()
	s.Close()

	assert.False(t, s.FinishProducts(gen, []domain.Product{{ID: 1}}))
	assert.Empty(t, s.Products())
}
