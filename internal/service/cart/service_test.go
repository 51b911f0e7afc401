package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/store"
)

type stubProducts struct {
	products map[int]domain.Product
	err      error
	lastID   int
}

func (s *stubProducts) Product(_ context.Context, _ *store.Store, id int) (*domain.Product, error) {
	s.lastID = id
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func newTestService() (*Service, *store.Store) {
	products := &stubProducts{products: map[int]domain.Product{
		7:  {ID: 7, Name: "Pod", Price: 500, Stock: 10},
		10: redProduct(),
	}}
	return New(products), store.New(nil, 0)
}

func TestServiceAddMerges(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	if _, err := svc.Add(ctx, st, AddInput{ProductID: 7, Quantity: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum, err := svc.Add(ctx, st, AddInput{ProductID: 7, Quantity: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sum.Lines) != 1 || sum.Lines[0].Quantity != 5 || sum.Lines[0].Price != 500 {
		t.Fatalf("unexpected lines %+v", sum.Lines)
	}
	if sum.ItemCount != 5 || sum.Subtotal != 2500 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestServiceAddDefaultsQuantityToOne(t *testing.T) {
	svc, st := newTestService()
	sum, err := svc.Add(context.Background(), st, AddInput{ProductID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.ItemCount != 1 {
		t.Fatalf("expected 1 item, got %d", sum.ItemCount)
	}
}

func TestServiceAddRejectsWithoutMutation(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	if _, err := svc.Add(ctx, st, AddInput{ProductID: 10, Quantity: 1, Variant: "red"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Add(ctx, st, AddInput{ProductID: 10, Quantity: 1, Variant: "red"})
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if got := st.Cart().Quantity(10, "red"); got != 1 {
		t.Fatalf("cart mutated on rejection: %d", got)
	}
	if _, err := svc.Add(ctx, st, AddInput{ProductID: 10, Quantity: 1}); !errors.Is(err, ErrVariantRequired) {
		t.Fatalf("expected ErrVariantRequired, got %v", err)
	}
	if _, err := svc.Add(ctx, st, AddInput{ProductID: 99, Quantity: 1}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type fixedProduct struct{ p domain.Product }

func (f fixedProduct) Product(context.Context, *store.Store, int) (*domain.Product, error) {
	p := f.p
	return &p, nil
}

func TestServiceAddConcurrentNeverExceedsStock(t *testing.T) {
	svc := New(fixedProduct{p: domain.Product{ID: 3, Name: "Coil", Price: 900, Stock: 3}})
	st := store.New(nil, 0)

	const workers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(context.Background(), st, AddInput{ProductID: 3, Quantity: 1})
			if err == nil {
				return
			}
			if !errors.Is(err, ErrOutOfStock) {
				t.Errorf("unexpected error: %v", err)
			}
			mu.Lock()
			rejected++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if got := st.Cart().Quantity(3, ""); got != 3 {
		t.Fatalf("expected 3 in cart, got %d", got)
	}
	if rejected != workers-3 {
		t.Fatalf("expected %d rejections, got %d", workers-3, rejected)
	}
}

func TestServiceUpdateQuantity(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	if _, err := svc.Add(ctx, st, AddInput{ProductID: 7, Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum, err := svc.UpdateQuantity(ctx, st, 7, 4, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.ItemCount != 4 {
		t.Fatalf("expected 4, got %d", sum.ItemCount)
	}
	if _, err := svc.UpdateQuantity(ctx, st, 7, 11, ""); !errors.Is(err, ErrExceedsStock) {
		t.Fatalf("expected ErrExceedsStock, got %v", err)
	}
	if _, err := svc.UpdateQuantity(ctx, st, 7, 0, ""); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestServiceUpdateQuantityUnknownProductStillUpdatesLine(t *testing.T) {
	products := &stubProducts{products: map[int]domain.Product{}}
	svc := New(products)
	st := store.New(domain.Cart{{ProductID: 5, Quantity: 1}}, 0)

	sum, err := svc.UpdateQuantity(context.Background(), st, 5, 3, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.ItemCount != 3 {
		t.Fatalf("expected 3, got %d", sum.ItemCount)
	}
}

func TestServiceRemoveAndClear(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	svc.Add(ctx, st, AddInput{ProductID: 7, Quantity: 1})
	svc.Add(ctx, st, AddInput{ProductID: 10, Quantity: 1, Variant: "blue"})

	sum := svc.Remove(st, 7, "")
	if len(sum.Lines) != 1 || sum.Lines[0].ProductID != 10 {
		t.Fatalf("unexpected lines %+v", sum.Lines)
	}
	sum = svc.Clear(st)
	if len(sum.Lines) != 0 || sum.Subtotal != 0 {
		t.Fatalf("expected empty cart, got %+v", sum)
	}
}
