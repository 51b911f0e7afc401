package cart

import (
	"context"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/store"
)

type productLookup interface {
	Product(ctx context.Context, st *store.Store, id int) (*domain.Product, error)
}

type Service struct {
	products productLookup
}

func New(products productLookup) *Service {
	return &Service{products: products}
}

type AddInput struct {
	ProductID int    `json:"productId"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant"`
}

// Summary is the cart plus its derived values.
type Summary struct {
	Lines     domain.Cart `json:"lines"`
	ItemCount int         `json:"itemCount"`
	Subtotal  float64     `json:"subtotal"`
}

func Summarize(c domain.Cart) Summary {
	if c == nil {
		c = domain.Cart{}
	}
	return Summary{Lines: c, ItemCount: c.ItemCount(), Subtotal: c.Subtotal()}
}

// Availability reports how much of (productID, variant) the session may
// still add.
func (s *Service) Availability(ctx context.Context, st *store.Store, productID int, variant string) (*domain.Product, Availability, error) {
	p, err := s.products.Product(ctx, st, productID)
	if err != nil {
		return nil, Availability{}, err
	}
	return p, Available(*p, variant, st.Cart()), nil
}

// Add puts quantity units into the cart after the stock guard accepts them.
// A zero quantity means one.
func (s *Service) Add(ctx context.Context, st *store.Store, in AddInput) (Summary, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	p, err := s.products.Product(ctx, st, in.ProductID)
	if err != nil {
		return Summary{}, err
	}
	variant := in.Variant
	if !p.HasVariants() {
		variant = ""
	}
	cart, err := st.AddToCartChecked(*p, in.Quantity, variant, func(current domain.Cart) error {
		_, err := Check(*p, variant, in.Quantity, current)
		return err
	})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(cart), nil
}

func (s *Service) Remove(st *store.Store, productID int, variant string) Summary {
	return Summarize(st.RemoveFromCart(productID, variant))
}

// UpdateQuantity sets a line's quantity. When the product is still known
// the new quantity may not exceed its stock.
func (s *Service) UpdateQuantity(ctx context.Context, st *store.Store, productID, quantity int, variant string) (Summary, error) {
	if quantity < 1 {
		return Summary{}, domain.ErrInvalidQuantity
	}
	p, err := s.products.Product(ctx, st, productID)
	switch {
	case err == nil:
		if quantity > MaxStock(*p, variant) {
			return Summary{}, ErrExceedsStock
		}
	case errors.Is(err, domain.ErrNotFound):
	default:
		return Summary{}, err
	}
	cart, err := st.UpdateCartQuantity(productID, quantity, variant)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(cart), nil
}

func (s *Service) Clear(st *store.Store) Summary {
	st.ClearCart()
	return Summarize(st.Cart())
}

func (s *Service) Get(st *store.Store) Summary {
	return Summarize(st.Cart())
}
