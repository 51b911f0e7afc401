package cart

import (
	"errors"

	"storefront/internal/domain"
)

var (
	ErrVariantRequired = errors.New("a flavor must be selected")
	ErrUnknownVariant  = errors.New("flavor not offered for this product")
	ErrOutOfStock      = errors.New("no more stock available for this product")
	ErrExceedsStock    = errors.New("requested quantity exceeds available stock")
)

// Availability is how much of a (product, variant) can still be added.
type Availability struct {
	MaxStock       int     `json:"maxStock"`
	InCart         int     `json:"inCart"`
	AvailableToAdd int     `json:"availableToAdd"`
	Stepper        Stepper `json:"stepper"`
}

// Stepper is the quantity range offered by the selector.
type Stepper struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// MaxStock is the variant's own stock when it tracks one, otherwise the
// product stock.
func MaxStock(p domain.Product, variant string) int {
	if stock, ok := p.VariantStock(variant); ok {
		return stock
	}
	return p.Stock
}

// Available computes the remaining quantity for (p, variant) given cart.
// AvailableToAdd may be zero or negative.
func Available(p domain.Product, variant string, cart domain.Cart) Availability {
	maxStock := MaxStock(p, variant)
	inCart := cart.Quantity(p.ID, variant)
	available := maxStock - inCart
	return Availability{
		MaxStock:       maxStock,
		InCart:         inCart,
		AvailableToAdd: available,
		Stepper:        StepperRange(available),
	}
}

// StepperRange is [1, max(1, available)].
func StepperRange(available int) Stepper {
	return Stepper{Min: 1, Max: max(1, available)}
}

// Check decides whether quantity units of (p, variant) may be added.
func Check(p domain.Product, variant string, quantity int, cart domain.Cart) (Availability, error) {
	if quantity < 1 {
		return Availability{}, domain.ErrInvalidQuantity
	}
	if p.HasVariants() {
		if variant == "" {
			return Availability{}, ErrVariantRequired
		}
		if !p.HasVariant(variant) {
			return Availability{}, ErrUnknownVariant
		}
	} else {
		variant = ""
	}
	a := Available(p, variant, cart)
	if a.AvailableToAdd <= 0 {
		return a, ErrOutOfStock
	}
	if quantity > a.AvailableToAdd {
		return a, ErrExceedsStock
	}
	return a, nil
}
