package catalog

import (
	"storefront/internal/domain"
)

// Bounds is the price span of a product set.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PriceBounds returns the lowest and highest price in products, or the zero
// Bounds for an empty set.
func PriceBounds(products []domain.Product) Bounds {
	if len(products) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: products[0].Price, Max: products[0].Price}
	for _, p := range products[1:] {
		b.Min = min(b.Min, p.Price)
		b.Max = max(b.Max, p.Price)
	}
	return b
}

// ClampPrice pulls the set bounds of r into b, keeping min <= max.
// Unset sides stay unset; an empty Bounds leaves r unchanged.
func ClampPrice(r domain.PriceRange, b Bounds) domain.PriceRange {
	if b == (Bounds{}) {
		return r
	}
	clamp := func(v float64) float64 { return max(b.Min, min(v, b.Max)) }
	out := domain.PriceRange{}
	if r.Min != nil {
		v := clamp(*r.Min)
		out.Min = &v
	}
	if r.Max != nil {
		v := clamp(*r.Max)
		if out.Min != nil && v < *out.Min {
			v = *out.Min
		}
		out.Max = &v
	}
	return out
}

// Patch is a partial FilterState update. Nil fields are left unchanged.
type Patch struct {
	Search   *string            `json:"search,omitempty"`
	Price    *domain.PriceRange `json:"price,omitempty"`
	Brands   *[]string          `json:"brands,omitempty"`
	Puffs    *[]int             `json:"puffs,omitempty"`
	Flavors  *[]string          `json:"flavors,omitempty"`
	Sort     *domain.SortOrder  `json:"sort,omitempty"`
	PageSize *int               `json:"pageSize,omitempty"`
	Reset    bool               `json:"reset,omitempty"`
}

// Apply returns state with the patch applied. Any change to a filtering
// field moves the view back to page 1. Price bounds are clamped to b.
func (p Patch) Apply(state domain.FilterState, b Bounds) domain.FilterState {
	state = state.Normalized()
	next := state
	if p.Reset {
		next = domain.DefaultFilterState()
		next.PageSize = state.PageSize
		next.ScrollY = state.ScrollY
	}
	if p.Search != nil {
		next.Search = *p.Search
	}
	if p.Price != nil {
		next.Price = ClampPrice(*p.Price, b)
	}
	if p.Brands != nil {
		next.Brands = normalizeKeys(*p.Brands)
	}
	if p.Puffs != nil {
		next.Puffs = append([]int(nil), (*p.Puffs)...)
	}
	if p.Flavors != nil {
		next.Flavors = normalizeKeys(*p.Flavors)
	}
	if p.Sort != nil {
		next.Sort = *p.Sort
	}
	if p.PageSize != nil {
		next.PageSize = *p.PageSize
	}
	next = next.Normalized()
	if !next.SameFilters(state) {
		next.Page = 1
	}
	return next
}

func normalizeKeys(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, Normalize(s))
	}
	return out
}

// SetPage moves to page, clamped into [1, totalPages].
func SetPage(state domain.FilterState, page, totalPages int) domain.FilterState {
	state.Page = ClampPage(page, totalPages)
	return state
}
