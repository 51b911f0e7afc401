package domain

import (
	"math"
	"slices"
)

type SortOrder string

const (
	SortDefault   SortOrder = "default"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
)

// Valid reports whether s is a known sort order.
func (s SortOrder) Valid() bool {
	switch s {
	case SortDefault, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

const DefaultPageSize = 12

// PriceRange bounds are inclusive. A nil bound is unbounded on that side.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether price falls within the range. Non-finite bounds
// are treated as absent.
func (r PriceRange) Contains(price float64) bool {
	if r.Min != nil && !isInf(*r.Min) && price < *r.Min {
		return false
	}
	if r.Max != nil && !isInf(*r.Max) && price > *r.Max {
		return false
	}
	return true
}

func (r PriceRange) Equal(o PriceRange) bool {
	return boundEqual(r.Min, o.Min) && boundEqual(r.Max, o.Max)
}

func boundEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func isInf(v float64) bool {
	return math.IsInf(v, 0) || math.IsNaN(v)
}

// FilterState is everything a visitor chose for one catalog view.
// Selection sets are kept sorted and deduplicated so two states with the
// same selections compare equal.
type FilterState struct {
	Search   string     `json:"search,omitempty"`
	Price    PriceRange `json:"price"`
	Brands   []string   `json:"brands,omitempty"`
	Puffs    []int      `json:"puffs,omitempty"`
	Flavors  []string   `json:"flavors,omitempty"`
	Sort     SortOrder  `json:"sort"`
	PageSize int        `json:"pageSize"`
	Page     int        `json:"page"`
	ScrollY  float64    `json:"scrollY"`
}

// DefaultFilterState is the state of a view with nothing selected.
func DefaultFilterState() FilterState {
	return FilterState{
		Sort:     SortDefault,
		PageSize: DefaultPageSize,
		Page:     1,
	}
}

// Normalized fills zero values with defaults and canonicalizes the sets.
func (f FilterState) Normalized() FilterState {
	if !f.Sort.Valid() {
		f.Sort = SortDefault
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.ScrollY < 0 || isInf(f.ScrollY) {
		f.ScrollY = 0
	}
	f.Brands = canonicalStrings(f.Brands)
	f.Flavors = canonicalStrings(f.Flavors)
	f.Puffs = canonicalInts(f.Puffs)
	return f
}

// SameFilters reports whether the filtering inputs (everything except page
// and scroll) are identical.
func (f FilterState) SameFilters(o FilterState) bool {
	return f.Search == o.Search &&
		f.Price.Equal(o.Price) &&
		slices.Equal(f.Brands, o.Brands) &&
		slices.Equal(f.Puffs, o.Puffs) &&
		slices.Equal(f.Flavors, o.Flavors) &&
		f.Sort == o.Sort &&
		f.PageSize == o.PageSize
}

// Equal compares every field, including page and scroll offset.
func (f FilterState) Equal(o FilterState) bool {
	return f.SameFilters(o) && f.Page == o.Page && f.ScrollY == o.ScrollY
}

func canonicalStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func canonicalInts(in []int) []int {
	out := make([]int, 0, len(in))
	for _, v := range in {
		if v > 0 {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}
