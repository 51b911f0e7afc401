package catalog

import (
	"cmp"
	"slices"
	"strings"

	"storefront/internal/domain"
)

// Scope selects the products a catalog view works on.
type Scope struct {
	// CategoryID restricts to one category; zero means all products.
	CategoryID int
	// Preview, when positive and no category is set, keeps only that many
	// leading products.
	Preview int
}

// Result is one rendered catalog window.
type Result struct {
	Items      []domain.Product   `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
	Options    Options            `json:"options"`
	Bounds     Bounds             `json:"bounds"`
	State      domain.FilterState `json:"state"`
}

// Apply restricts products to the scope. The input slice is not modified.
func (s Scope) Apply(products []domain.Product) []domain.Product {
	if s.CategoryID == 0 {
		n := len(products)
		if s.Preview > 0 && s.Preview < n {
			n = s.Preview
		}
		return slices.Clone(products[:n])
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.CategoryID == s.CategoryID {
			out = append(out, p)
		}
	}
	return out
}

// Filter keeps the products matching every predicate of state.
func Filter(products []domain.Product, state domain.FilterState) []domain.Product {
	query := Normalize(state.Search)
	brands := toSet(state.Brands)
	flavors := toSet(state.Flavors)
	puffs := map[int]bool{}
	for _, v := range state.Puffs {
		puffs[v] = true
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if query != "" && !strings.Contains(Normalize(p.Name), query) && !strings.Contains(Normalize(p.Brand), query) {
			continue
		}
		if !state.Price.Contains(p.Price) {
			continue
		}
		if len(brands) > 0 && !brands[Normalize(p.Brand)] {
			continue
		}
		if len(puffs) > 0 && (p.Puffs <= 0 || !puffs[p.Puffs]) {
			continue
		}
		if len(flavors) > 0 && !hasAnyVariant(p, flavors) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasAnyVariant(p domain.Product, selected map[string]bool) bool {
	for _, v := range p.Variants() {
		if selected[Normalize(v)] {
			return true
		}
	}
	return false
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		if n := Normalize(k); n != "" {
			set[n] = true
		}
	}
	return set
}

// Sort orders products by price. Ties, and the default order, keep input
// order.
func Sort(products []domain.Product, order domain.SortOrder) []domain.Product {
	out := slices.Clone(products)
	switch order {
	case domain.SortPriceAsc:
		slices.SortStableFunc(out, func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) })
	case domain.SortPriceDesc:
		slices.SortStableFunc(out, func(a, b domain.Product) int { return cmp.Compare(b.Price, a.Price) })
	}
	return out
}

// TotalPages is ceil(total/size), never below one.
func TotalPages(total, size int) int {
	if size < 1 {
		size = domain.DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage forces page into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate returns the window for page (clamped) and the page actually used.
func Paginate(products []domain.Product, page, size int) ([]domain.Product, int) {
	if size < 1 {
		size = domain.DefaultPageSize
	}
	page = ClampPage(page, TotalPages(len(products), size))
	start := (page - 1) * size
	if start >= len(products) {
		return []domain.Product{}, page
	}
	end := min(start+size, len(products))
	return slices.Clone(products[start:end]), page
}

// Run executes the full pipeline: scope, options, filter, sort, paginate.
func Run(products []domain.Product, scope Scope, state domain.FilterState) Result {
	state = state.Normalized()
	scoped := scope.Apply(products)
	filtered := Sort(Filter(scoped, state), state.Sort)
	items, page := Paginate(filtered, state.Page, state.PageSize)
	state.Page = page
	return Result{
		Items:      items,
		Total:      len(filtered),
		Page:       page,
		PageSize:   state.PageSize,
		TotalPages: TotalPages(len(filtered), state.PageSize),
		Options:    DeriveOptions(scoped),
		Bounds:     PriceBounds(scoped),
		State:      state,
	}
}

// Search returns up to limit products whose name or brand contains query.
func Search(products []domain.Product, query string, limit int) []domain.Product {
	q := Normalize(query)
	if q == "" {
		return []domain.Product{}
	}
	out := make([]domain.Product, 0)
	for _, p := range products {
		if strings.Contains(Normalize(p.Name), q) || strings.Contains(Normalize(p.Brand), q) {
			out = append(out, p)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}
