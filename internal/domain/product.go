package domain

// FlavorStock is one entry of a product's variant catalog.
type FlavorStock struct {
	Name   string `json:"name"`
	Stock  *int   `json:"stock,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

// IsActive reports whether the entry is offered; absent means active.
func (f FlavorStock) IsActive() bool {
	return f.Active == nil || *f.Active
}

type Product struct {
	ID              int           `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	Price           float64       `json:"price"`
	Stock           int           `json:"stock"`
	ImageURL        string        `json:"image_url,omitempty"`
	Brand           string        `json:"brand,omitempty"`
	CategoryID      int           `json:"category_id"`
	CategoryName    string        `json:"category_name,omitempty"`
	Puffs           int           `json:"puffs,omitempty"`
	Flavors         []string      `json:"flavors,omitempty"`
	FlavorEnabled   bool          `json:"flavor_enabled,omitempty"`
	FlavorCatalog   []FlavorStock `json:"flavor_catalog,omitempty"`
	FlavorStockMode bool          `json:"flavor_stock_mode,omitempty"`
	IsActive        *bool         `json:"is_active,omitempty"`
	CreatedAt       string        `json:"created_at,omitempty"`
}

// Variants returns the selectable variant names in catalog order.
// The variant catalog wins over the plain flavor list when both are set.
func (p Product) Variants() []string {
	if len(p.FlavorCatalog) > 0 {
		out := make([]string, 0, len(p.FlavorCatalog))
		for _, f := range p.FlavorCatalog {
			if f.IsActive() && f.Name != "" {
				out = append(out, f.Name)
			}
		}
		return out
	}
	out := make([]string, 0, len(p.Flavors))
	for _, f := range p.Flavors {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// HasVariants reports whether a variant must be chosen before adding to cart.
func (p Product) HasVariants() bool {
	return len(p.Variants()) > 0
}

// HasVariant reports whether name is one of the product's selectable variants.
func (p Product) HasVariant(name string) bool {
	for _, v := range p.Variants() {
		if v == name {
			return true
		}
	}
	return false
}

// VariantStock returns the per-variant stock for name, if the product tracks one.
func (p Product) VariantStock(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for _, f := range p.FlavorCatalog {
		if f.Name == name && f.Stock != nil {
			return *f.Stock, true
		}
	}
	return 0, false
}
