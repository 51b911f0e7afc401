package domain

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// DefaultCategories is the storefront's fixed navigation list.
var DefaultCategories = []Category{
	{ID: 1, Name: "Vapes Desechables", Slug: "vapes-desechables"},
	{ID: 2, Name: "Pods Recargables", Slug: "pods-recargables"},
	{ID: 3, Name: "Líquidos", Slug: "liquidos"},
	{ID: 4, Name: "Accesorios", Slug: "accesorios"},
	{ID: 5, Name: "Celulares", Slug: "celulares"},
	{ID: 6, Name: "Perfumes", Slug: "perfumes"},
}
