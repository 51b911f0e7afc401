package catalog

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"storefront/internal/domain"
)

// Option is a selectable brand or flavor with the number of scoped
// products carrying it.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type PuffsOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Options struct {
	Brands  []Option      `json:"brands"`
	Puffs   []PuffsOption `json:"puffs"`
	Flavors []Option      `json:"flavors"`
}

// DeriveOptions builds the filter choices from the category-scoped products.
// It must not be given the filtered set: counts stay stable while the
// visitor toggles selections.
func DeriveOptions(scoped []domain.Product) Options {
	brands := newCounter()
	flavors := newCounter()
	puffs := map[int]int{}

	for _, p := range scoped {
		brands.add(p.Brand)
		seen := map[string]bool{}
		for _, v := range p.Variants() {
			key := Normalize(v)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			flavors.add(v)
		}
		if p.Puffs > 0 {
			puffs[p.Puffs]++
		}
	}

	out := Options{
		Brands:  brands.sorted(),
		Flavors: flavors.sorted(),
		Puffs:   make([]PuffsOption, 0, len(puffs)),
	}
	for value, count := range puffs {
		out.Puffs = append(out.Puffs, PuffsOption{Value: value, Label: strconv.Itoa(value), Count: count})
	}
	slices.SortFunc(out.Puffs, func(a, b PuffsOption) int { return cmp.Compare(a.Value, b.Value) })
	return out
}

type counter struct {
	order []string
	opts  map[string]*Option
}

func newCounter() *counter {
	return &counter{opts: map[string]*Option{}}
}

// add counts label under its normalized key. The first spelling seen
// becomes the display label.
func (c *counter) add(label string) {
	key := Normalize(label)
	if key == "" {
		return
	}
	if o, ok := c.opts[key]; ok {
		o.Count++
		return
	}
	c.opts[key] = &Option{Key: key, Label: strings.TrimSpace(label), Count: 1}
	c.order = append(c.order, key)
}

func (c *counter) sorted() []Option {
	out := make([]Option, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.opts[key])
	}
	col := collate.New(language.Spanish, collate.IgnoreCase, collate.IgnoreDiacritics)
	slices.SortStableFunc(out, func(a, b Option) int {
		if r := col.CompareString(a.Label, b.Label); r != 0 {
			return r
		}
		return strings.Compare(a.Key, b.Key)
	})
	return out
}
