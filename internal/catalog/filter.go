// Package catalog derives storefront views from the live product list.
package catalog

import (
	"sort"
	"sync"

	"ovostore/internal/models"
)

// PriceSort orders a filtered list by price.
type PriceSort string

const (
	SortNone      PriceSort = ""
	SortLowToHigh PriceSort = "low-to-high"
	SortHighToLow PriceSort = "high-to-low"
)

// Filter holds the storefront criteria. Zero values match everything.
type Filter struct {
	Category  models.Category    `json:"category"`
	Type      models.ProductType `json:"type"`
	PriceSort PriceSort          `json:"sort"`
}

// ParseFilter builds a Filter from raw query values, dropping values it does not know.
func ParseFilter(category, productType, priceSort string) Filter {
	var f Filter
	if c := models.Category(category); c.Valid() {
		f.Category = c
	}
	if t := models.ProductType(productType); t.Valid() {
		f.Type = t
	}
	switch PriceSort(priceSort) {
	case SortLowToHigh, SortHighToLow:
		f.PriceSort = PriceSort(priceSort)
	}
	return f
}

// Apply returns the products matching f, sorted when f asks for it. The input slice
// is never reordered.
func Apply(products []models.Product, f Filter) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Type != "" && p.Type != f.Type {
			continue
		}
		out = append(out, p)
	}

	switch f.PriceSort {
	case SortLowToHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortHighToLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	}
	return out
}

// Memo remembers the last Apply result for one (version, filter) pair.
type Memo struct {
	mu      sync.Mutex
	valid   bool
	version uint64
	filter  Filter
	result  []models.Product
}

// Apply returns the cached result when version and f match the previous call.
func (m *Memo) Apply(version uint64, products []models.Product, f Filter) []models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid && m.version == version && m.filter == f {
		return m.result
	}
	m.result = Apply(products, f)
	m.version, m.filter, m.valid = version, f, true
	return m.result
}
