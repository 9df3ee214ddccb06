package catalog

import (
	"sort"

	"catalog-builder/models"
)

// BuildIndex groups products under every category they declare. A product with
// two categories appears in both lists; order within a list is file order.
func BuildIndex(products []*models.Product) *models.CategoryIndex {
	idx := &models.CategoryIndex{
		Categories: make(map[string][]*models.Product),
	}

	for _, p := range products {
		for _, category := range p.Categories {
			if _, ok := idx.Categories[category]; !ok {
				idx.Keys = append(idx.Keys, category)
			}
			idx.Categories[category] = append(idx.Categories[category], p)
		}
	}

	sort.Strings(idx.Keys)
	return idx
}
