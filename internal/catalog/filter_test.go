package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ovostore/internal/catalog"
	"ovostore/internal/models"
)

func sampleProducts() []models.Product {
	return []models.Product{
		{ID: "1", Name: "Slim Chinos", Price: 40, Category: models.CategoryMen, Type: models.TypePants},
		{ID: "2", Name: "Logo Tee", Price: 15, Category: models.CategoryMen, Type: models.TypeTShirt},
		{ID: "3", Name: "Rain Jacket", Price: 90, Category: models.CategoryWomen, Type: models.TypeJacket},
		{ID: "4", Name: "Cargo Pants", Price: 25, Category: models.CategoryMen, Type: models.TypePants},
		{ID: "5", Name: "Play Set", Price: 25, Category: models.CategoryKids, Type: models.TypeOutfit},
	}
}

func ids(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestApply_EmptyFilterKeepsOrder(t *testing.T) {
	got := catalog.Apply(sampleProducts(), catalog.Filter{})
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(got))
}

func TestApply_CategoryAndType(t *testing.T) {
	products := sampleProducts()

	men := catalog.Apply(products, catalog.Filter{Category: models.CategoryMen})
	assert.Equal(t, []string{"1", "2", "4"}, ids(men))

	menPants := catalog.Apply(men, catalog.Filter{Type: models.TypePants})
	assert.Equal(t, []string{"1", "4"}, ids(menPants))

	both := catalog.Apply(products, catalog.Filter{Category: models.CategoryMen, Type: models.TypePants})
	assert.Equal(t, ids(menPants), ids(both))

	none := catalog.Apply(products, catalog.Filter{Category: models.CategoryKids, Type: models.TypeJacket})
	assert.Empty(t, none)
}

func TestApply_PriceSort(t *testing.T) {
	products := sampleProducts()

	asc := catalog.Apply(products, catalog.Filter{PriceSort: catalog.SortLowToHigh})
	assert.Equal(t, []string{"2", "4", "5", "1", "3"}, ids(asc), "ties keep subscription order")

	desc := catalog.Apply(products, catalog.Filter{PriceSort: catalog.SortHighToLow})
	assert.Equal(t, []string{"3", "1", "4", "5", "2"}, ids(desc))

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(products), "input is not reordered")
}

func TestParseFilter(t *testing.T) {
	f := catalog.ParseFilter("Women", "Jacket", "high-to-low")
	assert.Equal(t, catalog.Filter{Category: models.CategoryWomen, Type: models.TypeJacket, PriceSort: catalog.SortHighToLow}, f)

	f = catalog.ParseFilter("Aliens", "Hat", "random")
	assert.Equal(t, catalog.Filter{}, f)
}

func TestMemo_ReusesResultForIdenticalInput(t *testing.T) {
	var memo catalog.Memo
	products := sampleProducts()
	f := catalog.Filter{Category: models.CategoryMen}

	first := memo.Apply(1, products, f)
	second := memo.Apply(1, products, f)
	assert.Same(t, &first[0], &second[0], "same backing array for identical input")

	third := memo.Apply(2, products, f)
	assert.NotSame(t, &first[0], &third[0])
	assert.Equal(t, ids(first), ids(third))
}
