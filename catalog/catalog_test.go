package catalog_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/renovo-atelier/atelier/catalog"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	products := c.Products()
	require.Len(t, products, 4)

	titles := make([]string, 0, len(products))
	for _, p := range products {
		titles = append(titles, p.Title)
		require.True(t, strings.HasPrefix(p.Image, "/services/"), p.Image)
		require.NotEmpty(t, p.Price)
	}
	require.Equal(t, []string{"Repair", "Tailoring", "Alteration", "Embroidery"}, titles)

	repair, ok := c.Find("Repair")
	require.True(t, ok)
	require.Equal(t, "/services/repair.svg", repair.Image)

	_, ok = c.Find("Dry cleaning")
	require.False(t, ok)
}

func TestProductsReturnsACopy(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	products := c.Products()
	products[0].Title = "changed"

	require.Equal(t, "Repair", c.Products()[0].Title)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		err  error
	}{
		{name: "empty", doc: "products: []", err: catalog.ErrEmptyCatalog},
		{name: "missing price", doc: "products:\n  - title: Repair\n    image: /r.svg\n", err: catalog.ErrInvalidProduct},
		{
			name: "duplicate",
			doc:  "products:\n  - {title: Repair, price: 1, image: /a.svg}\n  - {title: Repair, price: 2, image: /b.svg}\n",
			err:  catalog.ErrInvalidProduct,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := catalog.Parse(strings.NewReader(tc.doc))
			require.ErrorIs(t, err, tc.err)
		})
	}

	_, err := catalog.Parse(strings.NewReader("products:\n  - {title: Repair, colour: red}\n"))
	require.Error(t, err)
}
