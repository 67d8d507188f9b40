// Package catalog lists the services the atelier offers.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyCatalog is returned for a catalog without products.
	ErrEmptyCatalog = errors.New("catalog has no products")
	// ErrInvalidProduct is returned for a product missing a required field or
	// repeating the title of another.
	ErrInvalidProduct = errors.New("invalid product")
)

//go:embed products.yaml
var defaultProducts []byte

// Product is one offered service.
type Product struct {
	Title string `yaml:"title"`
	Price string `yaml:"price"`
	Image string `yaml:"image"`
}

// Catalog is an ordered, validated product list.
type Catalog struct {
	products []Product
}

type document struct {
	Products []Product `yaml:"products"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultProducts))
}

// Parse reads a YAML catalog document.
func Parse(r io.Reader) (*Catalog, error) {
	var doc document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(doc.Products) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]struct{}, len(doc.Products))
	for i, p := range doc.Products {
		if p.Title == "" || p.Price == "" || p.Image == "" {
			return nil, fmt.Errorf("%w: product %d needs title, price and image", ErrInvalidProduct, i)
		}
		if _, dup := seen[p.Title]; dup {
			return nil, fmt.Errorf("%w: duplicate title %q", ErrInvalidProduct, p.Title)
		}
		seen[p.Title] = struct{}{}
	}
	return &Catalog{products: doc.Products}, nil
}

// Products returns the products in display order.
func (c *Catalog) Products() []Product {
	return slices.Clone(c.products)
}

// Find returns the product with title.
func (c *Catalog) Find(title string) (Product, bool) {
	idx := slices.IndexFunc(c.products, func(p Product) bool { return p.Title == title })
	if idx < 0 {
		return Product{}, false
	}
	return c.products[idx], true
}
