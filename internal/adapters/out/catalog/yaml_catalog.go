// Package catalog provides the product catalog used when orders are created.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/ports"
	"orders/internal/pkg/errs"

	"gopkg.in/yaml.v3"
)

var _ ports.ProductCatalog = (*StaticCatalog)(nil)

type productRecord struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

type catalogFile struct {
	Products []productRecord `yaml:"products"`
}

// StaticCatalog serves products from memory. It is seeded from a YAML document:
//
//	products:
//	  - id: P1
//	    name: Widget
//	    price: "10.00"
type StaticCatalog struct {
	mu       sync.RWMutex
	products map[string]ports.Product
}

func NewStaticCatalog(products ...ports.Product) *StaticCatalog {
	c := &StaticCatalog{products: make(map[string]ports.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// LoadFile reads a catalog document from path.
func LoadFile(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Every product needs an id, a name and a
// non-negative price; ids must be unique.
func Parse(data []byte) (*StaticCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("catalog", err)
	}

	c := NewStaticCatalog()
	for idx, record := range file.Products {
		product, err := record.toProduct()
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", idx, err)
		}
		if _, exists := c.products[product.ID]; exists {
			return nil, errs.NewValueIsInvalidErrorWithCause("products", fmt.Errorf("duplicate id %q", product.ID))
		}
		c.products[product.ID] = product
	}
	return c, nil
}

func (r productRecord) toProduct() (ports.Product, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return ports.Product{}, errs.NewValueIsRequiredError("id")
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return ports.Product{}, errs.NewValueIsRequiredError("name")
	}
	price, err := kernel.MoneyFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return ports.Product{}, err
	}
	return ports.Product{ID: id, Name: name, Price: price}, nil
}

func (c *StaticCatalog) GetProduct(ctx context.Context, productID string) (ports.Product, error) {
	if err := ctx.Err(); err != nil {
		return ports.Product{}, errs.NewTransientError("get product", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	product, ok := c.products[productID]
	if !ok {
		return ports.Product{}, errs.NewUnknownProductError(productID)
	}
	return product, nil
}

// Len reports how many products are loaded.
func (c *StaticCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}
