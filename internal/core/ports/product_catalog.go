package ports

import (
	"context"

	"orders/internal/core/domain/model/kernel"
)

// Product is the catalog snapshot copied into an order item.
type Product struct {
	ID    string
	Name  string
	Price kernel.Money
}

// ProductCatalog resolves product names and prices at order creation.
type ProductCatalog interface {
	// GetProduct returns errs.UnknownProductError when the catalog confirms the
	// product does not exist and errs.TransientError when the lookup itself failed.
	GetProduct(ctx context.Context, productID string) (Product, error)
}
