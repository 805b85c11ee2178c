// Package ports defines the contracts between the order lifecycle core and its
// infrastructure: storage, the product catalog, the broker and notification delivery.
package ports

import (
	"context"
	"time"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
)

// OrderFilter narrows Find. Zero fields do not filter. CreatedFrom and CreatedTo
// are inclusive bounds on the creation time.
type OrderFilter struct {
	OrderID     *kernel.UUID
	ClientID    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// OrderRepository defines the persistence contract for order aggregates.
type OrderRepository interface {
	// Add persists a new order at its initial version.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists a mutated order. The write only succeeds if storage still holds
	// aggregate.PersistedVersion(); otherwise it fails with errs.ErrVersionConflict.
	// A missing order fails with errs.ErrObjectNotFound.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order with its items, or errs.ErrObjectNotFound.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// Find returns the orders matching filter, newest first.
	Find(ctx context.Context, filter OrderFilter) ([]*order.Order, error)
}
