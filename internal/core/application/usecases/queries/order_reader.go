// Package queries contains read operations over committed orders.
package queries

import (
	"context"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/core/ports"
)

// OrderReader is the read side of the order store. It sees committed state only.
type OrderReader interface {
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)
	Find(ctx context.Context, filter ports.OrderFilter) ([]*order.Order, error)
}
