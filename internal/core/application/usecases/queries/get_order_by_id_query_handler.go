package queries

import (
	"context"

	"orders/internal/core/domain/model/order"
)

// GetOrderByIDQueryHandler loads a single order snapshot.
type GetOrderByIDQueryHandler struct {
	reader OrderReader
}

func NewGetOrderByIDQueryHandler(reader OrderReader) GetOrderByIDQueryHandler {
	return GetOrderByIDQueryHandler{reader: reader}
}

// Handle returns the order or an errs.ObjectNotFoundError.
func (h GetOrderByIDQueryHandler) Handle(ctx context.Context, query GetOrderByIDQuery) (*order.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return h.reader.Get(ctx, query.OrderID())
}
