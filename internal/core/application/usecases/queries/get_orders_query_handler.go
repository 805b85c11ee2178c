package queries

import (
	"context"

	"orders/internal/core/domain/model/order"
)

// GetOrdersQueryHandler lists orders newest first.
type GetOrdersQueryHandler struct {
	reader OrderReader
}

func NewGetOrdersQueryHandler(reader OrderReader) GetOrdersQueryHandler {
	return GetOrdersQueryHandler{reader: reader}
}

// Handle returns the matching orders; no match is an empty slice, not an error.
func (h GetOrdersQueryHandler) Handle(ctx context.Context, query GetOrdersQuery) ([]*order.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	orders, err := h.reader.Find(ctx, query.Filter())
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = make([]*order.Order, 0)
	}
	return orders, nil
}
