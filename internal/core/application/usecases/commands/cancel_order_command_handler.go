package commands

import (
	"context"
	"time"

	"orders/internal/core/domain/model/order"
)

// CancelOrderCommandHandler cancels Pending and Processing orders.
type CancelOrderCommandHandler struct {
	uowFactory OrderUoWFactory
}

func NewCancelOrderCommandHandler(uowFactory OrderUoWFactory) CancelOrderCommandHandler {
	return CancelOrderCommandHandler{uowFactory: uowFactory}
}

// Handle cancels the order and returns the updated snapshot. Cancelling an order
// that is already Cancelled is an InvalidTransition, not a no-op.
func (h CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	expected, hasExpected := cmd.ExpectedVersion()
	return mutateOrder(ctx, h.uowFactory, cmd.OrderID(), expected, hasExpected, func(o *order.Order) error {
		return o.Cancel(cmd.Reason(), time.Now())
	})
}
