package commands

import (
	"context"
	"time"

	"orders/internal/core/domain/model/order"
)

// UpdateOrderStatusCommandHandler moves an order along the lifecycle.
//
// Example:
//
//	expected := int64(1)
//	cmd, _ := NewUpdateOrderStatusCommand(id, "Shipped", "TRACK-1", &expected)
//	updated, err := handler.Handle(ctx, cmd)
//	if errors.Is(err, errs.ErrVersionConflict) {
//	    // reload and decide again
//	}
type UpdateOrderStatusCommandHandler struct {
	uowFactory OrderUoWFactory
}

func NewUpdateOrderStatusCommandHandler(uowFactory OrderUoWFactory) UpdateOrderStatusCommandHandler {
	return UpdateOrderStatusCommandHandler{uowFactory: uowFactory}
}

// Handle applies the transition and returns the updated snapshot. Without an
// expected version the version read inside the transaction guards the write, so a
// concurrent writer still produces a VersionConflict rather than a lost update.
func (h UpdateOrderStatusCommandHandler) Handle(ctx context.Context, cmd UpdateOrderStatusCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	expected, hasExpected := cmd.ExpectedVersion()
	return mutateOrder(ctx, h.uowFactory, cmd.OrderID(), expected, hasExpected, func(o *order.Order) error {
		return o.ChangeStatus(cmd.Status(), cmd.TrackingNumber(), time.Now())
	})
}
