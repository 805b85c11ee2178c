package commands

import (
	"context"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
)

// mutateOrder runs one guarded lifecycle mutation in its own transaction:
// load (NotFound), version check (VersionConflict), then the transition itself.
// Any failure rolls back, leaving the order, its version and the outbox untouched.
func mutateOrder(
	ctx context.Context,
	uowFactory OrderUoWFactory,
	orderID kernel.UUID,
	expectedVersion int64,
	hasExpectedVersion bool,
	mutate func(o *order.Order) error,
) (*order.Order, error) {
	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orderRepo := uow.OrderRepository()
	o, err := orderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if hasExpectedVersion {
		if err = o.EnsureVersion(expectedVersion); err != nil {
			return nil, err
		}
	}

	if err = mutate(o); err != nil {
		return nil, err
	}

	if err = orderRepo.Update(ctx, o); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}
