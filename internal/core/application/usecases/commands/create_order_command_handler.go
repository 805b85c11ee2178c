package commands

import (
	"context"
	"time"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/core/ports"
)

// CreateOrderCommandHandler places new orders. Product names and prices are
// snapshotted from the catalog before the transaction starts, so a slow catalog
// never holds a database transaction open.
//
// Example:
//
//	handler := NewCreateOrderCommandHandler(uowFactory, catalog)
//	created, err := handler.Handle(ctx, cmd)
//	switch {
//	case errs.IsValidation(err):
//	    // bad request, including unknown products
//	case errors.Is(err, errs.ErrTransient):
//	    // retry later
//	}
type CreateOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	catalog    ports.ProductCatalog
}

// NewCreateOrderCommandHandler creates a handler for order creation operations.
func NewCreateOrderCommandHandler(uowFactory OrderUoWFactory, catalog ports.ProductCatalog) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		uowFactory: uowFactory,
		catalog:    catalog,
	}
}

// Handle resolves every line against the catalog, builds the order in Pending at
// version 0 and persists it. The Created event is staged by the unit of work in the
// same transaction.
func (h CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	items, err := h.resolveItems(ctx, cmd.Lines())
	if err != nil {
		return nil, err
	}

	created, err := order.NewOrder(cmd.OrderID(), cmd.ClientID(), cmd.ShippingAddress(), items, time.Now())
	if err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, created); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return created, nil
}

func (h CreateOrderCommandHandler) resolveItems(ctx context.Context, lines []OrderLine) ([]order.Item, error) {
	items := make([]order.Item, 0, len(lines))
	for _, line := range lines {
		product, err := h.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		item, err := order.NewItem(kernel.NewUUID(), product.ID, product.Name, line.Quantity, product.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
