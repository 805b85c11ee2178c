package queries

import (
	"errors"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/pkg/guard"
)

var ErrGetOrderByIDQueryIsNotConstructed = errors.New(
	"GetOrderByIDQuery must be created via NewGetOrderByIDQuery constructor",
)

// GetOrderByIDQuery retrieves one order with its items.
//
// Example:
//
//	query, err := NewGetOrderByIDQuery(id)
//	if err != nil {
//	    return err
//	}
//	o, err := handler.Handle(ctx, query)
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    // 404
//	}
type GetOrderByIDQuery struct {
	orderID kernel.UUID
	guard   guard.ConstructorGuard
}

func NewGetOrderByIDQuery(orderID kernel.UUID) (GetOrderByIDQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetOrderByIDQuery{}, err
	}
	return GetOrderByIDQuery{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetOrderByIDQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderByIDQueryIsNotConstructed)
}

func (q GetOrderByIDQuery) OrderID() kernel.UUID {
	return q.orderID
}
