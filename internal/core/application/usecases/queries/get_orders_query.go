package queries

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/ports"
	"orders/internal/pkg/errs"
	"orders/internal/pkg/guard"
)

var ErrGetOrdersQueryIsNotConstructed = errors.New(
	"GetOrdersQuery must be created via NewGetOrdersQuery constructor",
)

// GetOrdersQuery lists orders by optional criteria. Dates are calendar days in UTC:
// StartDate includes the whole start day and EndDate includes the whole end day.
type GetOrdersQuery struct {
	filter ports.OrderFilter
	guard  guard.ConstructorGuard
}

// NewGetOrdersQuery builds the filter. Nil arguments do not filter. An end date
// before the start date is a validation error.
//
// Example:
//
//	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
//	query, err := NewGetOrdersQuery(nil, "client-1", &start, nil)
func NewGetOrdersQuery(orderID *kernel.UUID, clientID string, startDate, endDate *time.Time) (GetOrdersQuery, error) {
	filter := ports.OrderFilter{ClientID: strings.TrimSpace(clientID)}

	if orderID != nil {
		if err := orderID.Validate(); err != nil {
			return GetOrdersQuery{}, err
		}
		id := *orderID
		filter.OrderID = &id
	}

	if startDate != nil {
		from := startOfDay(*startDate)
		filter.CreatedFrom = &from
	}
	if endDate != nil {
		to := startOfDay(*endDate).Add(24*time.Hour - time.Nanosecond)
		filter.CreatedTo = &to
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedTo.Before(*filter.CreatedFrom) {
		return GetOrdersQuery{}, errs.NewValueIsInvalidErrorWithCause(
			"endDate",
			fmt.Errorf("%s is before start date %s", endDate.Format(time.DateOnly), startDate.Format(time.DateOnly)),
		)
	}

	return GetOrdersQuery{filter: filter, guard: guard.NewConstructorGuard()}, nil
}

func (q GetOrdersQuery) Validate() error {
	return q.guard.Validate(ErrGetOrdersQueryIsNotConstructed)
}

func (q GetOrdersQuery) Filter() ports.OrderFilter {
	return q.filter
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
