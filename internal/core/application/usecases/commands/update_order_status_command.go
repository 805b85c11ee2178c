package commands

import (
	"errors"
	"strings"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/pkg/guard"
)

var ErrUpdateOrderStatusCommandIsNotConstructed = errors.New(
	"UpdateOrderStatusCommand must be created via NewUpdateOrderStatusCommand constructor",
)

// UpdateOrderStatusCommand requests a move along the lifecycle. The status text is
// parsed here, so unknown names never reach the handler. ExpectedVersion is optional;
// when present the update is refused unless the stored version matches.
type UpdateOrderStatusCommand struct { //nolint:recvcheck //using for validation
	orderID         kernel.UUID
	status          order.Status
	trackingNumber  string
	expectedVersion *int64

	guard guard.ConstructorGuard
}

// NewUpdateOrderStatusCommand validates the id and the status name.
func NewUpdateOrderStatusCommand(
	orderID kernel.UUID,
	status string,
	trackingNumber string,
	expectedVersion *int64,
) (UpdateOrderStatusCommand, error) {
	cmd := UpdateOrderStatusCommand{
		trackingNumber: strings.TrimSpace(trackingNumber),
		guard:          guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setStatus(status),
		cmd.setExpectedVersion(expectedVersion),
	); err != nil {
		return UpdateOrderStatusCommand{}, err
	}

	return cmd, nil
}

func (c UpdateOrderStatusCommand) Validate() error {
	return c.guard.Validate(ErrUpdateOrderStatusCommandIsNotConstructed)
}

func (c UpdateOrderStatusCommand) OrderID() kernel.UUID   { return c.orderID }
func (c UpdateOrderStatusCommand) Status() order.Status   { return c.status }
func (c UpdateOrderStatusCommand) TrackingNumber() string { return c.trackingNumber }

// ExpectedVersion returns the caller's version guard and whether one was given.
func (c UpdateOrderStatusCommand) ExpectedVersion() (int64, bool) {
	if c.expectedVersion == nil {
		return 0, false
	}
	return *c.expectedVersion, true
}

func (c *UpdateOrderStatusCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	c.orderID = orderID
	return nil
}

func (c *UpdateOrderStatusCommand) setStatus(raw string) error {
	status, err := order.ParseStatus(raw)
	if err != nil {
		return err
	}
	c.status = status
	return nil
}

func (c *UpdateOrderStatusCommand) setExpectedVersion(expected *int64) error {
	checked, err := checkExpectedVersion(expected)
	if err != nil {
		return err
	}
	c.expectedVersion = checked
	return nil
}
