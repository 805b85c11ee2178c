package commands

import (
	"errors"
	"fmt"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/pkg/errs"
	"orders/internal/pkg/guard"
)

var ErrCancelOrderCommandIsNotConstructed = errors.New(
	"CancelOrderCommand must be created via NewCancelOrderCommand constructor",
)

// CancelOrderCommand requests cancellation of a Pending or Processing order.
// The reason is checked by the aggregate, after the transition itself, so a blank
// reason on a shipped order reports the invalid transition.
type CancelOrderCommand struct { //nolint:recvcheck //using for validation
	orderID         kernel.UUID
	reason          string
	expectedVersion *int64

	guard guard.ConstructorGuard
}

func NewCancelOrderCommand(orderID kernel.UUID, reason string, expectedVersion *int64) (CancelOrderCommand, error) {
	cmd := CancelOrderCommand{
		reason: reason,
		guard:  guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setExpectedVersion(expectedVersion),
	); err != nil {
		return CancelOrderCommand{}, err
	}

	return cmd, nil
}

func (c CancelOrderCommand) Validate() error {
	return c.guard.Validate(ErrCancelOrderCommandIsNotConstructed)
}

func (c CancelOrderCommand) OrderID() kernel.UUID { return c.orderID }
func (c CancelOrderCommand) Reason() string       { return c.reason }

// ExpectedVersion returns the caller's version guard and whether one was given.
func (c CancelOrderCommand) ExpectedVersion() (int64, bool) {
	if c.expectedVersion == nil {
		return 0, false
	}
	return *c.expectedVersion, true
}

func (c *CancelOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	c.orderID = orderID
	return nil
}

func (c *CancelOrderCommand) setExpectedVersion(expected *int64) error {
	checked, err := checkExpectedVersion(expected)
	if err != nil {
		return err
	}
	c.expectedVersion = checked
	return nil
}

func checkExpectedVersion(expected *int64) (*int64, error) {
	if expected == nil {
		return nil, nil
	}
	if *expected < 0 {
		return nil, errs.NewValueIsInvalidErrorWithCause("expectedVersion", fmt.Errorf("%d is negative", *expected))
	}
	v := *expected
	return &v, nil
}
