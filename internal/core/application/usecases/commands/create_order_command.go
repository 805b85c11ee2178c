package commands

import (
	"errors"
	"fmt"
	"strings"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/pkg/errs"
	"orders/internal/pkg/guard"
)

var ErrCreateOrderCommandIsNotConstructed = errors.New(
	"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
)

// OrderLine is one requested line: which product and how many.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// CreateOrderCommand represents a request to place a new order.
// Names and prices are not part of the request; they are resolved from the catalog.
//
// Example:
//
//	cmd, err := NewCreateOrderCommand(kernel.NewUUID(), "client-1", "1 Main St",
//	    []OrderLine{{ProductID: "P1", Quantity: 2}})
//	if err != nil {
//	    return fmt.Errorf("invalid order data: %w", err)
//	}
//
//	created, err := handler.Handle(ctx, cmd)
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID         kernel.UUID
	clientID        string
	shippingAddress string
	lines           []OrderLine

	guard guard.ConstructorGuard
}

// NewCreateOrderCommand validates everything that can be checked without the catalog.
// Every violation is reported, joined.
func NewCreateOrderCommand(
	orderID kernel.UUID,
	clientID string,
	shippingAddress string,
	lines []OrderLine,
) (CreateOrderCommand, error) {
	cmd := CreateOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setClientID(clientID),
		cmd.setShippingAddress(shippingAddress),
		cmd.setLines(lines),
	); err != nil {
		return CreateOrderCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

func (c CreateOrderCommand) OrderID() kernel.UUID    { return c.orderID }
func (c CreateOrderCommand) ClientID() string        { return c.clientID }
func (c CreateOrderCommand) ShippingAddress() string { return c.shippingAddress }
func (c CreateOrderCommand) Lines() []OrderLine      { return append([]OrderLine(nil), c.lines...) }

func (c *CreateOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	c.orderID = orderID
	return nil
}

func (c *CreateOrderCommand) setClientID(clientID string) error {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return errs.NewValueIsRequiredError("clientId")
	}
	c.clientID = clientID
	return nil
}

func (c *CreateOrderCommand) setShippingAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return errs.NewValueIsRequiredError("shippingAddress")
	}
	c.shippingAddress = address
	return nil
}

func (c *CreateOrderCommand) setLines(lines []OrderLine) error {
	if len(lines) == 0 {
		return errs.NewValueIsRequiredError("items")
	}

	var problems []error
	cleaned := make([]OrderLine, 0, len(lines))
	for idx, line := range lines {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			problems = append(problems, errs.NewValueIsRequiredError(fmt.Sprintf("items[%d].productId", idx)))
		}
		if line.Quantity <= 0 {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
				fmt.Sprintf("items[%d].quantity", idx),
				fmt.Errorf("%d is not greater than 0", line.Quantity),
			))
		}
		cleaned = append(cleaned, OrderLine{ProductID: productID, Quantity: line.Quantity})
	}
	if err := errors.Join(problems...); err != nil {
		return err
	}

	c.lines = cleaned
	return nil
}
