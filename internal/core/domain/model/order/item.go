package order

import (
	"errors"
	"fmt"
	"strings"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/pkg/errs"
	"orders/internal/pkg/guard"
)

// ErrItemIsNotConstructed is returned for an Item that bypassed NewItem.
var ErrItemIsNotConstructed = errors.New("Item must be created via NewItem constructor")

// MaxQuantity caps the quantity of one order line.
const MaxQuantity = 10000

// Item is an order line. Product name and unit price are a snapshot taken when
// the order was placed and are never re-read from the catalog.
type Item struct {
	id          kernel.UUID
	productID   string
	productName string
	quantity    int
	unitPrice   kernel.Money
	subtotal    kernel.Money

	guard guard.ConstructorGuard
}

// NewItem validates the line and computes subtotal = quantity × unitPrice.
func NewItem(id kernel.UUID, productID, productName string, quantity int, unitPrice kernel.Money) (Item, error) {
	item := Item{guard: guard.NewConstructorGuard()}

	if err := errors.Join(
		item.setID(id),
		item.setProduct(productID, productName),
		item.setQuantity(quantity),
		item.setUnitPrice(unitPrice),
	); err != nil {
		return Item{}, err
	}

	item.subtotal = unitPrice.Mul(quantity)
	if err := item.subtotal.ValidateRange("subtotal"); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Validate ensures the item was created through NewItem.
func (i Item) Validate() error {
	return i.guard.Validate(ErrItemIsNotConstructed)
}

func (i Item) ID() kernel.UUID         { return i.id }
func (i Item) ProductID() string       { return i.productID }
func (i Item) ProductName() string     { return i.productName }
func (i Item) Quantity() int           { return i.quantity }
func (i Item) UnitPrice() kernel.Money { return i.unitPrice }
func (i Item) Subtotal() kernel.Money  { return i.subtotal }

func (i *Item) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	i.id = id
	return nil
}

func (i *Item) setProduct(productID, productName string) error {
	if strings.TrimSpace(productID) == "" {
		return errs.NewValueIsRequiredError("productId")
	}
	if strings.TrimSpace(productName) == "" {
		return errs.NewValueIsRequiredError("productName")
	}
	i.productID = productID
	i.productName = productName
	return nil
}

func (i *Item) setQuantity(quantity int) error {
	if quantity <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("quantity", fmt.Errorf("%d is not greater than 0", quantity))
	}
	if quantity > MaxQuantity {
		return errs.NewValueIsOutOfRangeError("quantity", quantity, 1, MaxQuantity)
	}
	i.quantity = quantity
	return nil
}

func (i *Item) setUnitPrice(unitPrice kernel.Money) error {
	if err := unitPrice.Validate(); err != nil {
		return err
	}
	i.unitPrice = unitPrice
	return nil
}
