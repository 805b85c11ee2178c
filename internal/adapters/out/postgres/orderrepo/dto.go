// Package orderrepo persists order aggregates with GORM. An order is stored as one
// orders row plus its order_items rows; items never change after creation.
package orderrepo

import (
	"time"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderDTO is the orders table. Timestamps come from the aggregate, so GORM's
// automatic time tracking is switched off.
type OrderDTO struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ClientID           string          `gorm:"type:varchar(255);not null;index"`
	Status             string          `gorm:"type:varchar(16);not null"`
	TotalAmount        decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	ShippingAddress    string          `gorm:"type:text;not null"`
	TrackingNumber     *string         `gorm:"type:varchar(255)"`
	CancellationReason *string         `gorm:"type:text"`
	Version            int64           `gorm:"not null;default:0"`
	CreatedAt          time.Time       `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt          time.Time       `gorm:"not null;autoUpdateTime:false"`
	Items              []ItemDTO       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

// ItemDTO is one order line. Position keeps the order in which items were placed.
type ItemDTO struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	ProductID   string          `gorm:"type:varchar(255);not null"`
	ProductName string          `gorm:"type:varchar(255);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(18,2);not null"`
}

func (ItemDTO) TableName() string {
	return "order_items"
}

func fromDomain(aggregate *order.Order) OrderDTO {
	items := aggregate.Items()
	dto := OrderDTO{
		ID:                 aggregate.ID().Bytes(),
		ClientID:           aggregate.ClientID(),
		Status:             aggregate.Status().String(),
		TotalAmount:        aggregate.TotalAmount().Decimal(),
		ShippingAddress:    aggregate.ShippingAddress(),
		TrackingNumber:     optional(aggregate.TrackingNumber()),
		CancellationReason: optional(aggregate.CancellationReason()),
		Version:            aggregate.Version(),
		CreatedAt:          aggregate.CreatedAt(),
		UpdatedAt:          aggregate.UpdatedAt(),
		Items:              make([]ItemDTO, 0, len(items)),
	}

	for idx, item := range items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:          item.ID().Bytes(),
			OrderID:     dto.ID,
			Position:    idx,
			ProductID:   item.ProductID(),
			ProductName: item.ProductName(),
			Quantity:    item.Quantity(),
			UnitPrice:   item.UnitPrice().Decimal(),
			Subtotal:    item.Subtotal().Decimal(),
		})
	}
	return dto
}

// toDomain rebuilds the aggregate through RestoreOrder, so a row with an unknown
// status or inconsistent optional fields is rejected instead of loaded.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	status, err := order.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	items := make([]order.Item, 0, len(dto.Items))
	for _, itemDTO := range dto.Items {
		item, itemErr := itemToDomain(itemDTO)
		if itemErr != nil {
			return nil, itemErr
		}
		items = append(items, item)
	}

	return order.RestoreOrder(order.State{
		ID:                 id,
		ClientID:           dto.ClientID,
		Status:             status,
		Items:              items,
		ShippingAddress:    dto.ShippingAddress,
		TrackingNumber:     deref(dto.TrackingNumber),
		CancellationReason: deref(dto.CancellationReason),
		Version:            dto.Version,
		CreatedAt:          dto.CreatedAt,
		UpdatedAt:          dto.UpdatedAt,
	})
}

func itemToDomain(dto ItemDTO) (order.Item, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return order.Item{}, err
	}

	price, err := kernel.NewMoney(dto.UnitPrice)
	if err != nil {
		return order.Item{}, err
	}

	return order.NewItem(id, dto.ProductID, dto.ProductName, dto.Quantity, price)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
