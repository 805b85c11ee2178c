package http

import (
	"time"

	"orders/internal/core/domain/model/order"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type NewOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type NewOrder struct {
	ClientID        string         `json:"clientId"`
	ShippingAddress string         `json:"shippingAddress"`
	Items           []NewOrderItem `json:"items"`
}

type StatusUpdate struct {
	Status          string `json:"status"`
	TrackingNumber  string `json:"trackingNumber,omitempty"`
	ExpectedVersion *int64 `json:"expectedVersion,omitempty"`
}

type Cancellation struct {
	Reason          string `json:"reason"`
	ExpectedVersion *int64 `json:"expectedVersion,omitempty"`
}

// GetOrdersParams are the optional filters of GET /api/v1/orders.
type GetOrdersParams struct {
	OrderID   *openapi_types.UUID
	ClientID  *string
	StartDate *openapi_types.Date
	EndDate   *openapi_types.Date
}

type OrderItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Subtotal    string `json:"subtotal"`
}

// Order is the snapshot returned by every order endpoint. Amounts are fixed
// two-decimal strings.
type Order struct {
	ID                 string      `json:"id"`
	ClientID           string      `json:"clientId"`
	Status             string      `json:"status"`
	TotalAmount        string      `json:"totalAmount"`
	ShippingAddress    string      `json:"shippingAddress"`
	TrackingNumber     string      `json:"trackingNumber,omitempty"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
	Version            int64       `json:"version"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
	Items              []OrderItem `json:"items"`
}

func toOrder(o *order.Order) Order {
	items := o.Items()
	response := Order{
		ID:                 o.ID().String(),
		ClientID:           o.ClientID(),
		Status:             o.Status().String(),
		TotalAmount:        o.TotalAmount().String(),
		ShippingAddress:    o.ShippingAddress(),
		TrackingNumber:     o.TrackingNumber(),
		CancellationReason: o.CancellationReason(),
		Version:            o.Version(),
		CreatedAt:          o.CreatedAt(),
		UpdatedAt:          o.UpdatedAt(),
		Items:              make([]OrderItem, len(items)),
	}
	for i, item := range items {
		response.Items[i] = OrderItem{
			ID:          item.ID().String(),
			ProductID:   item.ProductID(),
			ProductName: item.ProductName(),
			Quantity:    item.Quantity(),
			UnitPrice:   item.UnitPrice().String(),
			Subtotal:    item.Subtotal().String(),
		}
	}
	return response
}

func toOrders(orders []*order.Order) []Order {
	response := make([]Order, len(orders))
	for i, o := range orders {
		response[i] = toOrder(o)
	}
	return response
}
