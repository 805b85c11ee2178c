package order

import (
	"fmt"
	"time"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/pkg/errs"
)

// EventType identifies the kind of lifecycle event an accepted transition produced.
type EventType int

const (
	UnknownEvent EventType = iota
	EventCreated
	EventStatusUpdated
	EventCancelled
)

var eventTypeNames = map[EventType]string{
	EventCreated:       "Created",
	EventStatusUpdated: "StatusUpdated",
	EventCancelled:     "Cancelled",
}

// ParseEventType converts a stored event type name back into an EventType.
func ParseEventType(raw string) (EventType, error) {
	for eventType, name := range eventTypeNames {
		if name == raw {
			return eventType, nil
		}
	}
	return UnknownEvent, errs.NewValueIsInvalidErrorWithCause("eventType", fmt.Errorf("%q is not a valid event type", raw))
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// DomainEvent is a fact raised by the Order aggregate. Payload returns the
// self-contained snapshot consumers need; it never references the live aggregate.
type DomainEvent interface {
	EventID() kernel.UUID
	EventType() EventType
	OrderID() kernel.UUID
	OccurredAt() time.Time
	Payload() any
}

type baseEvent struct {
	eventID    kernel.UUID
	orderID    kernel.UUID
	occurredAt time.Time
}

func newBaseEvent(orderID kernel.UUID, occurredAt time.Time) baseEvent {
	return baseEvent{eventID: kernel.NewUUID(), orderID: orderID, occurredAt: occurredAt}
}

func (e baseEvent) EventID() kernel.UUID  { return e.eventID }
func (e baseEvent) OrderID() kernel.UUID  { return e.orderID }
func (e baseEvent) OccurredAt() time.Time { return e.occurredAt }

// CreatedItemPayload is one line of the order.created payload.
type CreatedItemPayload struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreatedPayload is published on order.created.
type CreatedPayload struct {
	OrderID   string               `json:"orderId"`
	Timestamp time.Time            `json:"timestamp"`
	ClientID  string               `json:"clientId"`
	Items     []CreatedItemPayload `json:"items"`
}

// StatusUpdatedPayload is published on order.status.updated.
type StatusUpdatedPayload struct {
	OrderID        string    `json:"orderId"`
	Timestamp      time.Time `json:"timestamp"`
	OldStatus      string    `json:"oldStatus"`
	NewStatus      string    `json:"newStatus"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
}

// CancelledPayload is published on order.cancelled.
type CancelledPayload struct {
	OrderID            string    `json:"orderId"`
	Timestamp          time.Time `json:"timestamp"`
	CancellationReason string    `json:"cancellationReason"`
}

// CreatedEvent is raised once by NewOrder.
type CreatedEvent struct {
	baseEvent
	clientID string
	items    []CreatedItemPayload
}

func (e CreatedEvent) EventType() EventType { return EventCreated }

func (e CreatedEvent) Payload() any {
	return CreatedPayload{
		OrderID:   e.orderID.String(),
		Timestamp: e.occurredAt,
		ClientID:  e.clientID,
		Items:     append([]CreatedItemPayload(nil), e.items...),
	}
}

// StatusUpdatedEvent is raised by ChangeStatus.
type StatusUpdatedEvent struct {
	baseEvent
	oldStatus      Status
	newStatus      Status
	trackingNumber string
}

func (e StatusUpdatedEvent) EventType() EventType { return EventStatusUpdated }
func (e StatusUpdatedEvent) OldStatus() Status    { return e.oldStatus }
func (e StatusUpdatedEvent) NewStatus() Status    { return e.newStatus }

func (e StatusUpdatedEvent) Payload() any {
	return StatusUpdatedPayload{
		OrderID:        e.orderID.String(),
		Timestamp:      e.occurredAt,
		OldStatus:      e.oldStatus.String(),
		NewStatus:      e.newStatus.String(),
		TrackingNumber: e.trackingNumber,
	}
}

// CancelledEvent is raised by Cancel.
type CancelledEvent struct {
	baseEvent
	reason string
}

func (e CancelledEvent) EventType() EventType { return EventCancelled }

func (e CancelledEvent) Payload() any {
	return CancelledPayload{
		OrderID:            e.orderID.String(),
		Timestamp:          e.occurredAt,
		CancellationReason: e.reason,
	}
}
