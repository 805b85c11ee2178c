// Package notifications turns published order events into client notifications.
//
// The Coordinator is fed one broker record at a time. It de-duplicates on the
// event id through an inbox, picks the notification for the event and hands it to
// the notifier. A failed notification is logged and dropped; it never affects the
// order. Stock failure signals are logged only.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/core/domain/model/outbox"
	"orders/internal/core/ports"
)

// TopicStockFailed carries stock failure signals from the inventory side.
const TopicStockFailed = "order.failed.stock"

// StockFailure is the order.failed.stock payload.
type StockFailure struct {
	OrderID             string   `json:"orderId"`
	Reason              string   `json:"reason"`
	UnavailableProducts []string `json:"unavailableProducts"`
}

type orderReader interface {
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)
}

type notificationBuilder func(envelope outbox.Envelope) (ports.Notification, bool, error)

// Coordinator implements the consumer side of the lifecycle events.
type Coordinator struct {
	notifier ports.Notifier
	inbox    ports.Inbox
	orders   orderReader
	logger   *slog.Logger
	builders map[order.EventType]notificationBuilder

	stockFailedTopic string
}

// NewCoordinator wires a coordinator. orders is used to find the client of events
// whose payload does not carry it and may be nil.
func NewCoordinator(notifier ports.Notifier, inbox ports.Inbox, orders orderReader, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		notifier: notifier,
		inbox:    inbox,
		orders:   orders,
		logger:   logger.With("component", "NotificationCoordinator"),
		builders: map[order.EventType]notificationBuilder{
			order.EventCreated:       confirmation,
			order.EventStatusUpdated: statusNotification,
			order.EventCancelled:     cancellation,
		},
		stockFailedTopic: TopicStockFailed,
	}
}

// WithStockFailedTopic overrides the topic stock failure signals arrive on.
func (c *Coordinator) WithStockFailedTopic(topic string) *Coordinator {
	if topic != "" {
		c.stockFailedTopic = topic
	}
	return c
}

// Topics lists every topic the coordinator consumes.
func (c *Coordinator) Topics() []string {
	return []string{
		outbox.TopicOrderCreated,
		outbox.TopicOrderStatusUpdated,
		outbox.TopicOrderCancelled,
		c.stockFailedTopic,
	}
}

// Handle processes one record. Malformed records are logged and skipped. An error
// is returned only when the inbox cannot be reached, in which case the record
// must be retried.
func (c *Coordinator) Handle(ctx context.Context, topic string, value []byte) error {
	if topic == c.stockFailedTopic {
		c.handleStockFailure(value)
		return nil
	}

	envelope, err := outbox.DecodeEnvelope(value)
	if err != nil {
		c.logger.Error("skipping undecodable event", "topic", topic, "error", err)
		return nil
	}

	eventType, err := order.ParseEventType(envelope.EventType)
	if err != nil {
		c.logger.Warn("skipping unknown event type", "topic", topic, "eventType", envelope.EventType)
		return nil
	}
	build, ok := c.builders[eventType]
	if !ok {
		c.logger.Warn("no notification for event type", "eventType", envelope.EventType)
		return nil
	}

	first, err := c.inbox.MarkProcessed(ctx, envelope.EventID)
	if err != nil {
		return fmt.Errorf("record event %s in inbox: %w", envelope.EventID, err)
	}
	if !first {
		c.logger.Debug("duplicate event ignored", "eventId", envelope.EventID, "eventType", envelope.EventType)
		return nil
	}

	notification, send, err := build(envelope)
	if err != nil {
		c.logger.Error("skipping malformed payload", "eventId", envelope.EventID, "eventType", envelope.EventType, "error", err)
		return nil
	}
	if !send {
		return nil
	}
	if notification.ClientID == "" {
		notification.ClientID = c.lookupClient(ctx, envelope.OrderID)
	}

	if err = c.notifier.Notify(ctx, notification); err != nil {
		c.logger.Error("notification failed",
			"eventId", notification.EventID,
			"orderId", notification.OrderID,
			"kind", notification.Kind,
			"error", err,
		)
		return nil
	}

	c.logger.Debug("notification sent", "eventId", notification.EventID, "kind", notification.Kind)
	return nil
}

func (c *Coordinator) handleStockFailure(value []byte) {
	var failure StockFailure
	if err := json.Unmarshal(value, &failure); err != nil {
		c.logger.Error("skipping undecodable stock failure", "error", err)
		return
	}
	c.logger.Warn("stock failure received",
		"orderId", failure.OrderID,
		"reason", failure.Reason,
		"unavailableProducts", failure.UnavailableProducts,
	)
}

func (c *Coordinator) lookupClient(ctx context.Context, rawOrderID string) string {
	if c.orders == nil {
		return ""
	}
	id, err := kernel.UUIDFromString(rawOrderID)
	if err != nil {
		return ""
	}
	o, err := c.orders.Get(ctx, id)
	if err != nil {
		c.logger.Warn("client lookup failed", "orderId", rawOrderID, "error", err)
		return ""
	}
	return o.ClientID()
}

func confirmation(envelope outbox.Envelope) (ports.Notification, bool, error) {
	var payload order.CreatedPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return ports.Notification{}, false, err
	}
	return ports.Notification{
		EventID:  envelope.EventID,
		Kind:     ports.NotificationConfirmation,
		OrderID:  envelope.OrderID,
		ClientID: payload.ClientID,
	}, true, nil
}

func statusNotification(envelope outbox.Envelope) (ports.Notification, bool, error) {
	var payload order.StatusUpdatedPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return ports.Notification{}, false, err
	}

	status, err := order.ParseStatus(payload.NewStatus)
	if err != nil {
		return ports.Notification{}, false, err
	}

	notification := ports.Notification{EventID: envelope.EventID, OrderID: envelope.OrderID}
	switch status {
	case order.Processing:
		notification.Kind = ports.NotificationProcessing
	case order.Shipped:
		notification.Kind = ports.NotificationShipped
		notification.TrackingNumber = payload.TrackingNumber
	case order.Delivered:
		notification.Kind = ports.NotificationDelivered
	default:
		return ports.Notification{}, false, nil
	}
	return notification, true, nil
}

func cancellation(envelope outbox.Envelope) (ports.Notification, bool, error) {
	var payload order.CancelledPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return ports.Notification{}, false, err
	}
	return ports.Notification{
		EventID: envelope.EventID,
		Kind:    ports.NotificationCancelled,
		OrderID: envelope.OrderID,
		Reason:  payload.CancellationReason,
	}, true, nil
}
