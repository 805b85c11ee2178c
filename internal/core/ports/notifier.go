package ports

import "context"

// NotificationKind selects the client-facing message to deliver.
type NotificationKind string

const (
	NotificationConfirmation NotificationKind = "confirmation"
	NotificationProcessing   NotificationKind = "processing"
	NotificationShipped      NotificationKind = "shipped"
	NotificationDelivered    NotificationKind = "delivered"
	NotificationCancelled    NotificationKind = "cancelled"
)

// Notification is what the coordinator asks the delivery channel to send.
type Notification struct {
	EventID        string
	Kind           NotificationKind
	OrderID        string
	ClientID       string
	TrackingNumber string
	Reason         string
}

// Notifier delivers client notifications. Failures are reported to the caller,
// which decides whether they matter.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Inbox records consumed event ids so redelivered events are handled once.
type Inbox interface {
	// MarkProcessed records eventID and reports whether this was its first sighting.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}
