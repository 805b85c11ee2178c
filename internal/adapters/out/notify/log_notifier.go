// Package notify delivers client notifications. LogNotifier stands in for a real
// channel such as e-mail and writes every notification to the log.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"orders/internal/core/ports"
	"orders/internal/pkg/errs"
)

var _ ports.Notifier = (*LogNotifier)(nil)

type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "LogNotifier")}
}

// Notify logs the rendered message. Notifications without a client cannot be
// addressed and are rejected.
func (n *LogNotifier) Notify(ctx context.Context, notification ports.Notification) error {
	if notification.ClientID == "" {
		return errs.NewValueIsRequiredError("clientId")
	}

	subject, err := Subject(notification)
	if err != nil {
		return err
	}

	n.logger.InfoContext(ctx, subject,
		"eventId", notification.EventID,
		"kind", notification.Kind,
		"orderId", notification.OrderID,
		"clientId", notification.ClientID,
	)
	return nil
}

// Subject renders the one-line message a client receives.
func Subject(n ports.Notification) (string, error) {
	switch n.Kind {
	case ports.NotificationConfirmation:
		return fmt.Sprintf("Order %s confirmed", n.OrderID), nil
	case ports.NotificationProcessing:
		return fmt.Sprintf("Order %s is being processed", n.OrderID), nil
	case ports.NotificationShipped:
		return fmt.Sprintf("Order %s shipped, tracking number %s", n.OrderID, n.TrackingNumber), nil
	case ports.NotificationDelivered:
		return fmt.Sprintf("Order %s delivered", n.OrderID), nil
	case ports.NotificationCancelled:
		return fmt.Sprintf("Order %s cancelled: %s", n.OrderID, n.Reason), nil
	default:
		return "", errs.NewValueIsInvalidErrorWithCause("kind", fmt.Errorf("%q is not a notification kind", n.Kind))
	}
}
