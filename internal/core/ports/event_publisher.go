package ports

import (
	"context"

	"orders/internal/core/domain/model/outbox"
)

// EventPublisher ships one outbox message to the broker. A nil error means the
// broker acknowledged the write.
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}
