package ports

import (
	"context"
	"time"

	"orders/internal/core/domain/model/outbox"
)

// OutboxRepository stores staged messages and hands them out to the relay.
type OutboxRepository interface {
	// Add stages messages in the current transaction. The store assigns sequences
	// in insertion order.
	Add(ctx context.Context, messages ...*outbox.Message) error

	// ClaimDue leases up to limit messages that are due at now, ordered by sequence.
	// A message is skipped while an earlier message of the same order is undelivered,
	// so at most one message per order is returned. Claimed messages carry
	// claimedUntil = now + lease.
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*outbox.Message, error)

	// Update writes the delivery outcome of a claimed message. Delivered messages are
	// never overwritten.
	Update(ctx context.Context, message *outbox.Message) error
}
