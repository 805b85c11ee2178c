package outboxrepo

import (
	"context"
	"errors"
	"sort"
	"time"

	"orders/internal/adapters/out/postgres/pgerr"
	"orders/internal/core/domain/model/outbox"
	"orders/internal/pkg/errs"

	"gorm.io/gorm"
)

// claimDueSQL leases up to @limit due messages in one statement. A message is
// skipped while an earlier undelivered message of the same order exists, and rows
// locked by a concurrent relay are skipped rather than waited for.
const claimDueSQL = `
WITH due AS (
	SELECT m.id
	FROM outbox_messages m
	WHERE m.delivery_state <> @delivered
	  AND (m.claimed_until IS NULL OR m.claimed_until <= @now)
	  AND (m.delivery_state = @pending
	       OR (m.delivery_state = @failed AND m.next_retry_at IS NOT NULL AND m.next_retry_at <= @now))
	  AND NOT EXISTS (
	      SELECT 1
	      FROM outbox_messages earlier
	      WHERE earlier.order_id = m.order_id
	        AND earlier.sequence < m.sequence
	        AND earlier.delivery_state <> @delivered
	  )
	ORDER BY m.sequence
	LIMIT @limit
	FOR UPDATE SKIP LOCKED
)
UPDATE outbox_messages o
SET claimed_until = @until
FROM due
WHERE o.id = due.id
RETURNING o.*`

// GormOutboxRepository implements ports.OutboxRepository using GORM.
type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Add inserts staged messages. It runs inside the transaction that writes the
// orders they belong to.
func (r *GormOutboxRepository) Add(ctx context.Context, messages ...*outbox.Message) error {
	if len(messages) == 0 {
		return nil
	}

	dtos := make([]OutboxMessageDTO, 0, len(messages))
	for _, m := range messages {
		if err := m.Validate(); err != nil {
			return err
		}
		dtos = append(dtos, fromDomain(m))
	}

	if err := r.db.WithContext(ctx).Omit("Sequence").Create(&dtos).Error; err != nil {
		return pgerr.Translate("insert outbox messages", err)
	}
	return nil
}

// ClaimDue leases due messages until now+lease and returns them in sequence order.
func (r *GormOutboxRepository) ClaimDue(
	ctx context.Context,
	now time.Time,
	limit int,
	lease time.Duration,
) ([]*outbox.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var dtos []OutboxMessageDTO
	err := r.db.WithContext(ctx).Raw(claimDueSQL, map[string]any{
		"now":       now.UTC(),
		"until":     now.Add(lease).UTC(),
		"limit":     limit,
		"pending":   outbox.Pending.String(),
		"failed":    outbox.Failed.String(),
		"delivered": outbox.Delivered.String(),
	}).Scan(&dtos).Error
	if err != nil {
		return nil, pgerr.Translate("claim outbox messages", err)
	}

	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Sequence < dtos[j].Sequence })

	messages := make([]*outbox.Message, 0, len(dtos))
	for _, dto := range dtos {
		m, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Update records a delivery outcome. Delivered rows are never rewritten, and the
// write only lands while the row still carries the lease the message was claimed
// with.
func (r *GormOutboxRepository) Update(ctx context.Context, message *outbox.Message) error {
	if err := message.Validate(); err != nil {
		return err
	}

	dto := fromDomain(message)
	query := r.db.WithContext(ctx).
		Model(&OutboxMessageDTO{}).
		Where("id = ? AND delivery_state <> ?", dto.ID, outbox.Delivered.String())
	if lease := message.Lease(); lease != nil {
		query = query.Where("claimed_until = ?", *lease)
	} else {
		query = query.Where("claimed_until IS NULL")
	}

	result := query.Updates(map[string]any{
			"delivery_state": dto.DeliveryState,
			"attempts":       dto.Attempts,
			"next_retry_at":  dto.NextRetryAt,
			"last_error":     dto.LastError,
			"claimed_until":  dto.ClaimedUntil,
			"delivered_at":   dto.DeliveredAt,
		})
	if result.Error != nil {
		return pgerr.Translate("update outbox message", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var existing OutboxMessageDTO
	err := r.db.WithContext(ctx).Select("id", "delivery_state").Take(&existing, "id = ?", dto.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NewObjectNotFoundError("outboxMessage", message.ID().String())
	}
	if err != nil {
		return pgerr.Translate("check outbox message", err)
	}
	if existing.DeliveryState == outbox.Delivered.String() {
		return outbox.ErrMessageAlreadyDelivered
	}
	return outbox.ErrLeaseLost
}
