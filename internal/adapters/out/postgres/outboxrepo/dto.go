// Package outboxrepo stores outbox messages with GORM and claims them for the relay.
package outboxrepo

import (
	"encoding/json"
	"time"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/core/domain/model/outbox"

	"github.com/google/uuid"
)

// OutboxMessageDTO is the outbox_messages table. Sequence is assigned by the
// database on insert and orders messages within an order.
type OutboxMessageDTO struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Sequence      int64      `gorm:"type:bigserial;autoIncrement;not null;uniqueIndex"`
	OrderID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	EventType     string     `gorm:"type:varchar(32);not null"`
	Payload       string     `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time  `gorm:"not null;autoCreateTime:false"`
	DeliveryState string     `gorm:"type:varchar(16);not null;index"`
	Attempts      int        `gorm:"not null;default:0"`
	NextRetryAt   *time.Time
	LastError     string     `gorm:"type:text;not null;default:''"`
	ClaimedUntil  *time.Time
	DeliveredAt   *time.Time
}

func (OutboxMessageDTO) TableName() string {
	return "outbox_messages"
}

func fromDomain(m *outbox.Message) OutboxMessageDTO {
	return OutboxMessageDTO{
		ID:            m.ID().Bytes(),
		Sequence:      m.Sequence(),
		OrderID:       m.OrderID().Bytes(),
		EventType:     m.EventType().String(),
		Payload:       string(m.Payload()),
		CreatedAt:     m.CreatedAt(),
		DeliveryState: m.DeliveryState().String(),
		Attempts:      m.Attempts(),
		NextRetryAt:   m.NextRetryAt(),
		LastError:     m.LastError(),
		ClaimedUntil:  m.ClaimedUntil(),
		DeliveredAt:   m.DeliveredAt(),
	}
}

func toDomain(dto OutboxMessageDTO) (*outbox.Message, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}

	eventType, err := order.ParseEventType(dto.EventType)
	if err != nil {
		return nil, err
	}

	state, err := outbox.ParseDeliveryState(dto.DeliveryState)
	if err != nil {
		return nil, err
	}

	return outbox.RestoreMessage(outbox.State{
		ID:            id,
		Sequence:      dto.Sequence,
		OrderID:       orderID,
		EventType:     eventType,
		Payload:       json.RawMessage(dto.Payload),
		CreatedAt:     dto.CreatedAt,
		DeliveryState: state,
		Attempts:      dto.Attempts,
		NextRetryAt:   dto.NextRetryAt,
		LastError:     dto.LastError,
		ClaimedUntil:  dto.ClaimedUntil,
		DeliveredAt:   dto.DeliveredAt,
	})
}
