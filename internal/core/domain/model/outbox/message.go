package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/pkg/errs"
	"orders/internal/pkg/guard"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusUpdated = "order.status.updated"
	TopicOrderCancelled     = "order.cancelled"
)

// lastErrorLimit caps the stored publish error so one broker message cannot bloat the row.
const lastErrorLimit = 1024

var (
	ErrMessageIsNotConstructed = errors.New("Message must be created via NewMessage or RestoreMessage")
	ErrMessageAlreadyDelivered = errors.New("outbox message is already delivered")
	ErrLeaseLost               = errors.New("outbox message lease is no longer held")
)

// TopicFor maps an event type to the broker topic it is published on.
func TopicFor(eventType order.EventType) (string, error) {
	switch eventType {
	case order.EventCreated:
		return TopicOrderCreated, nil
	case order.EventStatusUpdated:
		return TopicOrderStatusUpdated, nil
	case order.EventCancelled:
		return TopicOrderCancelled, nil
	default:
		return "", errs.NewValueIsInvalidErrorWithCause("eventType", fmt.Errorf("no topic for %s", eventType))
	}
}

// Message is one staged event. Sequence is assigned by the store and orders the
// messages of the same order; it is zero until the message has been persisted.
type Message struct {
	id           kernel.UUID
	sequence     int64
	orderID      kernel.UUID
	eventType    order.EventType
	payload      json.RawMessage
	createdAt    time.Time
	state        DeliveryState
	attempts     int
	nextRetryAt  *time.Time
	lastError    string
	claimedUntil *time.Time
	deliveredAt  *time.Time

	// lease is the claimedUntil this copy was handed out with. Stores accept a
	// write-back only while they still hold the same lease.
	lease *time.Time

	guard guard.ConstructorGuard
}

// NewMessage stages event as a Pending message. The event payload is serialised
// once here; the message never refers back to the aggregate.
func NewMessage(event order.DomainEvent) (*Message, error) {
	if event == nil {
		return nil, errs.NewValueIsRequiredError("event")
	}
	if _, err := TopicFor(event.EventType()); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event.EventType(), err)
	}

	m := &Message{
		eventType: event.EventType(),
		payload:   payload,
		createdAt: event.OccurredAt().UTC(),
		state:     Pending,
		guard:     guard.NewConstructorGuard(),
	}
	if err = errors.Join(m.setID(event.EventID()), m.setOrderID(event.OrderID())); err != nil {
		return nil, err
	}
	return m, nil
}

// State is the persisted form of a Message.
type State struct {
	ID            kernel.UUID
	Sequence      int64
	OrderID       kernel.UUID
	EventType     order.EventType
	Payload       json.RawMessage
	CreatedAt     time.Time
	DeliveryState DeliveryState
	Attempts      int
	NextRetryAt   *time.Time
	LastError     string
	ClaimedUntil  *time.Time
	DeliveredAt   *time.Time
}

// RestoreMessage rebuilds a message read from storage.
func RestoreMessage(state State) (*Message, error) {
	m := &Message{
		sequence:     state.Sequence,
		eventType:    state.EventType,
		payload:      append(json.RawMessage(nil), state.Payload...),
		createdAt:    state.CreatedAt.UTC(),
		state:        state.DeliveryState,
		attempts:     state.Attempts,
		nextRetryAt:  utcPtr(state.NextRetryAt),
		lastError:    state.LastError,
		claimedUntil: utcPtr(state.ClaimedUntil),
		deliveredAt:  utcPtr(state.DeliveredAt),
		lease:        utcPtr(state.ClaimedUntil),
		guard:        guard.NewConstructorGuard(),
	}

	var problems []error
	problems = append(problems, m.setID(state.ID), m.setOrderID(state.OrderID), state.DeliveryState.Validate())
	if _, err := TopicFor(state.EventType); err != nil {
		problems = append(problems, err)
	}
	if state.Attempts < 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("attempts", fmt.Errorf("%d is negative", state.Attempts)))
	}
	if !json.Valid(state.Payload) {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("payload", errors.New("not valid JSON")))
	}
	if err := errors.Join(problems...); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) Validate() error {
	if m == nil {
		return ErrMessageIsNotConstructed
	}
	return m.guard.Validate(ErrMessageIsNotConstructed)
}

func (m *Message) ID() kernel.UUID              { return m.id }
func (m *Message) Sequence() int64              { return m.sequence }
func (m *Message) OrderID() kernel.UUID         { return m.orderID }
func (m *Message) EventType() order.EventType   { return m.eventType }
func (m *Message) Payload() json.RawMessage     { return append(json.RawMessage(nil), m.payload...) }
func (m *Message) CreatedAt() time.Time         { return m.createdAt }
func (m *Message) DeliveryState() DeliveryState { return m.state }
func (m *Message) Attempts() int                { return m.attempts }
func (m *Message) NextRetryAt() *time.Time      { return copyPtr(m.nextRetryAt) }
func (m *Message) LastError() string            { return m.lastError }
func (m *Message) ClaimedUntil() *time.Time     { return copyPtr(m.claimedUntil) }
func (m *Message) Lease() *time.Time            { return copyPtr(m.lease) }
func (m *Message) DeliveredAt() *time.Time      { return copyPtr(m.deliveredAt) }

// Topic returns the broker topic for the message's event type.
func (m *Message) Topic() string {
	topic, _ := TopicFor(m.eventType)
	return topic
}

// State returns a snapshot suitable for persistence.
func (m *Message) State() State {
	return State{
		ID:            m.id,
		Sequence:      m.sequence,
		OrderID:       m.orderID,
		EventType:     m.eventType,
		Payload:       m.Payload(),
		CreatedAt:     m.createdAt,
		DeliveryState: m.state,
		Attempts:      m.attempts,
		NextRetryAt:   copyPtr(m.nextRetryAt),
		LastError:     m.lastError,
		ClaimedUntil:  copyPtr(m.claimedUntil),
		DeliveredAt:   copyPtr(m.deliveredAt),
	}
}

// IsDue reports whether the relay may claim the message at now: it is Pending, or
// Failed with a retry that has come due, and no live lease is held on it.
func (m *Message) IsDue(now time.Time) bool {
	if m.claimedUntil != nil && m.claimedUntil.After(now) {
		return false
	}
	switch m.state {
	case Pending:
		return true
	case Failed:
		return m.nextRetryAt != nil && !m.nextRetryAt.After(now)
	default:
		return false
	}
}

// Claim leases the message to a relay worker until now+lease.
func (m *Message) Claim(now time.Time, lease time.Duration) error {
	if m.state == Delivered {
		return ErrMessageAlreadyDelivered
	}
	until := now.Add(lease).UTC()
	m.claimedUntil = &until
	m.lease = copyPtr(&until)
	return nil
}

// HoldsLease reports whether stored, the lease currently persisted for the message,
// is the one this copy was claimed with.
func (m *Message) HoldsLease(stored *time.Time) bool {
	if m.lease == nil || stored == nil {
		return m.lease == nil && stored == nil
	}
	return m.lease.Equal(*stored)
}

// MarkDelivered records the broker acknowledgement and releases the lease.
func (m *Message) MarkDelivered(now time.Time) error {
	if m.state == Delivered {
		return ErrMessageAlreadyDelivered
	}
	at := now.UTC()
	m.state = Delivered
	m.deliveredAt = &at
	m.nextRetryAt = nil
	m.claimedUntil = nil
	return nil
}

// MarkFailed records a failed publish and schedules the next attempt according to
// policy. It reports whether the message has exhausted its attempts, in which case
// no retry is scheduled.
func (m *Message) MarkFailed(cause error, now time.Time, policy RetryPolicy) (bool, error) {
	if m.state == Delivered {
		return false, ErrMessageAlreadyDelivered
	}

	m.attempts++
	m.state = Failed
	m.claimedUntil = nil
	m.lastError = truncate(errorText(cause), lastErrorLimit)

	if policy.Exhausted(m.attempts) {
		m.nextRetryAt = nil
		return true, nil
	}

	next := now.Add(policy.Delay(m.attempts)).UTC()
	m.nextRetryAt = &next
	return false, nil
}

func (m *Message) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	m.id = id
	return nil
}

func (m *Message) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("orderId", err)
	}
	m.orderID = id
	return nil
}

func errorText(err error) string {
	if err == nil {
		return "unknown publish failure"
	}
	return err.Error()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func copyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := t.UTC()
	return &c
}

// MessagesFor stages one message per event, preserving the order events were raised in.
func MessagesFor(events []order.DomainEvent) ([]*Message, error) {
	messages := make([]*Message, 0, len(events))
	for _, event := range events {
		m, err := NewMessage(event)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}
