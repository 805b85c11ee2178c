package outbox

import (
	"encoding/json"
	"time"
)

// Envelope is the JSON document written to the broker for every message.
type Envelope struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OrderID    string          `json:"orderId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Envelope wraps the stored payload with the routing metadata consumers need.
func (m *Message) Envelope() Envelope {
	return Envelope{
		EventID:    m.id.String(),
		EventType:  m.eventType.String(),
		OrderID:    m.orderID.String(),
		OccurredAt: m.createdAt,
		Payload:    m.Payload(),
	}
}

// DecodeEnvelope parses a broker message value.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Envelope{}, err
	}
	return envelope, nil
}
