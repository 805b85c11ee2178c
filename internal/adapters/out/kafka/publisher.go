// Package kafka publishes outbox messages to Kafka. Each message goes to the topic
// of its event type, keyed by order id so that one order's events share a partition
// and keep their relative order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orders/internal/core/domain/model/outbox"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

const (
	HeaderEventID   = "eventId"
	HeaderEventType = "eventType"
)

// ErrBrokerUnavailable is returned while the circuit breaker is open.
var ErrBrokerUnavailable = errors.New("broker unavailable")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BreakerSettings controls when the publisher stops calling a failing broker.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

// Publisher implements ports.EventPublisher.
type Publisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker
}

func NewPublisher(writer messageWriter, settings BreakerSettings) *Publisher {
	return &Publisher{
		writer: writer,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "kafka-publisher",
			MaxRequests: 1,
			Timeout:     settings.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
			},
		}),
	}
}

// Publish writes the message envelope and returns once the broker acknowledged it.
func (p *Publisher) Publish(ctx context.Context, message *outbox.Message) error {
	record, err := Record(message)
	if err != nil {
		return err
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, record)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", message.ID(), record.Topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Record converts a message into the Kafka record the publisher writes.
func Record(message *outbox.Message) (kafka.Message, error) {
	if err := message.Validate(); err != nil {
		return kafka.Message{}, err
	}

	value, err := json.Marshal(message.Envelope())
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope %s: %w", message.ID(), err)
	}

	return kafka.Message{
		Topic: message.Topic(),
		Key:   []byte(message.OrderID().String()),
		Value: value,
		Time:  message.CreatedAt(),
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(message.ID().String())},
			{Key: HeaderEventType, Value: []byte(message.EventType().String())},
		},
	}, nil
}
