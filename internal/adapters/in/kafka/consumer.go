// Package kafka feeds broker records to an application handler.
//
// Each topic gets its own consumer-group reader. A record is committed only after
// the handler accepted it; while the handler keeps failing the same record is
// retried with exponential backoff, so records of a partition are never skipped.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"orders/internal/core/domain/model/outbox"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// Reader is the part of *kafka.Reader the consumer depends on.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RecordHandler processes one record. A returned error means "try again later".
type RecordHandler interface {
	Handle(ctx context.Context, topic string, value []byte) error
}

// RetryOptions bound the wait between attempts at the same record.
type RetryOptions struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second}
}

// Consumer runs one fetch loop per reader.
type Consumer struct {
	readers []Reader
	handler RecordHandler
	backoff outbox.RetryPolicy
	logger  *slog.Logger
}

func NewConsumer(readers []Reader, handler RecordHandler, retry RetryOptions, logger *slog.Logger) *Consumer {
	return &Consumer{
		readers: readers,
		handler: handler,
		backoff: outbox.RetryPolicy{BaseDelay: retry.BaseDelay, MaxDelay: retry.MaxDelay},
		logger:  logger.With("component", "KafkaConsumer"),
	}
}

// Run blocks until ctx is cancelled or a reader is closed underneath it, then
// closes every reader.
// Cancellation is not reported as an error.
func (c *Consumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range c.readers {
		g.Go(func() error {
			return c.consume(ctx, r)
		})
	}
	err := g.Wait()

	for _, r := range c.readers {
		if closeErr := r.Close(); closeErr != nil {
			c.logger.Warn("closing reader failed", "error", closeErr)
		}
	}
	return err
}

// consume fetches, handles and commits records until ctx ends. Broker errors on
// fetch or commit are retried with backoff; an uncommitted record is delivered
// again by the group, and the inbox absorbs the repeat. Only a closed reader stops
// the loop.
func (c *Consumer) consume(ctx context.Context, r Reader) error {
	failures := 0
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("fetch message: %w", err)
			}
			failures++
			if !c.pause(ctx, failures, "fetching record failed, retrying", "error", err) {
				return nil
			}
			continue
		}

		if !c.handle(ctx, msg) {
			return nil
		}

		if err = r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if !c.pause(ctx, failures, "committing record failed, continuing",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			) {
				return nil
			}
			continue
		}
		failures = 0
	}
}

// handle retries msg until the handler accepts it. It returns false when ctx ends first.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	for attempt := 1; ; attempt++ {
		err := c.handler.Handle(ctx, msg.Topic, msg.Value)
		if err == nil {
			return true
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return false
		}

		if !c.pause(ctx, attempt, "record handling failed, retrying",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		) {
			return false
		}
	}
}

// pause logs a retry and waits out the backoff for attempt. It returns false when
// ctx ends first.
func (c *Consumer) pause(ctx context.Context, attempt int, msg string, args ...any) bool {
	delay := c.backoff.Delay(attempt)
	c.logger.Warn(msg, append(args, "attempt", attempt, "retryIn", delay)...)

	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}
