package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"orders/internal/core/domain/model/outbox"
	"orders/internal/core/ports"
	"orders/internal/pkg/errs"

	"golang.org/x/sync/errgroup"
)

// RelayOptions tunes one relay handler.
type RelayOptions struct {
	BatchSize      int
	Workers        int
	Lease          time.Duration
	PublishTimeout time.Duration
	RetryPolicy    outbox.RetryPolicy
}

// DefaultRelayOptions matches the configuration defaults.
func DefaultRelayOptions() RelayOptions {
	return RelayOptions{
		BatchSize:      100,
		Workers:        4,
		Lease:          30 * time.Second,
		PublishTimeout: 5 * time.Second,
		RetryPolicy:    outbox.DefaultRetryPolicy(),
	}
}

// Validate rejects settings the relay cannot run with.
func (o RelayOptions) Validate() error {
	var problems []error
	if o.BatchSize <= 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("batchSize", fmt.Errorf("%d is not positive", o.BatchSize)))
	}
	if o.Workers <= 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("workers", fmt.Errorf("%d is not positive", o.Workers)))
	}
	if o.PublishTimeout <= 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("publishTimeout", fmt.Errorf("%s is not positive", o.PublishTimeout)))
	}
	if o.Lease < o.PublishTimeout {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("lease", fmt.Errorf("%s is shorter than publish timeout %s", o.Lease, o.PublishTimeout)))
	}
	problems = append(problems, o.RetryPolicy.Validate())
	return errors.Join(problems...)
}

// ExhaustedMessage describes a message that will not be retried again.
type ExhaustedMessage struct {
	ID        string
	OrderID   string
	EventType string
	Attempts  int
	LastError string
}

// RelayOutboxResult summarises one relay cycle. LeaseLost counts messages whose
// outcome was discarded because another worker had reclaimed them in the meantime.
type RelayOutboxResult struct {
	Claimed   int
	Delivered int
	Failed    int
	LeaseLost int
	Exhausted []ExhaustedMessage
}

// RelayOutboxCommandHandler ships staged messages to the broker. Claiming happens in
// its own short transaction; publishing happens outside any transaction; each
// outcome is written back in a transaction of its own. A crash between publish and
// write-back leaves the lease to expire and the message is published again, which
// consumers absorb by de-duplicating on the event id.
type RelayOutboxCommandHandler struct {
	uowFactory OutboxUoWFactory
	publisher  ports.EventPublisher
	options    RelayOptions
}

func NewRelayOutboxCommandHandler(
	uowFactory OutboxUoWFactory,
	publisher ports.EventPublisher,
	options RelayOptions,
) (RelayOutboxCommandHandler, error) {
	if err := options.Validate(); err != nil {
		return RelayOutboxCommandHandler{}, err
	}
	return RelayOutboxCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		options:    options,
	}, nil
}

// Handle runs one cycle. Publish failures are recorded on the messages and counted,
// not returned; the error is reserved for storage failures.
func (h RelayOutboxCommandHandler) Handle(ctx context.Context, cmd RelayOutboxCommand) (RelayOutboxResult, error) {
	if err := cmd.Validate(); err != nil {
		return RelayOutboxResult{}, err
	}

	messages, err := h.claim(ctx, cmd.Now())
	if err != nil {
		return RelayOutboxResult{}, err
	}

	result := RelayOutboxResult{Claimed: len(messages)}
	if len(messages) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(h.options.Workers)

	for _, message := range messages {
		g.Go(func() error {
			exhausted, delivered, relayErr := h.relay(ctx, cmd.Now(), message)

			mu.Lock()
			defer mu.Unlock()
			if isLeaseLost(relayErr) {
				result.LeaseLost++
				return nil
			}
			if delivered {
				result.Delivered++
			} else {
				result.Failed++
			}
			if exhausted {
				result.Exhausted = append(result.Exhausted, ExhaustedMessage{
					ID:        message.ID().String(),
					OrderID:   message.OrderID().String(),
					EventType: message.EventType().String(),
					Attempts:  message.Attempts(),
					LastError: message.LastError(),
				})
			}
			return relayErr
		})
	}

	return result, g.Wait()
}

// isLeaseLost reports a write-back rejected because the message no longer belongs
// to this worker: it was reclaimed, or the new holder already delivered it.
func isLeaseLost(err error) bool {
	return errors.Is(err, outbox.ErrLeaseLost) || errors.Is(err, outbox.ErrMessageAlreadyDelivered)
}

func (h RelayOutboxCommandHandler) claim(ctx context.Context, now time.Time) ([]*outbox.Message, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	messages, err := uow.OutboxRepository().ClaimDue(ctx, now, h.options.BatchSize, h.options.Lease)
	if err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return messages, nil
}

// relay publishes one message and writes the outcome back.
func (h RelayOutboxCommandHandler) relay(
	ctx context.Context,
	now time.Time,
	message *outbox.Message,
) (exhausted bool, delivered bool, err error) {
	publishCtx, cancel := context.WithTimeout(ctx, h.options.PublishTimeout)
	publishErr := h.publisher.Publish(publishCtx, message)
	cancel()

	if publishErr == nil {
		if err = message.MarkDelivered(now); err != nil {
			return false, false, err
		}
		return false, true, h.save(ctx, message)
	}

	exhausted, err = message.MarkFailed(publishErr, now, h.options.RetryPolicy)
	if err != nil {
		return false, false, err
	}
	return exhausted, false, h.save(ctx, message)
}

func (h RelayOutboxCommandHandler) save(ctx context.Context, message *outbox.Message) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err := uow.OutboxRepository().Update(ctx, message); err != nil {
		return fmt.Errorf("save outbox message %s: %w", message.ID(), err)
	}

	return uow.Commit(ctx)
}
