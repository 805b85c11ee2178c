package jobs

import (
	"context"
	"log/slog"
	"sync"
)

type consumer interface {
	Run(ctx context.Context) error
}

// NotificationConsumerJob keeps the broker consumer of the notification
// coordinator running in the background.
type NotificationConsumerJob struct {
	consumer consumer
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

func NewNotificationConsumerJob(consumer consumer, logger *slog.Logger) *NotificationConsumerJob {
	return &NotificationConsumerJob{
		consumer: consumer,
		logger:   logger.With("component", "notification_consumer_job"),
	}
}

// Start launches the consumer. Calling Start on a running job does nothing.
func (j *NotificationConsumerJob) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := j.consumer.Run(ctx); err != nil {
			j.logger.ErrorContext(ctx, "Notification consumer stopped", "error", err)
		}
	}(j.done)

	j.logger.InfoContext(ctx, "Notification consumer job started")
	return nil
}

// Stop cancels the consumer and waits for it to return.
func (j *NotificationConsumerJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done == nil {
		return
	}

	j.cancel()
	<-j.done
	j.done = nil
	j.logger.InfoContext(context.Background(), "Notification consumer job stopped")
}
