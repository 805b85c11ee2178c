package jobs

import (
	"context"
	"log/slog"
	"time"

	"orders/internal/core/application/usecases/commands"
	"orders/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
)

// DefaultRelaySchedule runs the relay every second.
const DefaultRelaySchedule = "@every 1s"

type relayHandler interface {
	Handle(ctx context.Context, cmd commands.RelayOutboxCommand) (commands.RelayOutboxResult, error)
}

// OutboxRelayJob runs the outbox relay on a cron schedule. A run that is still
// going when the next tick fires makes that tick a no-op.
type OutboxRelayJob struct {
	handler  relayHandler
	schedule string
	metrics  *metrics.RelayMetrics
	cron     *cron.Cron
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func NewOutboxRelayJob(handler relayHandler, schedule string, relayMetrics *metrics.RelayMetrics, logger *slog.Logger) *OutboxRelayJob {
	if schedule == "" {
		schedule = DefaultRelaySchedule
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &OutboxRelayJob{
		handler:  handler,
		schedule: schedule,
		metrics:  relayMetrics,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With("component", "outbox_relay_job"),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start schedules the relay.
func (j *OutboxRelayJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.RunOnce(j.ctx)
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(j.ctx, "Outbox relay job started", "schedule", j.schedule)
	return nil
}

// RunOnce performs a single relay cycle and records its outcome.
func (j *OutboxRelayJob) RunOnce(ctx context.Context) {
	cmd, err := commands.NewRelayOutboxCommand(j.now())
	if err != nil {
		j.logger.ErrorContext(ctx, "Outbox relay command rejected", "error", err)
		return
	}

	result, err := j.handler.Handle(ctx, cmd)
	j.record(result, err)

	if err != nil {
		if ctx.Err() == nil {
			j.logger.ErrorContext(ctx, "Outbox relay failed", "error", err)
		}
	} else if result.Claimed > 0 {
		j.logger.DebugContext(ctx, "Outbox relay cycle",
			"claimed", result.Claimed,
			"delivered", result.Delivered,
			"failed", result.Failed,
			"leaseLost", result.LeaseLost,
		)
	}

	for _, m := range result.Exhausted {
		j.logger.ErrorContext(ctx, "Outbox message exhausted its publish attempts",
			"messageId", m.ID,
			"orderId", m.OrderID,
			"eventType", m.EventType,
			"attempts", m.Attempts,
			"lastError", m.LastError,
		)
	}
}

func (j *OutboxRelayJob) record(result commands.RelayOutboxResult, err error) {
	if j.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	j.metrics.Runs.WithLabelValues(outcome).Inc()
	j.metrics.Messages.WithLabelValues("delivered").Add(float64(result.Delivered))
	j.metrics.Messages.WithLabelValues("failed").Add(float64(result.Failed))
	j.metrics.Messages.WithLabelValues("lease_lost").Add(float64(result.LeaseLost))
	j.metrics.Exhausted.Add(float64(len(result.Exhausted)))
}

// Stop cancels a running cycle and waits for it to return.
func (j *OutboxRelayJob) Stop() {
	j.cancel()
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Outbox relay job stopped")
}
