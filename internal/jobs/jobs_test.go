package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"orders/internal/core/application/usecases/commands"
	"orders/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRelayHandler struct {
	mock.Mock
}

func (m *MockRelayHandler) Handle(ctx context.Context, cmd commands.RelayOutboxCommand) (commands.RelayOutboxResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(commands.RelayOutboxResult), args.Error(1)
}

func TestOutboxRelayJobRunOnce(t *testing.T) {
	var logs bytes.Buffer
	relayMetrics := metrics.NewRelayMetrics(prometheus.NewRegistry())
	handler := new(MockRelayHandler)
	handler.On("Handle", mock.Anything, mock.Anything).Return(commands.RelayOutboxResult{
		Claimed:   3,
		Delivered: 2,
		Failed:    1,
		Exhausted: []commands.ExhaustedMessage{{ID: "m-1", OrderID: "o-1", EventType: "Created", Attempts: 5, LastError: "broker down"}},
	}, nil).Once()

	job := NewOutboxRelayJob(handler, "", relayMetrics, slog.New(slog.NewTextHandler(&logs, nil)))
	job.RunOnce(t.Context())

	handler.AssertExpectations(t)
	assert.InDelta(t, 2, testutil.ToFloat64(relayMetrics.Messages.WithLabelValues("delivered")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(relayMetrics.Messages.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(relayMetrics.Exhausted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(relayMetrics.Runs.WithLabelValues("ok")), 0)
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "messageId=m-1")
	assert.Contains(t, logs.String(), `lastError="broker down"`)
}

func TestOutboxRelayJobRunOnceStorageError(t *testing.T) {
	var logs bytes.Buffer
	relayMetrics := metrics.NewRelayMetrics(prometheus.NewRegistry())
	handler := new(MockRelayHandler)
	handler.On("Handle", mock.Anything, mock.Anything).Return(commands.RelayOutboxResult{}, errors.New("db down")).Once()

	job := NewOutboxRelayJob(handler, "", relayMetrics, slog.New(slog.NewTextHandler(&logs, nil)))
	job.RunOnce(t.Context())

	assert.InDelta(t, 1, testutil.ToFloat64(relayMetrics.Runs.WithLabelValues("error")), 0)
	assert.Contains(t, logs.String(), "Outbox relay failed")
}

func TestOutboxRelayJobSchedules(t *testing.T) {
	ran := make(chan struct{}, 1)
	handler := new(MockRelayHandler)
	handler.On("Handle", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case ran <- struct{}{}:
			default:
			}
		}).
		Return(commands.RelayOutboxResult{}, nil)

	job := NewOutboxRelayJob(handler, "@every 1s", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, job.Start())
	defer job.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not run")
	}
}

func TestOutboxRelayJobRejectsBadSchedule(t *testing.T) {
	job := NewOutboxRelayJob(new(MockRelayHandler), "every now and then", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, job.Start())
}

type blockingConsumer struct {
	started chan struct{}
}

func (c *blockingConsumer) Run(ctx context.Context) error {
	close(c.started)
	<-ctx.Done()
	return nil
}

func TestNotificationConsumerJobStartStop(t *testing.T) {
	c := &blockingConsumer{started: make(chan struct{})}
	job := NewNotificationConsumerJob(c, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, job.Start())
	require.NoError(t, job.Start())

	select {
	case <-c.started:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not start")
	}

	job.Stop()
	job.Stop()
}

type fakeJob struct {
	name     string
	startErr error
	events   *[]string
}

func (j fakeJob) Start() error {
	*j.events = append(*j.events, "start "+j.name)
	return j.startErr
}

func (j fakeJob) Stop() {
	*j.events = append(*j.events, "stop "+j.name)
}

func TestJobManager(t *testing.T) {
	var events []string
	jm := NewJobManager(fakeJob{name: "a", events: &events}, fakeJob{name: "b", events: &events})

	require.NoError(t, jm.StartAll())
	jm.StopAll()

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)
}

func TestJobManagerStopsStartedJobsOnFailure(t *testing.T) {
	var events []string
	jm := NewJobManager(
		fakeJob{name: "a", events: &events},
		fakeJob{name: "b", startErr: errors.New("boom"), events: &events},
	)

	require.Error(t, jm.StartAll())
	assert.Equal(t, []string{"start a", "start b", "stop a"}, events)
}
