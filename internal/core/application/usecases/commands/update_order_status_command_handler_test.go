package commands_test

import (
	"errors"
	"sync"
	"testing"

	"orders/internal/core/application/usecases/commands"
	"orders/internal/core/domain/model/kernel"
	"orders/internal/core/domain/model/order"
	"orders/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createOrder(t *testing.T, e engine) *order.Order {
	t.Helper()
	created, err := e.create.Handle(t.Context(), newCreateCommand(t))
	require.NoError(t, err)
	return created
}

func updateStatus(t *testing.T, e engine, id kernel.UUID, status, tracking string, expected *int64) (*order.Order, error) {
	t.Helper()
	cmd, err := commands.NewUpdateOrderStatusCommand(id, status, tracking, expected)
	require.NoError(t, err)
	return e.update.Handle(t.Context(), cmd)
}

func TestUpdateOrderStatusCommandHandler_Lifecycle(t *testing.T) {
	e := newEngine()
	created := createOrder(t, e)
	assert.Equal(t, "20.00", created.TotalAmount().String())

	_, err := updateStatus(t, e, created.ID(), "Shipped", "TRACK-1", nil)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	processing, err := updateStatus(t, e, created.ID(), "Processing", "", versionPtr(0))
	require.NoError(t, err)
	assert.Equal(t, order.Processing, processing.Status())
	assert.Equal(t, int64(1), processing.Version())

	shipped, err := updateStatus(t, e, created.ID(), "Shipped", "TRACK-1", versionPtr(1))
	require.NoError(t, err)
	assert.Equal(t, order.Shipped, shipped.Status())
	assert.Equal(t, int64(2), shipped.Version())
	assert.Equal(t, "TRACK-1", shipped.TrackingNumber())

	stored, err := e.store.Get(t.Context(), created.ID())
	require.NoError(t, err)
	assert.Equal(t, order.Shipped, stored.Status())
	assert.Equal(t, int64(2), stored.Version())

	assert.Equal(t,
		[]order.EventType{order.EventCreated, order.EventStatusUpdated, order.EventStatusUpdated},
		e.outboxTypes(),
	)
}

func TestUpdateOrderStatusCommandHandler_NotFound(t *testing.T) {
	e := newEngine()

	_, err := updateStatus(t, e, kernel.NewUUID(), "Processing", "", nil)

	require.ErrorIs(t, err, errs.ErrObjectNotFound)
	assert.Empty(t, e.outboxTypes())
}

func TestUpdateOrderStatusCommandHandler_StaleExpectedVersion(t *testing.T) {
	e := newEngine()
	created := createOrder(t, e)
	_, err := updateStatus(t, e, created.ID(), "Processing", "", nil)
	require.NoError(t, err)

	_, err = updateStatus(t, e, created.ID(), "Shipped", "TRACK-1", versionPtr(0))

	var conflict *errs.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(0), conflict.Expected)
	assert.Equal(t, int64(1), conflict.Actual)

	stored, err := e.store.Get(t.Context(), created.ID())
	require.NoError(t, err)
	assert.Equal(t, order.Processing, stored.Status())
	assert.Equal(t, int64(1), stored.Version())
	assert.Equal(t, []order.EventType{order.EventCreated, order.EventStatusUpdated}, e.outboxTypes())
}

func TestUpdateOrderStatusCommandHandler_RejectedTransitionLeavesNoTrace(t *testing.T) {
	e := newEngine()
	created := createOrder(t, e)

	_, err := updateStatus(t, e, created.ID(), "Cancelled", "", nil)
	require.ErrorIs(t, err, order.ErrCancelViaStatusUpdate)

	_, err = updateStatus(t, e, created.ID(), "Delivered", "", nil)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	stored, err := e.store.Get(t.Context(), created.ID())
	require.NoError(t, err)
	assert.Equal(t, order.Pending, stored.Status())
	assert.Equal(t, int64(0), stored.Version())
	assert.Equal(t, []order.EventType{order.EventCreated}, e.outboxTypes())
}

func TestUpdateOrderStatusCommandHandler_ShippedRequiresTracking(t *testing.T) {
	e := newEngine()
	created := createOrder(t, e)
	_, err := updateStatus(t, e, created.ID(), "Processing", "", nil)
	require.NoError(t, err)

	_, err = updateStatus(t, e, created.ID(), "Shipped", "   ", nil)

	require.ErrorIs(t, err, errs.ErrValueIsRequired)
	assert.Len(t, e.outboxTypes(), 2)
}

func TestUpdateOrderStatusCommandHandler_ConcurrentWritersOneWins(t *testing.T) {
	e := newEngine()
	created := createOrder(t, e)

	const writers = 8
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]error, writers)
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd, err := commands.NewUpdateOrderStatusCommand(created.ID(), "Processing", "", nil)
			if err != nil {
				results[i] = err
				return
			}
			<-start
			_, results[i] = e.update.Handle(t.Context(), cmd)
		}()
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.True(t,
			errors.Is(err, errs.ErrVersionConflict) || errors.Is(err, errs.ErrInvalidTransition),
			"unexpected error: %v", err,
		)
	}
	assert.Equal(t, 1, winners)

	stored, err := e.store.Get(t.Context(), created.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version())
	assert.Equal(t, []order.EventType{order.EventCreated, order.EventStatusUpdated}, e.outboxTypes())
}

func TestUpdateOrderStatusCommandHandler_UpdateError(t *testing.T) {
	ctx := t.Context()
	restored := restoredOrder(t, order.Pending)
	cmd, err := commands.NewUpdateOrderStatusCommand(restored.ID(), "Processing", "", nil)
	require.NoError(t, err)

	repo := new(MockOrderRepository)
	uow := new(MockOrderUoW)
	mock.InOrder(
		uow.On("Begin", ctx).Return(nil).Once(),
		uow.On("OrderRepository").Return(repo).Once(),
		repo.On("Get", ctx, restored.ID()).Return(restored, nil).Once(),
		repo.On("Update", ctx, restored).Return(errs.NewVersionConflictError(restored.ID().String(), 0, -1)).Once(),
		uow.On("Rollback", ctx).Return(nil).Once(),
	)
	factory := new(MockOrderUoWFactory)
	factory.On("Create").Return(uow).Once()

	h := commands.NewUpdateOrderStatusCommandHandler(factory)
	_, err = h.Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrVersionConflict)
	uow.AssertNotCalled(t, "Commit", ctx)
	repo.AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestUpdateOrderStatusCommandHandler_ValidationError(t *testing.T) {
	factory := new(MockOrderUoWFactory)
	h := commands.NewUpdateOrderStatusCommandHandler(factory)

	_, err := h.Handle(t.Context(), commands.UpdateOrderStatusCommand{})

	require.ErrorIs(t, err, commands.ErrUpdateOrderStatusCommandIsNotConstructed)
	factory.AssertNotCalled(t, "Create")
}

func restoredOrder(t *testing.T, status order.Status) *order.Order {
	t.Helper()
	item, err := order.NewItem(kernel.NewUUID(), "P1", "Widget", 1, kernel.MustMoney("10.00"))
	require.NoError(t, err)
	state := order.State{
		ID:              kernel.NewUUID(),
		ClientID:        "client-1",
		Status:          status,
		Items:           []order.Item{item},
		ShippingAddress: "1 Main St",
		CreatedAt:       fixedNow,
		UpdatedAt:       fixedNow,
	}
	if status.HasTracking() {
		state.TrackingNumber = "TRACK-1"
	}
	if status == order.Cancelled {
		state.CancellationReason = "changed mind"
	}
	o, err := order.RestoreOrder(state)
	require.NoError(t, err)
	return o
}
