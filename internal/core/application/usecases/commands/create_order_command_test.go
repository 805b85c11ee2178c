package commands_test

import (
	"testing"
	"time"

	"orders/internal/core/application/usecases/commands"
	"orders/internal/core/domain/model/kernel"
	"orders/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreateOrderCommand_ValidInput(t *testing.T) {
	id := kernel.NewUUID()
	cmd, err := commands.NewCreateOrderCommand(id, " client-1 ", "1 Main St", []commands.OrderLine{{ProductID: " P1 ", Quantity: 2}})
	require.NoError(t, err)
	require.NoError(t, cmd.Validate())
	assert.Equal(t, id, cmd.OrderID())
	assert.Equal(t, "client-1", cmd.ClientID())
	assert.Equal(t, "1 Main St", cmd.ShippingAddress())
	assert.Equal(t, []commands.OrderLine{{ProductID: "P1", Quantity: 2}}, cmd.Lines())
}

func TestNewCreateOrderCommand_EmptyItems(t *testing.T) {
	_, err := commands.NewCreateOrderCommand(kernel.NewUUID(), "client-1", "1 Main St", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrValueIsRequired)
	assert.Contains(t, err.Error(), "items")
}

func TestNewCreateOrderCommand_InvalidLines(t *testing.T) {
	_, err := commands.NewCreateOrderCommand(kernel.NewUUID(), "client-1", "1 Main St", []commands.OrderLine{
		{ProductID: "P1", Quantity: 0},
		{ProductID: "  ", Quantity: 1},
		{ProductID: "P2", Quantity: -3},
	})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Contains(t, err.Error(), "items[0].quantity")
	assert.Contains(t, err.Error(), "items[1].productId")
	assert.Contains(t, err.Error(), "items[2].quantity")
}

func TestNewCreateOrderCommand_BlankFields(t *testing.T) {
	_, err := commands.NewCreateOrderCommand(kernel.UUID{}, " ", "", []commands.OrderLine{{ProductID: "P1", Quantity: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	assert.Contains(t, err.Error(), "clientId")
	assert.Contains(t, err.Error(), "shippingAddress")
}

func TestNewUpdateOrderStatusCommand(t *testing.T) {
	t.Run("parses status names", func(t *testing.T) {
		cmd, err := commands.NewUpdateOrderStatusCommand(kernel.NewUUID(), "shipped", " TRACK-1 ", versionPtr(1))
		require.NoError(t, err)
		assert.Equal(t, "Shipped", cmd.Status().String())
		assert.Equal(t, "TRACK-1", cmd.TrackingNumber())
		v, ok := cmd.ExpectedVersion()
		assert.True(t, ok)
		assert.Equal(t, int64(1), v)
	})

	t.Run("expected version is optional", func(t *testing.T) {
		cmd, err := commands.NewUpdateOrderStatusCommand(kernel.NewUUID(), "Processing", "", nil)
		require.NoError(t, err)
		_, ok := cmd.ExpectedVersion()
		assert.False(t, ok)
	})

	t.Run("rejects unknown status text and negative versions", func(t *testing.T) {
		_, err := commands.NewUpdateOrderStatusCommand(kernel.NewUUID(), "Lost", "", versionPtr(-1))
		require.Error(t, err)
		assert.True(t, errs.IsValidation(err))
		assert.Contains(t, err.Error(), "status")
		assert.Contains(t, err.Error(), "expectedVersion")
	})
}

func TestNewCancelOrderCommand(t *testing.T) {
	cmd, err := commands.NewCancelOrderCommand(kernel.NewUUID(), "", nil)
	require.NoError(t, err, "a blank reason is checked by the aggregate after the transition")
	assert.Equal(t, "", cmd.Reason())

	_, err = commands.NewCancelOrderCommand(kernel.UUID{}, "reason", nil)
	assert.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
}

func TestNewRelayOutboxCommand(t *testing.T) {
	cmd, err := commands.NewRelayOutboxCommand(fixedNow)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, cmd.Now())

	_, err = commands.NewRelayOutboxCommand(time.Time{})
	assert.ErrorIs(t, err, errs.ErrValueIsRequired)

	assert.ErrorIs(t, commands.RelayOutboxCommand{}.Validate(), commands.ErrRelayOutboxCommandIsNotConstructed)
}
