package commands

import (
	"errors"
	"time"

	"orders/internal/pkg/errs"
	"orders/internal/pkg/guard"
)

var ErrRelayOutboxCommandIsNotConstructed = errors.New(
	"RelayOutboxCommand must be created via NewRelayOutboxCommand constructor",
)

// RelayOutboxCommand asks for one relay cycle evaluated at a given instant.
type RelayOutboxCommand struct {
	now time.Time

	guard guard.ConstructorGuard
}

// NewRelayOutboxCommand creates a relay cycle for now.
//
// Example:
//
//	cmd, _ := NewRelayOutboxCommand(time.Now())
//	result, err := handler.Handle(ctx, cmd)
func NewRelayOutboxCommand(now time.Time) (RelayOutboxCommand, error) {
	if now.IsZero() {
		return RelayOutboxCommand{}, errs.NewValueIsRequiredError("now")
	}
	return RelayOutboxCommand{now: now.UTC(), guard: guard.NewConstructorGuard()}, nil
}

func (c RelayOutboxCommand) Validate() error {
	return c.guard.Validate(ErrRelayOutboxCommandIsNotConstructed)
}

func (c RelayOutboxCommand) Now() time.Time {
	return c.now
}
