package outbox

import (
	"fmt"

	"orders/internal/pkg/errs"
)

// DeliveryState tracks where a message is in the relay lifecycle.
type DeliveryState int

const (
	UnknownState DeliveryState = iota
	Pending
	Delivered
	Failed
)

var deliveryStateNames = map[DeliveryState]string{
	Pending:   "Pending",
	Delivered: "Delivered",
	Failed:    "Failed",
}

// ParseDeliveryState converts a stored state name back into a DeliveryState.
func ParseDeliveryState(raw string) (DeliveryState, error) {
	for state, name := range deliveryStateNames {
		if name == raw {
			return state, nil
		}
	}
	return UnknownState, errs.NewValueIsInvalidErrorWithCause(
		"deliveryState",
		fmt.Errorf("%q is not a valid delivery state", raw),
	)
}

func (s DeliveryState) Validate() error {
	if _, ok := deliveryStateNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("deliveryState", fmt.Errorf("%d is not a valid delivery state", int(s)))
	}
	return nil
}

func (s DeliveryState) String() string {
	if name, ok := deliveryStateNames[s]; ok {
		return name
	}
	return "Unknown"
}
