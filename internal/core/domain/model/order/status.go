package order

import (
	"fmt"
	"strings"

	"orders/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
//
// State transitions:
//
//	Pending ──> Processing ──> Shipped ──> Delivered
//	   │            │
//	   └────────────┴──> Cancelled
//
// Pending is only ever assigned at creation. Status values read from storage or
// decoded from requests must go through ParseStatus or Validate, so a free-form
// string can never reach the transition table.
type Status int

const (
	// Unknown is the zero value and is never valid.
	Unknown Status = iota
	Pending
	Processing
	Shipped
	Delivered
	Cancelled
)

var statusNames = map[Status]string{
	Pending:    "Pending",
	Processing: "Processing",
	Shipped:    "Shipped",
	Delivered:  "Delivered",
	Cancelled:  "Cancelled",
}

// transitions lists every allowed move. Anything absent is an InvalidTransition.
var transitions = map[Status][]Status{
	Pending:    {Processing, Cancelled},
	Processing: {Shipped, Cancelled},
	Shipped:    {Delivered},
	Delivered:  nil,
	Cancelled:  nil,
}

// ParseStatus converts the external name of a status ("Shipped", case-insensitive)
// into a Status. Unknown names are rejected with a validation error.
func ParseStatus(raw string) (Status, error) {
	name := strings.TrimSpace(raw)
	for status, statusName := range statusNames {
		if strings.EqualFold(name, statusName) {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause(
		"status",
		fmt.Errorf("%q is not a valid status", raw),
	)
}

// Validate checks that s is one of the five lifecycle states.
func (s Status) Validate() error {
	if _, ok := statusNames[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid status", int(s)))
	}
	return nil
}

// String returns the external name of the status, or "Unknown".
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled
}

// HasTracking reports whether an order in status s carries a tracking number.
func (s Status) HasTracking() bool {
	return s == Shipped || s == Delivered
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo returns next when the move is allowed, or an InvalidTransitionError
// naming both states.
func (s Status) TransitionTo(next Status) (Status, error) {
	if !s.CanTransitionTo(next) {
		return Unknown, errs.NewInvalidTransitionError(s, next)
	}
	return next, nil
}
