package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/pkg/errs"
	"orders/internal/pkg/guard"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")

	// ErrCancelViaStatusUpdate is returned when a status update asks for Cancelled.
	// Cancellation needs a reason and goes through Cancel.
	ErrCancelViaStatusUpdate = errs.NewValueIsInvalidErrorWithCause(
		"status",
		errors.New("cancel the order with POST /orders/{id}/cancel, which requires a reason"),
	)
)

// Order is the aggregate root of the lifecycle. It owns its items, the derived
// total and the version used for optimistic concurrency.
//
// Order follows these invariants:
//   - Items are non-empty and never change after creation
//   - TotalAmount is the sum of item subtotals, computed once at creation
//   - Status only moves along the transition table in Status
//   - TrackingNumber is set iff status is Shipped or Delivered
//   - CancellationReason is set iff status is Cancelled
//   - Version grows by exactly one per accepted mutation, and each accepted
//     mutation raises exactly one DomainEvent
type Order struct {
	id                 kernel.UUID
	clientID           string
	status             Status
	items              []Item
	totalAmount        kernel.Money
	shippingAddress    string
	trackingNumber     string
	cancellationReason string
	version            int64
	createdAt          time.Time
	updatedAt          time.Time

	// version currently held by storage; updates are guarded on it
	persistedVersion int64

	// events raised since the aggregate was loaded or created, drained by the unit of work
	events []DomainEvent

	guard guard.ConstructorGuard
}

// NewOrder places a new order in Pending with version 0 and raises a CreatedEvent.
//
// Example:
//
//	item, _ := order.NewItem(kernel.NewUUID(), "P1", "Widget", 2, kernel.MustMoney("10.00"))
//	o, err := order.NewOrder(kernel.NewUUID(), "client-1", "1 Main St", []order.Item{item}, time.Now())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(o.TotalAmount()) // 20.00
func NewOrder(id kernel.UUID, clientID, shippingAddress string, items []Item, now time.Time) (*Order, error) {
	o := &Order{
		status:    Pending,
		version:   0,
		createdAt: now.UTC(),
		updatedAt: now.UTC(),
		guard:     guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(id),
		o.setClientID(clientID),
		o.setShippingAddress(shippingAddress),
		o.setItems(items),
	); err != nil {
		return nil, err
	}

	created := make([]CreatedItemPayload, 0, len(o.items))
	for _, item := range o.items {
		created = append(created, CreatedItemPayload{ProductID: item.ProductID(), Quantity: item.Quantity()})
	}
	o.raise(CreatedEvent{
		baseEvent: newBaseEvent(o.id, o.createdAt),
		clientID:  o.clientID,
		items:     created,
	})

	return o, nil
}

// State carries the persisted fields needed to rebuild an Order.
type State struct {
	ID                 kernel.UUID
	ClientID           string
	Status             Status
	Items              []Item
	ShippingAddress    string
	TrackingNumber     string
	CancellationReason string
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RestoreOrder rebuilds an aggregate from storage. It re-checks every invariant,
// including the status, so a corrupted row cannot enter the lifecycle. No event is raised.
func RestoreOrder(state State) (*Order, error) {
	o := &Order{
		trackingNumber:     state.TrackingNumber,
		cancellationReason: state.CancellationReason,
		version:            state.Version,
		persistedVersion:   state.Version,
		createdAt:          state.CreatedAt.UTC(),
		updatedAt:          state.UpdatedAt.UTC(),
		guard:              guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(state.ID),
		o.setClientID(state.ClientID),
		o.setShippingAddress(state.ShippingAddress),
		o.setItems(state.Items),
		o.setStatus(state.Status),
		o.checkVersion(state.Version),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Validate ensures the order was built through a constructor.
func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}
	return o.guard.Validate(ErrOrderIsNotConstructed)
}

func (o *Order) ID() kernel.UUID             { return o.id }
func (o *Order) ClientID() string            { return o.clientID }
func (o *Order) Status() Status              { return o.status }
func (o *Order) TotalAmount() kernel.Money   { return o.totalAmount }
func (o *Order) ShippingAddress() string     { return o.shippingAddress }
func (o *Order) TrackingNumber() string      { return o.trackingNumber }
func (o *Order) CancellationReason() string  { return o.cancellationReason }
func (o *Order) Version() int64              { return o.version }
func (o *Order) CreatedAt() time.Time        { return o.createdAt }
func (o *Order) UpdatedAt() time.Time        { return o.updatedAt }
func (o *Order) Items() []Item               { return append([]Item(nil), o.items...) }
func (o *Order) DomainEvents() []DomainEvent { return append([]DomainEvent(nil), o.events...) }
func (o *Order) IsEqual(other *Order) bool   { return other != nil && o.id.IsEqual(other.id) }
func (o *Order) HasTrackingNumber() bool     { return o.trackingNumber != "" }
func (o *Order) HasCancellationReason() bool { return o.cancellationReason != "" }

// PersistedVersion is the version storage held when the aggregate was loaded or
// last saved. Repositories use it as the optimistic concurrency guard.
func (o *Order) PersistedVersion() int64 {
	return o.persistedVersion
}

// MarkPersisted records that storage now holds the current version.
func (o *Order) MarkPersisted() {
	o.persistedVersion = o.version
}

// State returns a snapshot of the persisted fields.
func (o *Order) State() State {
	return State{
		ID:                 o.id,
		ClientID:           o.clientID,
		Status:             o.status,
		Items:              o.Items(),
		ShippingAddress:    o.shippingAddress,
		TrackingNumber:     o.trackingNumber,
		CancellationReason: o.cancellationReason,
		Version:            o.version,
		CreatedAt:          o.createdAt,
		UpdatedAt:          o.updatedAt,
	}
}

// ClearDomainEvents drops raised events once they are staged in the outbox.
func (o *Order) ClearDomainEvents() {
	o.events = nil
}

// EnsureVersion returns a VersionConflictError when expected differs from the
// version this aggregate was loaded with.
func (o *Order) EnsureVersion(expected int64) error {
	if o.version != expected {
		return errs.NewVersionConflictError(o.id.String(), expected, o.version)
	}
	return nil
}

// ChangeStatus moves the order to next. Moving to Shipped requires a non-blank
// tracking number; moving to Cancelled is refused because it needs a reason (see Cancel).
// On success the version and updatedAt advance and a StatusUpdatedEvent is raised.
// On failure the aggregate is left untouched.
func (o *Order) ChangeStatus(next Status, trackingNumber string, now time.Time) error {
	if err := next.Validate(); err != nil {
		return err
	}

	if next == Cancelled && o.status.CanTransitionTo(Cancelled) {
		return ErrCancelViaStatusUpdate
	}

	newStatus, err := o.status.TransitionTo(next)
	if err != nil {
		return err
	}

	trackingNumber = strings.TrimSpace(trackingNumber)
	if newStatus == Shipped && trackingNumber == "" {
		return errs.NewValueIsRequiredError("trackingNumber")
	}

	oldStatus := o.status
	o.status = newStatus
	if newStatus == Shipped {
		o.trackingNumber = trackingNumber
	}
	o.touch(now)

	o.raise(StatusUpdatedEvent{
		baseEvent:      newBaseEvent(o.id, o.updatedAt),
		oldStatus:      oldStatus,
		newStatus:      newStatus,
		trackingNumber: o.trackingNumber,
	})
	return nil
}

// Cancel moves a Pending or Processing order to Cancelled and records the reason.
// On success the version and updatedAt advance and a CancelledEvent is raised.
func (o *Order) Cancel(reason string, now time.Time) error {
	if _, err := o.status.TransitionTo(Cancelled); err != nil {
		return err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errs.NewValueIsRequiredError("cancellationReason")
	}

	o.status = Cancelled
	o.cancellationReason = reason
	o.touch(now)

	o.raise(CancelledEvent{
		baseEvent: newBaseEvent(o.id, o.updatedAt),
		reason:    reason,
	})
	return nil
}

func (o *Order) touch(now time.Time) {
	o.version++
	o.updatedAt = now.UTC()
}

func (o *Order) raise(event DomainEvent) {
	o.events = append(o.events, event)
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setClientID(clientID string) error {
	if strings.TrimSpace(clientID) == "" {
		return errs.NewValueIsRequiredError("clientId")
	}
	o.clientID = clientID
	return nil
}

func (o *Order) setShippingAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return errs.NewValueIsRequiredError("shippingAddress")
	}
	o.shippingAddress = address
	return nil
}

func (o *Order) setItems(items []Item) error {
	if len(items) == 0 {
		return errs.NewValueIsRequiredError("items")
	}

	total := kernel.ZeroMoney()
	for idx, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", idx, err)
		}
		total = total.Add(item.Subtotal())
	}
	if err := total.ValidateRange("totalAmount"); err != nil {
		return err
	}

	o.items = append([]Item(nil), items...)
	o.totalAmount = total
	return nil
}

// setStatus is used by RestoreOrder only; it checks the optional fields that
// depend on the status.
func (o *Order) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}

	if status.HasTracking() != (o.trackingNumber != "") {
		return errs.NewValueIsInvalidErrorWithCause(
			"trackingNumber",
			fmt.Errorf("tracking number presence does not match status %s", status),
		)
	}

	if (status == Cancelled) != (o.cancellationReason != "") {
		return errs.NewValueIsInvalidErrorWithCause(
			"cancellationReason",
			fmt.Errorf("cancellation reason presence does not match status %s", status),
		)
	}

	o.status = status
	return nil
}

func (o *Order) checkVersion(version int64) error {
	if version < 0 {
		return errs.NewValueIsInvalidErrorWithCause("version", fmt.Errorf("%d is negative", version))
	}
	return nil
}
