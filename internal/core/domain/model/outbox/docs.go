// Package outbox models the messages staged next to an order mutation and later
// shipped to the broker by the relay.
//
// A Message is created from an order.DomainEvent inside the same transaction that
// persisted the order. Its ID is the event ID and never changes, so consumers can
// de-duplicate redeliveries. The relay owns a message until it is Delivered:
//
//	Pending ──publish ok──> Delivered
//	   │
//	   └──publish failed──> Failed ──retry due──> Delivered | Failed
//
// A Failed message whose attempts reached RetryPolicy.MaxAttempts has no next retry
// and stays Failed until an operator intervenes.
package outbox
