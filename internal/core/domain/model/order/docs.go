// Package order implements the Order aggregate root and its lifecycle.
//
// The package includes:
//   - Order: the aggregate root owning items, totals, status and the optimistic concurrency version
//   - Item: an immutable line item carrying the product name and price captured at order time
//   - Status: a closed enumeration with the transition table of the lifecycle
//   - DomainEvent: Created, StatusUpdated and Cancelled events raised by accepted transitions
//
// Key business rules:
//   - Orders start in Pending with version 0 and must carry at least one item
//   - Status follows Pending -> Processing -> Shipped -> Delivered; Pending and Processing may be Cancelled
//   - Delivered and Cancelled are terminal
//   - A tracking number is present exactly when the order is Shipped or Delivered
//   - A cancellation reason is present exactly when the order is Cancelled
//   - Every accepted mutation raises exactly one domain event and bumps the version by one
//
// Raised events are collected by the unit of work when the aggregate is saved and are
// written to the outbox in the same transaction as the order row.
package order
