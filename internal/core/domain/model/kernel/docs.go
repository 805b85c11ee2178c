// Package kernel provides the shared value objects of the order domain.
//
// The package includes:
//   - UUID: identifier for orders, order items and outbox messages
//   - Money: a non-negative decimal amount used for prices, subtotals and totals
//
// Both types are immutable and their zero values are invalid, so aggregates can
// detect values that bypassed the constructors.
package kernel
