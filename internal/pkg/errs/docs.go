// Package errs provides standardized error types for the order lifecycle service.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// The package includes several error types grouped by the kind of failure they report:
//   - Validation: ValueIsRequiredError, ValueIsInvalidError, ValueIsOutOfRangeError, UnknownProductError
//   - Not found: ObjectNotFoundError
//   - Illegal state change: InvalidTransitionError
//   - Concurrent modification: VersionConflictError
//   - Retryable infrastructure failure: TransientError
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g., ErrValueIsRequired)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method for error wrapping/unwrapping support
//
// Any error that does not match one of the sentinels is treated as fatal by callers.
package errs
