package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrObjectNotFound    = errors.New("object not found")
	ErrValueIsInvalid    = errors.New("value is invalid")
	ErrValueIsOutOfRange = errors.New("value is out of range")
	ErrValueIsRequired   = errors.New("value is required")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrVersionConflict   = errors.New("version conflict")
	ErrTransient         = errors.New("transient failure")
)

// IsValidation reports whether err describes caller input that can never succeed as sent.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValueIsRequired) ||
		errors.Is(err, ErrValueIsInvalid) ||
		errors.Is(err, ErrValueIsOutOfRange) ||
		errors.Is(err, ErrUnknownProduct)
}

// ObjectNotFoundError reports a missing object addressed by ID.
type ObjectNotFoundError struct {
	ParamName string
	ID        any
	Cause     error
}

func NewObjectNotFoundError(paramName string, id any) *ObjectNotFoundError {
	return &ObjectNotFoundError{ParamName: paramName, ID: id}
}

func NewObjectNotFoundErrorWithCause(paramName string, id any, cause error) *ObjectNotFoundError {
	return &ObjectNotFoundError{ParamName: paramName, ID: id, Cause: cause}
}

func (e *ObjectNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: param is: %s, ID is: %s (cause: %v)",
			ErrObjectNotFound, e.ParamName, sanitize(e.ID), e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrObjectNotFound, sanitize(e.ID))
}

func (e *ObjectNotFoundError) Unwrap() error {
	return ErrObjectNotFound
}

// ValueIsInvalidError reports a value that is present but malformed.
type ValueIsInvalidError struct {
	ParamName string
	Cause     error
}

func NewValueIsInvalidError(paramName string) *ValueIsInvalidError {
	return &ValueIsInvalidError{ParamName: paramName}
}

func NewValueIsInvalidErrorWithCause(paramName string, cause error) *ValueIsInvalidError {
	return &ValueIsInvalidError{ParamName: paramName, Cause: cause}
}

func (e *ValueIsInvalidError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrValueIsInvalid, e.ParamName, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrValueIsInvalid, e.ParamName)
}

func (e *ValueIsInvalidError) Unwrap() error {
	return ErrValueIsInvalid
}

// ValueIsOutOfRangeError reports a value outside of [Min, Max].
type ValueIsOutOfRangeError struct {
	ParamName string
	Value     any
	Min       any
	Max       any
	Cause     error
}

func NewValueIsOutOfRangeError(paramName string, value, minValue, maxValue any) *ValueIsOutOfRangeError {
	return &ValueIsOutOfRangeError{ParamName: paramName, Value: value, Min: minValue, Max: maxValue}
}

func NewValueIsOutOfRangeErrorWithCause(
	paramName string,
	value, minValue, maxValue any,
	cause error,
) *ValueIsOutOfRangeError {
	return &ValueIsOutOfRangeError{ParamName: paramName, Value: value, Min: minValue, Max: maxValue, Cause: cause}
}

func (e *ValueIsOutOfRangeError) Error() string {
	msg := fmt.Sprintf("%s: %s is %s, min value is %s, max value is %s",
		ErrValueIsInvalid, sanitizeValue(e.Value), e.ParamName, sanitizeValue(e.Min), sanitizeValue(e.Max))
	if e.Cause != nil {
		return fmt.Sprintf("%s (cause: %v)", msg, e.Cause)
	}
	return msg
}

func (e *ValueIsOutOfRangeError) Unwrap() error {
	return ErrValueIsOutOfRange
}

// ValueIsRequiredError reports a missing or blank value.
type ValueIsRequiredError struct {
	ParamName string
	Cause     error
}

func NewValueIsRequiredError(paramName string) *ValueIsRequiredError {
	return &ValueIsRequiredError{ParamName: paramName}
}

func NewValueIsRequiredErrorWithCause(paramName string, cause error) *ValueIsRequiredError {
	return &ValueIsRequiredError{ParamName: paramName, Cause: cause}
}

func (e *ValueIsRequiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrValueIsRequired, e.ParamName, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrValueIsRequired, e.ParamName)
}

func (e *ValueIsRequiredError) Unwrap() error {
	return ErrValueIsRequired
}

// UnknownProductError reports a product the catalog confirmed does not exist.
// It is a validation failure: retrying the same request cannot succeed.
type UnknownProductError struct {
	ProductID string
}

func NewUnknownProductError(productID string) *UnknownProductError {
	return &UnknownProductError{ProductID: productID}
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownProduct, sanitize(e.ProductID))
}

func (e *UnknownProductError) Unwrap() []error {
	return []error{ErrUnknownProduct, ErrValueIsInvalid}
}

// InvalidTransitionError reports a status change that the lifecycle does not allow.
type InvalidTransitionError struct {
	From string
	To   string
}

func NewInvalidTransitionError(from, to fmt.Stringer) *InvalidTransitionError {
	return &InvalidTransitionError{From: from.String(), To: to.String()}
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s is not allowed", ErrInvalidTransition, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// VersionConflictError reports an optimistic concurrency failure.
// Actual is negative when the winning version is not known to the detector.
type VersionConflictError struct {
	ID       string
	Expected int64
	Actual   int64
}

func NewVersionConflictError(id string, expected, actual int64) *VersionConflictError {
	return &VersionConflictError{ID: id, Expected: expected, Actual: actual}
}

func (e *VersionConflictError) Error() string {
	if e.Actual < 0 {
		return fmt.Sprintf("%s: %s expected version %d was modified concurrently",
			ErrVersionConflict, sanitize(e.ID), e.Expected)
	}
	return fmt.Sprintf("%s: %s expected version %d, actual version is %d",
		ErrVersionConflict, sanitize(e.ID), e.Expected, e.Actual)
}

func (e *VersionConflictError) Unwrap() error {
	return ErrVersionConflict
}

// TransientError reports an infrastructure failure where retrying the whole
// operation is safe.
type TransientError struct {
	Operation string
	Cause     error
}

func NewTransientError(operation string, cause error) *TransientError {
	return &TransientError{Operation: operation, Cause: cause}
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrTransient, e.Operation, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrTransient, e.Operation)
}

func (e *TransientError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrTransient}
	}
	return []error{ErrTransient, e.Cause}
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func sanitize(v any) string {
	return lineBreaks.Replace(fmt.Sprintf("%s", v))
}

func sanitizeValue(v any) string {
	return lineBreaks.Replace(fmt.Sprintf("%v", v))
}
