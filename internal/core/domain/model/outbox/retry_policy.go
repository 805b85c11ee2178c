package outbox

import (
	"errors"
	"fmt"
	"math"
	"time"

	"orders/internal/pkg/errs"
)

const maxShift = 62

// RetryPolicy bounds how often and how late the relay retries a failed publish.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy is used when the configuration leaves the relay settings empty.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Minute,
		MaxAttempts: 10,
	}
}

// Validate rejects non-positive delays and attempt limits, and a MaxDelay below BaseDelay.
func (p RetryPolicy) Validate() error {
	var problems []error
	if p.BaseDelay <= 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("baseDelay", fmt.Errorf("%s is not positive", p.BaseDelay)))
	}
	if p.MaxDelay < p.BaseDelay {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("maxDelay", fmt.Errorf("%s is below base delay %s", p.MaxDelay, p.BaseDelay)))
	}
	if p.MaxAttempts <= 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("maxAttempts", fmt.Errorf("%d is not positive", p.MaxAttempts)))
	}
	return errors.Join(problems...)
}

// Delay returns the wait before the next attempt once attempts publishes have failed:
// min(BaseDelay·2^(attempts-1), MaxDelay).
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}

	shift := attempts - 1
	if shift < 0 {
		shift = 0
	} else if shift > maxShift {
		shift = maxShift
	}

	multiplier := int64(1) << shift
	if int64(p.BaseDelay) > math.MaxInt64/multiplier {
		return p.MaxDelay
	}

	delay := time.Duration(int64(p.BaseDelay) * multiplier)
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Exhausted reports whether no further attempt is allowed.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}
