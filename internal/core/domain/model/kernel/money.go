package kernel

import (
	"errors"
	"fmt"

	"orders/internal/pkg/errs"
	"orders/internal/pkg/guard"

	"github.com/shopspring/decimal"
)

// ErrMoneyIsNotConstructed is returned when a Money value bypassed its constructors.
var ErrMoneyIsNotConstructed = errors.New("Money must be created via NewMoney or MoneyFromString")

// MoneyScale is the number of fractional digits an amount may carry.
const MoneyScale = 2

// MaxMoney is the largest amount that can be stored, numeric(18,2).
var MaxMoney = decimal.RequireFromString("9999999999999999.99")

// Money is a non-negative monetary amount with at most two fractional digits.
// Arithmetic is exact (decimal), so products and sums never need rounding.
type Money struct {
	amount decimal.Decimal
	guard  guard.ConstructorGuard
}

// ZeroMoney returns a valid zero amount, the neutral element for Add.
func ZeroMoney() Money {
	return Money{amount: decimal.Zero, guard: guard.NewConstructorGuard()}
}

// NewMoney wraps amount, rejecting negative values, sub-cent fractions and
// amounts above MaxMoney.
func NewMoney(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return Money{}, errs.NewValueIsInvalidErrorWithCause(
			"unitPrice",
			fmt.Errorf("%s is negative", amount.String()),
		)
	}
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return Money{}, errs.NewValueIsInvalidErrorWithCause(
			"unitPrice",
			fmt.Errorf("%s has more than %d fractional digits", amount.String(), MoneyScale),
		)
	}
	m := Money{amount: amount, guard: guard.NewConstructorGuard()}
	if err := m.ValidateRange("unitPrice"); err != nil {
		return Money{}, err
	}
	return m, nil
}

// MoneyFromString parses a decimal literal such as "10.00".
func MoneyFromString(s string) (Money, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, errs.NewValueIsInvalidErrorWithCause("amount", err)
	}
	return NewMoney(amount)
}

// MustMoney is MoneyFromString for literals known to be valid (tests, fixtures).
func MustMoney(s string) Money {
	m, err := MoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Validate ensures the value was constructed.
func (m Money) Validate() error {
	return m.guard.Validate(ErrMoneyIsNotConstructed)
}

// ValidateRange rejects an amount above MaxMoney. Sums and products are checked
// with it before they are kept.
func (m Money) ValidateRange(paramName string) error {
	if m.amount.GreaterThan(MaxMoney) {
		return errs.NewValueIsOutOfRangeError(paramName, m.String(), "0.00", MaxMoney.StringFixed(MoneyScale))
	}
	return nil
}

// Mul returns the amount multiplied by a quantity.
func (m Money) Mul(quantity int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(quantity))), guard: m.guard}
}

// Add returns the sum of both amounts.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount), guard: guard.NewConstructorGuard()}
}

// IsEqual compares amounts numerically, so 20 equals 20.00.
func (m Money) IsEqual(other Money) bool {
	return m.amount.Equal(other.amount)
}

// Decimal exposes the exact amount for persistence.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// String renders the amount with two fractional digits.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}
