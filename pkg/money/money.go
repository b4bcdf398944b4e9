// Package money formats budget amounts with ISO-4217 currency rules.
// Amounts are held in minor units so that line totals add up exactly.
package money

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes used by budgets
const (
	TWD = "TWD" // New Taiwan Dollar
	USD = "USD"
	JPY = "JPY" // no minor unit
)

// ErrCurrencyMismatch is returned when adding amounts in different currencies
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units and a currency code.
func New(amountMinor int64, currencyCode string) *Money {
	return &Money{m: money.New(amountMinor, currencyCode)}
}

// ResolveCurrency returns currencyCode when it is a known ISO-4217 code and
// TWD otherwise.
func ResolveCurrency(currencyCode string) string {
	if money.GetCurrency(currencyCode) == nil {
		return TWD
	}
	return currencyCode
}

// NewFromFloat converts a parsed price cell to Money, rounding to the
// currency's minor unit. Unknown currency codes fall back to TWD; NaN and
// infinite amounts yield zero.
func NewFromFloat(amount float64, currencyCode string) *Money {
	currencyCode = ResolveCurrency(currencyCode)
	if !isFinite(amount) {
		return Zero(currencyCode)
	}
	currency := money.GetCurrency(currencyCode)

	multiplier := decimal.New(1, int32(currency.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(multiplier).Round(0).IntPart()

	return New(minor, currencyCode)
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Amount returns the amount in minor units
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// Add returns the sum of two amounts in the same currency.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	if !m.m.SameCurrency(other.m) {
		return nil, ErrCurrencyMismatch
	}
	sum, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: sum}, nil
}

// Display returns a formatted string such as "NT$1,234.00"
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// ToDecimal converts to decimal.Decimal in major units
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	divisor := decimal.New(1, int32(m.m.Currency().Fraction))
	return decimal.NewFromInt(m.m.Amount()).Div(divisor)
}

// ToFloat64 converts to float64 for JSON responses
func (m *Money) ToFloat64() float64 {
	return m.ToDecimal().InexactFloat64()
}

// MarshalJSON renders amount, currency and display text.
func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]interface{}{
		"amount":   m.ToFloat64(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}

// Sum adds optional price cells in one currency. Absent, NaN and infinite
// cells are skipped.
func Sum(currencyCode string, amounts ...*float64) *Money {
	currencyCode = ResolveCurrency(currencyCode)
	total := Zero(currencyCode)
	for _, a := range amounts {
		if a == nil || !isFinite(*a) {
			continue
		}
		next, err := total.Add(NewFromFloat(*a, currencyCode))
		if err != nil {
			continue
		}
		total = next
	}
	return total
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
