// Package money provides currency-aware handling of expense amounts. Amounts
// are whole currency units for zero-fraction currencies such as CLP, and minor
// units otherwise. It wraps go-money for formatting and arithmetic and
// shopspring/decimal for rounding.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	CLP = "CLP" // Chilean Peso (no decimal places)
	USD = "USD"
	EUR = "EUR"
)

var (
	// ErrNotANumber is returned when an amount string has no leading digits
	// or a float is NaN or infinite.
	ErrNotANumber = errors.New("amount is not a number")
	// ErrOutOfRange is returned when an amount does not fit in int64 minor units.
	ErrOutOfRange = errors.New("amount out of range")
)

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units and a currency code.
func New(amount int64, currencyCode string) *Money {
	return &Money{m: money.New(amount, currencyCode)}
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// NewFromDecimal converts a decimal amount (major units) to Money, rounding
// half away from zero to the currency's precision.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) (*Money, error) {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(CLP)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	units := amount.Mul(multiplier).Round(0)
	if !units.BigInt().IsInt64() {
		return nil, fmt.Errorf("%w: %s", ErrOutOfRange, amount.String())
	}

	return New(units.IntPart(), currency.Code), nil
}

// NewFromFloat converts a spreadsheet numeric cell to Money.
func NewFromFloat(amount float64, currencyCode string) (*Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrNotANumber
	}
	return NewFromDecimal(decimal.NewFromFloat(amount), currencyCode)
}

// ParseGrouped parses a bank-formatted integer amount such as "12.500" or
// "-1.234.567". Every '.' is a thousands separator; parsing stops at the
// first character that is not a digit, so "12,50" yields 12. A leading
// currency sign is tolerated.
func ParseGrouped(s string) (int64, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.TrimLeft(s, " \t ")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimLeft(s, " \t ")

	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, ErrNotANumber
	}

	n, err := strconv.ParseInt(sign+s[:end], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return n, nil
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

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Display returns a formatted string for display (e.g., "$12.500")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "$0"
	}
	return m.m.Display()
}

// Sum totals amounts expressed in minor units of one currency.
func Sum(currencyCode string, amounts ...int64) *Money {
	total := Zero(currencyCode)
	for _, a := range amounts {
		total, _ = total.Add(New(a, currencyCode))
	}
	return total
}
