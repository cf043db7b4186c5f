package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrouped(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"thousands", "12.500", 12500},
		{"millions", "1.234.567", 1234567},
		{"plain", "990", 990},
		{"negative", "-12.500", -12500},
		{"explicit plus", "+3.000", 3000},
		{"leading space", "  4.500", 4500},
		{"currency sign", "$ 7.990", 7990},
		{"stops at comma", "12,50", 12},
		{"trailing text", "5.000 CLP", 5000},
		{"zero", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGrouped(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGrouped_NotANumber(t *testing.T) {
	for _, in := range []string{"", "abc", "-", "$", ",50"} {
		_, err := ParseGrouped(in)
		assert.ErrorIs(t, err, ErrNotANumber, "input %q", in)
	}
}

func TestNewFromFloat_ZeroFractionCurrency(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int64
	}{
		{"whole", 12500, 12500},
		{"negative", -8000, -8000},
		{"rounds half away from zero", 12.5, 13},
		{"rounds down", 99.4, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewFromFloat(tt.in, CLP)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, CLP, m.Currency())
		})
	}
}

func TestNewFromDecimal_TwoFractionCurrency(t *testing.T) {
	m, err := NewFromDecimal(decimal.RequireFromString("12.345"), USD)
	require.NoError(t, err)
	assert.Equal(t, int64(1235), m.Amount())
}

func TestNewFromDecimal_UnknownCurrencyFallsBack(t *testing.T) {
	m, err := NewFromDecimal(decimal.NewFromInt(10), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, CLP, m.Currency())
	assert.Equal(t, int64(10), m.Amount())
}

func TestNewFromDecimal_OutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		in       decimal.Decimal
		currency string
	}{
		{"above int64", decimal.RequireFromString("1e19"), CLP},
		{"below int64", decimal.RequireFromString("-1e19"), CLP},
		{"fits only in major units", decimal.RequireFromString("1e17"), USD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewFromDecimal(tt.in, tt.currency)
			assert.ErrorIs(t, err, ErrOutOfRange)
			assert.Nil(t, m)
		})
	}

	m, err := NewFromDecimal(decimal.NewFromInt(math.MaxInt64), CLP)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), m.Amount())
}

func TestNewFromFloat_Invalid(t *testing.T) {
	for _, in := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := NewFromFloat(in, CLP)
		assert.ErrorIs(t, err, ErrNotANumber)
	}

	_, err := NewFromFloat(1e19, CLP)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSum(t *testing.T) {
	total := Sum(CLP, 12500, 3000, -500)
	assert.Equal(t, int64(15000), total.Amount())
	assert.False(t, total.IsZero())
	assert.True(t, Sum(CLP).IsZero())
}

func TestDisplay(t *testing.T) {
	assert.Contains(t, New(12500, CLP).Display(), "12.500")

	var nilMoney *Money
	assert.Equal(t, "$0", nilMoney.Display())
}
