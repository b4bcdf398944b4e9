package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestNewFromFloat(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		want     int64
	}{
		{"simple decimal", 12.34, USD, 1234},
		{"whole number", 100.00, USD, 10000},
		{"zero", 0.0, USD, 0},
		{"negative", -50.99, USD, -5099},
		{"rounding", 12.345, USD, 1235},
		{"yen has no minor unit", 1500, JPY, 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFromFloat(tt.amount, tt.currency)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestNewFromFloat_UnknownCurrency(t *testing.T) {
	m := NewFromFloat(10, "???")
	assert.Equal(t, TWD, m.Currency())
}

func TestAdd(t *testing.T) {
	sum, err := New(1000, USD).Add(New(250, USD))
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.Amount())

	_, err = New(1000, USD).Add(New(250, JPY))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	var empty *Money
	sum, err = empty.Add(New(5, USD))
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum.Amount())
}

func TestSum(t *testing.T) {
	total := Sum(USD, ptr(10.10), nil, ptr(0.2), ptr(100))
	assert.Equal(t, int64(11030), total.Amount())
	assert.True(t, decimal.RequireFromString("110.3").Equal(total.ToDecimal()))
	assert.Equal(t, 110.3, total.ToFloat64())

	assert.True(t, Sum(TWD).IsZero())
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "$1,234.56", New(123456, USD).Display())
	assert.Equal(t, "", (*Money)(nil).Display())
}

func TestSum_SkipsNonFinite(t *testing.T) {
	total := Sum(TWD, ptr(50), ptr(math.NaN()), ptr(math.Inf(1)), ptr(math.Inf(-1)), ptr(100))
	assert.Equal(t, int64(15000), total.Amount())

	assert.NotPanics(t, func() {
		assert.True(t, NewFromFloat(math.NaN(), USD).IsZero())
		assert.True(t, NewFromFloat(math.Inf(1), USD).IsZero())
	})
}

func TestSum_UnknownCurrency(t *testing.T) {
	total := Sum("XYZ", ptr(10), ptr(5))
	assert.Equal(t, TWD, total.Currency())
	assert.Equal(t, 15.0, total.ToFloat64())
}

func TestResolveCurrency(t *testing.T) {
	assert.Equal(t, USD, ResolveCurrency(USD))
	assert.Equal(t, TWD, ResolveCurrency(""))
	assert.Equal(t, TWD, ResolveCurrency("nope"))
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(New(1999, USD))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 19.99, got["amount"])
	assert.Equal(t, USD, got["currency"])
	assert.Equal(t, "$19.99", got["display"])
}
