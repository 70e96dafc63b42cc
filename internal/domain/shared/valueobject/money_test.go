package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromInt(100), USD)
	require.NoError(t, err)
	assert.True(t, m.Amount().Equal(decimal.NewFromInt(100)))
	assert.Equal(t, USD, m.Currency())

	_, err = NewMoney(decimal.NewFromInt(100), "")
	assert.Error(t, err)
}

func TestMoney_Add(t *testing.T) {
	a := NewMoneyUSDFromFloat(10.50)
	b := NewMoneyUSDFromFloat(4.50)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "15.00", sum.StringFixed(2))

	eur := Zero(EUR)
	_, err = a.Add(eur)
	assert.Error(t, err)
}

func TestMoney_Subtract(t *testing.T) {
	a := NewMoneyUSDFromFloat(10)
	b := NewMoneyUSDFromFloat(4)

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, "6.00", diff.StringFixed(2))
}

func TestMoney_CalculateRate(t *testing.T) {
	sale := NewMoneyUSDFromFloat(50000)
	rate, _ := decimal.NewFromString("0.15")

	commission := sale.CalculateRate(rate)
	assert.Equal(t, "7500.00", commission.StringFixed(2))
}

func TestMoney_MultiplyByInt(t *testing.T) {
	unit := NewMoneyUSDFromFloat(1000)
	assert.Equal(t, "2000.00", unit.MultiplyByInt(2).StringFixed(2))
}

func TestMoney_Comparisons(t *testing.T) {
	small := NewMoneyUSDFromFloat(1)
	big := NewMoneyUSDFromFloat(2)

	lt, err := small.LessThan(big)
	require.NoError(t, err)
	assert.True(t, lt)

	gt, err := big.GreaterThan(small)
	require.NoError(t, err)
	assert.True(t, gt)

	assert.True(t, small.Equals(NewMoneyUSDFromFloat(1)))
	assert.False(t, small.Equals(big))
}

func TestMoney_Signs(t *testing.T) {
	assert.True(t, ZeroUSD().IsZero())
	assert.True(t, NewMoneyUSDFromFloat(1).IsPositive())
	assert.True(t, NewMoneyUSDFromFloat(-1).IsNegative())
	assert.True(t, NewMoneyUSDFromFloat(1).Negate().IsNegative())
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := NewMoneyUSDFromFloat(99.99)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("123.45"))
	assert.Equal(t, "123.45", m.StringFixed(2))
	assert.Equal(t, DefaultCurrency, m.Currency())

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(42))
}
