package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	t.Run("plain amounts", func(t *testing.T) {
		d, err := ParseDecimal("450")
		require.NoError(t, err)
		assert.True(t, d.Equal(decimal.NewFromInt(450)))

		d, err = ParseDecimal("4550.75")
		require.NoError(t, err)
		assert.Equal(t, "4550.75", d.String())
	})

	t.Run("indian formatting", func(t *testing.T) {
		d, err := ParseDecimal("₹1,23,456.50")
		require.NoError(t, err)
		assert.Equal(t, "123456.5", d.String())

		d, err = ParseDecimal("Rs. 2,500.00")
		require.NoError(t, err)
		assert.Equal(t, "2500", d.String())

		d, err = ParseDecimal("INR 99")
		require.NoError(t, err)
		assert.Equal(t, "99", d.String())
	})

	t.Run("negatives", func(t *testing.T) {
		d, err := ParseDecimal("(1,200.00)")
		require.NoError(t, err)
		assert.True(t, d.IsNegative())

		d, err = ParseDecimal("350.00-")
		require.NoError(t, err)
		assert.True(t, d.IsNegative())
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseDecimal("")
		assert.Error(t, err)

		_, err = ParseDecimal("N/A")
		assert.Error(t, err)

		_, err = ParseDecimal("₹")
		assert.Error(t, err)
	})
}

func TestMoney(t *testing.T) {
	t.Run("round trips minor units", func(t *testing.T) {
		m, err := Parse("450.00", INR)
		require.NoError(t, err)
		assert.Equal(t, int64(45000), m.Amount())
		assert.Equal(t, INR, m.Currency())
		assert.Equal(t, "450.00", m.String())
	})

	t.Run("abs and polarity", func(t *testing.T) {
		d := decimal.NewFromInt(-75)
		m := NewFromDecimal(d, INR)
		assert.True(t, m.IsNegative())
		assert.Equal(t, int64(7500), m.Abs().Amount())
	})

	t.Run("nil safety", func(t *testing.T) {
		var m *Money
		assert.True(t, m.IsZero())
		assert.Equal(t, int64(0), m.Amount())
		assert.Equal(t, "0.00", m.String())
	})

	t.Run("equals", func(t *testing.T) {
		a := New(45000, INR)
		b := New(45000, INR)
		c := New(45001, INR)
		assert.True(t, a.Equals(b))
		assert.False(t, a.Equals(c))
	})
}
