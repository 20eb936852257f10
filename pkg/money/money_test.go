package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		currency string
		want     int64
	}{
		{"positive cents", 1234, USD, 1234},
		{"zero", 0, USD, 0},
		{"negative cents", -5000, USD, -5000},
		{"large amount", 999999999, USD, 999999999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.cents, tt.currency)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestNewFromDecimal(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   int64
	}{
		{"precise decimal", "123.45", 12345},
		{"many decimals", "99.999", 10000},
		{"whole number", "500", 50000},
		{"negative", "-25.50", -2550},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)
			m := NewFromDecimal(d, USD)
			assert.Equal(t, tt.want, m.Amount())
		})
	}
}

func TestCentsConversions(t *testing.T) {
	d := decimal.RequireFromString("42.37")
	cents := CentsFromDecimal(d)
	assert.Equal(t, int64(4237), cents)
	assert.True(t, DecimalFromCents(cents).Equal(d))
	assert.InDelta(t, 42.37, FloatFromCents(cents), 0.0001)
}

func TestAbsAndIsNegative(t *testing.T) {
	m := New(-1250, USD)
	assert.True(t, m.IsNegative())
	assert.Equal(t, int64(1250), m.Abs().Amount())
	assert.False(t, m.Abs().IsNegative())
}

func TestAdd(t *testing.T) {
	t.Run("same currency", func(t *testing.T) {
		sum, err := New(100, USD).Add(New(250, USD))
		require.NoError(t, err)
		assert.Equal(t, int64(350), sum.Amount())
	})

	t.Run("currency mismatch", func(t *testing.T) {
		_, err := New(100, USD).Add(New(250, "EUR"))
		assert.Error(t, err)
	})

	t.Run("nil receiver", func(t *testing.T) {
		var m *Money
		sum, err := m.Add(New(77, USD))
		require.NoError(t, err)
		assert.Equal(t, int64(77), sum.Amount())
	})
}

func TestPercentageOf(t *testing.T) {
	part := New(2500, USD)
	total := New(10000, USD)
	assert.True(t, part.PercentageOf(total).Equal(decimal.NewFromInt(25)))

	assert.True(t, part.PercentageOf(Zero(USD)).IsZero())
}

func TestString(t *testing.T) {
	assert.Equal(t, "12.30", New(1230, USD).String())
	var m *Money
	assert.Equal(t, "0.00", m.String())
}

func TestJSONRoundTrip(t *testing.T) {
	m := New(9999, USD)
	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var back Money
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, int64(9999), back.Amount())
	assert.Equal(t, USD, back.Currency())
}
