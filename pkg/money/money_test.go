package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFromDollarsRounds(t *testing.T) {
	assert.Equal(t, Amount(4000), FromDollars(40))
	assert.Equal(t, Amount(1999), FromDollars(19.99))
	assert.Equal(t, Amount(1), FromDollars(0.005))
	assert.Equal(t, Amount(-1), FromDollars(-0.005))
	assert.Equal(t, Amount(33), FromDollars(0.334))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$40.00", Amount(4000).Format("$"))
	assert.Equal(t, "$0.00", Zero.Format("$"))
	assert.Equal(t, "€0.05", Amount(5).Format("€"))
	assert.Equal(t, "-$1.50", Amount(-150).Format("$"))
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("$abc", "$")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMulRatio(t *testing.T) {
	assert.Equal(t, Amount(1250), Amount(2500).MulRatio(decimal.NewFromFloat(0.5)))
	assert.Equal(t, Amount(333), Amount(1000).MulRatio(decimal.NewFromInt(1).Div(decimal.NewFromInt(3))))
}

func TestJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Total Amount `json:"total"`
	}{Total: 4000})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":40.00}`, string(b))

	var out struct {
		Total Amount `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"total":12.345}`), &out))
	assert.Equal(t, Amount(1235), out.Total)
}

func TestFormatParseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(-1_000_000_000, 1_000_000_000).Draw(t, "cents")
		symbol := rapid.SampledFrom([]string{"$", "€", "Rp", "£"}).Draw(t, "symbol")
		a := Amount(cents)
		parsed, err := Parse(a.Format(symbol), symbol)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if parsed != a {
			t.Fatalf("round trip %d -> %q -> %d", a, a.Format(symbol), parsed)
		}
	})
}

func TestDollarsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(0, 100_000_000).Draw(t, "cents")
		a := Amount(cents)
		if got := FromDollars(a.Dollars()); got != a {
			t.Fatalf("dollars round trip %d -> %v -> %d", a, a.Dollars(), got)
		}
	})
}
