// Package money holds integer-cent amounts. Dollars only appear at the
// boundary (settings files, request payloads, formatted output).
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in cents.
type Amount int64

const Zero Amount = 0

var ErrInvalidAmount = errors.New("invalid_amount")

var hundred = decimal.NewFromInt(100)

// FromDollars converts a dollar value to cents, rounding half away from zero.
func FromDollars(dollars float64) Amount {
	return FromDecimal(decimal.NewFromFloat(dollars))
}

// FromDecimal converts a decimal dollar value to cents.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Mul(hundred).Round(0).IntPart())
}

func Cents(c int64) Amount { return Amount(c) }

func (a Amount) Cents() int64 { return int64(a) }

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

func (a Amount) Dollars() float64 {
	return a.Decimal().InexactFloat64()
}

// MulRatio scales the amount and rounds to the nearest cent.
func (a Amount) MulRatio(ratio decimal.Decimal) Amount {
	return Amount(decimal.NewFromInt(int64(a)).Mul(ratio).Round(0).IntPart())
}

func (a Amount) Times(n int64) Amount { return a * Amount(n) }

func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

func Max(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}

// Format renders the amount as symbol followed by two decimals, e.g. "$40.00".
func (a Amount) Format(symbol string) string {
	sign := ""
	v := a
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, symbol, int64(v)/100, int64(v)%100)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// Parse reverses Format for the given symbol.
func Parse(s, symbol string) (Amount, error) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, symbol)
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	amt := FromDecimal(d)
	if negative {
		amt = -amt
	}
	return amt, nil
}

// MarshalJSON emits dollars with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal().StringFixed(2)), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if raw == "" || raw == "null" {
		*a = 0
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	*a = FromDecimal(d)
	return nil
}
