// Package core holds the household domain types.
//
// Money is kept in integer cents so sums never drift. Decimal strings and
// JSON numbers are converted through shopspring/decimal with half-up rounding.
package core

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// MaxCents bounds a single amount to one trillion in either direction.
const MaxCents int64 = 100_000_000_000_000

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxCents)
)

// MoneyFromDecimal rounds d half-up to the nearest cent. Amounts beyond
// MaxCents fail with ErrInvalidAmount.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseMoney converts a decimal string to Money.
//
// Both dot (12.34) and comma (12,34) separators are accepted and a leading
// sign is kept:
//
//	ParseMoney("12,345") -> 1235 cents
//	ParseMoney("-40")    -> -4000 cents
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Add saturates at ±math.MaxInt64 cents instead of wrapping.
func (m Money) Add(o Money) Money {
	sum := m.Cents + o.Cents
	switch {
	case o.Cents > 0 && sum < m.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && sum > m.Cents, sum == math.MinInt64:
		return Money{Cents: -math.MaxInt64}
	}
	return Money{Cents: sum}
}

func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

func (m Money) IsZero() bool { return m.Cents == 0 }

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON writes a plain JSON number such as 12.5 or -40.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	parsed, err := ParseMoney(string(bytes.Trim(b, `"`)))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
