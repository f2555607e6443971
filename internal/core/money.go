// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents so the database can apply balance deltas
// with exact integer arithmetic. Textual amounts go through shopspring/decimal.
package core

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents bounds the magnitude of any single amount: transaction
// amounts, opening balances and budgets.
const MaxAmountCents = 1_000_000_000_000_000

var (
	maxCents = decimal.NewFromInt(MaxAmountCents)
	minCents = decimal.NewFromInt(-MaxAmountCents)
)

// Money is a signed amount in minor units.
type Money struct {
	Cents int64
}

// NewMoney returns an amount of whole units.
func NewMoney(units int64) Money {
	return Money{Cents: units * 100}
}

// ParseMoney converts a decimal string to Money with half-up rounding on the
// third decimal place.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents
//	ParseMoney("-3")     -> -300 cents
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal rounds d to cents. Values beyond MaxAmountCents in
// magnitude are rejected.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return Money{}, fmt.Errorf("%w: %s", ErrAmountOutOfRange, d.String())
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// CheckedAdd returns m+o, or ErrBalanceOverflow when the sum does not fit in
// int64 cents.
func (m Money) CheckedAdd(o Money) (Money, error) {
	if (o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents) ||
		(o.Cents < 0 && m.Cents < math.MinInt64-o.Cents) {
		return Money{}, fmt.Errorf("%w: %d%+d cents", ErrBalanceOverflow, m.Cents, o.Cents)
	}
	return Money{Cents: m.Cents + o.Cents}, nil
}

// InRange reports whether |m| is at most MaxAmountCents.
func (m Money) InRange() bool { return m.Cents >= -MaxAmountCents && m.Cents <= MaxAmountCents }

func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

func (m Money) IsNegative() bool { return m.Cents < 0 }

func (m Money) IsZero() bool { return m.Cents == 0 }

// GreaterThan reports whether m > o.
func (m Money) GreaterThan(o Money) bool { return m.Cents > o.Cents }

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	parsed, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
