/*
Package money provides the exact-decimal monetary value type used across
the settlement engine.

PURPOSE:
  Every rupee amount in the system - expenses, payments, balances, ledger
  entries, commission - is a Money. Arithmetic is exact decimal; binary
  floats never touch an amount.

KEY RULES:
  - Two fractional digits. Constructors reject finer precision.
  - Add/Sub are exact.
  - MulRate (commission percentages) rounds half-up to 2 places.
  - Comparisons go through decimal.Decimal, never float64.

USAGE:
  amt, err := money.FromFloat(120.50)
  commission := amt.MulRate(money.MustParse("2.5")) // 2.5% -> 3.01

SEE ALSO:
  - ledger/types.go: the domain records built from Money
*/
package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount with two fractional digits.
// The zero value is a valid zero amount.
type Money struct {
	d decimal.Decimal
}

// Zero returns a zero amount.
func Zero() Money { return Money{} }

// New builds a Money from a decimal, rejecting more than two fractional
// digits. This is the single validation gate for all constructors.
func New(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Truncate(2)) {
		return Money{}, &InvalidAmountError{Input: d.String(), Reason: "more than 2 fractional digits"}
	}
	return Money{d: d}, nil
}

// FromFloat builds a Money from an untrusted float source (API input).
// Non-finite values and sub-paisa precision are rejected.
func FromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}, &InvalidAmountError{Input: fmt.Sprintf("%v", f), Reason: "non-finite value"}
	}
	d := decimal.NewFromFloat(f)
	if !d.Equal(d.Round(2)) {
		return Money{}, &InvalidAmountError{Input: fmt.Sprintf("%v", f), Reason: "more than 2 fractional digits"}
	}
	return Money{d: d.Round(2)}, nil
}

// FromString parses a decimal string ("120.50").
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &InvalidAmountError{Input: s, Reason: "not a decimal number"}
	}
	return New(d)
}

// MustParse parses a decimal string and panics on error.
// For constants in code and tests only - never for untrusted input.
func MustParse(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromInt builds a Money from whole currency units.
func FromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// Add returns m + other. Exact.
func (m Money) Add(other Money) Money { return Money{d: m.d.Add(other.d)} }

// Sub returns m - other. Exact.
func (m Money) Sub(other Money) Money { return Money{d: m.d.Sub(other.d)} }

// Neg returns -m.
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

// Abs returns |m|.
func (m Money) Abs() Money { return Money{d: m.d.Abs()} }

// MulRate applies a percentage rate (e.g. commission of 2.5 means 2.5%)
// and rounds half-up to two decimal places.
func (m Money) MulRate(ratePercent Money) Money {
	raw := m.d.Mul(ratePercent.d).Div(decimal.NewFromInt(100))
	return Money{d: raw.Round(2)}
}

// Min returns the smaller of m and other.
func (m Money) Min(other Money) Money {
	if m.LessThan(other) {
		return m
	}
	return other
}

func (m Money) IsZero() bool     { return m.d.IsZero() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// Compare returns -1, 0 or 1 as m is less than, equal to, or greater
// than other.
func (m Money) Compare(other Money) int        { return m.d.Cmp(other.d) }
func (m Money) Equal(other Money) bool         { return m.d.Equal(other.d) }
func (m Money) LessThan(other Money) bool      { return m.d.LessThan(other.d) }
func (m Money) GreaterThan(other Money) bool   { return m.d.GreaterThan(other.d) }
func (m Money) LessOrEqual(other Money) bool   { return !m.GreaterThan(other) }
func (m Money) GreaterOrEqual(o Money) bool    { return !m.LessThan(o) }

// String renders with exactly two decimal places ("120.50").
func (m Money) String() string { return m.d.StringFixed(2) }

// Decimal exposes the underlying decimal for storage layers.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Float64 is for API DTO conversion only, never for arithmetic.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// MarshalJSON renders the amount as a quoted fixed-2 string so JSON
// round-trips stay exact.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted strings and bare numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// InvalidAmountError reports a malformed monetary input.
type InvalidAmountError struct {
	Input  string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Input, e.Reason)
}
