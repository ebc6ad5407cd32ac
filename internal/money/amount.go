// Package money is the single path for combining, scaling, and rounding
// monetary values. Amounts are exact decimals tagged with a scale; results
// are only re-expressed at a scale at explicit rounding points.
package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxScale is the largest number of subunit digits an Amount may carry.
const MaxScale = 18

// DefaultScale is the scale used for account balances.
const DefaultScale = 2

var (
	// ErrScaleMismatch is returned when two amounts of different scales are combined.
	ErrScaleMismatch = errors.New("scale mismatch")
	// ErrInvalidScale is returned for scales outside 0..MaxScale.
	ErrInvalidScale = errors.New("invalid scale")
	// ErrDivisionByZero is returned by MulDiv for a zero denominator.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrNotFinite is returned when a quantity is NaN or infinite.
	ErrNotFinite = errors.New("quantity is not finite")
)

// Amount is an immutable decimal monetary value with a declared scale.
// The zero value is 0 at scale 0.
type Amount struct {
	value decimal.Decimal
	scale int32
}

// New creates an Amount. The value is kept exactly as given; use Round to
// re-express it at the scale.
func New(value decimal.Decimal, scale int32) Amount {
	return Amount{value: value, scale: scale}
}

// NewFromInt creates an Amount from an integer number of whole units.
func NewFromInt(v int64, scale int32) Amount {
	return Amount{value: decimal.NewFromInt(v), scale: scale}
}

// NewFromString parses a decimal string into an Amount at the given scale.
func NewFromString(s string, scale int32) (Amount, error) {
	if err := ValidateScale(scale); err != nil {
		return Amount{}, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{value: d, scale: scale}, nil
}

// MustParse is like NewFromString but panics on error. Intended for tests and
// package-level values.
func MustParse(s string, scale int32) Amount {
	a, err := NewFromString(s, scale)
	if err != nil {
		panic(err)
	}
	return a
}

// Zero returns the zero amount at scale.
func Zero(scale int32) Amount {
	return Amount{value: decimal.Zero, scale: scale}
}

// Epsilon returns the smallest representable unit at scale (10^-scale).
func Epsilon(scale int32) Amount {
	return Amount{value: decimal.New(1, -scale), scale: scale}
}

// ValidateScale reports whether scale is within 0..MaxScale.
func ValidateScale(scale int32) error {
	if scale < 0 || scale > MaxScale {
		return fmt.Errorf("%w: %d (must be 0..%d)", ErrInvalidScale, scale, MaxScale)
	}
	return nil
}

// Decimal returns the exact underlying value.
func (a Amount) Decimal() decimal.Decimal { return a.value }

// Scale returns the declared number of subunit digits.
func (a Amount) Scale() int32 { return a.scale }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.value.IsZero() }

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a.value.IsPositive() }

// IsNegative reports whether the amount is strictly less than zero.
func (a Amount) IsNegative() bool { return a.value.IsNegative() }

// Cmp compares the values of a and b, ignoring scale.
func (a Amount) Cmp(b Amount) int { return a.value.Cmp(b.value) }

// LessThan reports whether a < b by value.
func (a Amount) LessThan(b Amount) bool { return a.value.LessThan(b.value) }

// Equal reports whether a and b have the same value and scale.
func (a Amount) Equal(b Amount) bool {
	return a.scale == b.scale && a.value.Equal(b.value)
}

// Exact reports whether the value has no digits beyond the declared scale.
func (a Amount) Exact() bool {
	return a.value.Equal(a.value.Truncate(a.scale))
}

// String formats the value with exactly Scale digits after the point.
// Digits beyond the scale are rounded for display only.
func (a Amount) String() string {
	return a.value.StringFixed(a.scale)
}

type amountJSON struct {
	Value decimal.Decimal `json:"value"`
	Scale int32           `json:"scale"`
}

// MarshalJSON encodes the amount as {"value":"12.34","scale":2}.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(amountJSON{Value: a.value, Scale: a.scale})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var v amountJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding amount: %w", err)
	}
	if err := ValidateScale(v.Scale); err != nil {
		return err
	}
	a.value = v.Value
	a.scale = v.Scale
	return nil
}
