package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultPercentDecimals is the precision PercentOf callers use unless they
// need something finer.
const DefaultPercentDecimals = 2

var hundred = decimal.NewFromInt(100)

// Add returns a + b. Both operands must share a scale.
func Add(a, b Amount) (Amount, error) {
	if a.scale != b.scale {
		return Amount{}, fmt.Errorf("%w: cannot add scale %d to scale %d", ErrScaleMismatch, b.scale, a.scale)
	}
	return Amount{value: a.value.Add(b.value), scale: a.scale}, nil
}

// Subtract returns a - b. Both operands must share a scale.
func Subtract(a, b Amount) (Amount, error) {
	if a.scale != b.scale {
		return Amount{}, fmt.Errorf("%w: cannot subtract scale %d from scale %d", ErrScaleMismatch, b.scale, a.scale)
	}
	return Amount{value: a.value.Sub(b.value), scale: a.scale}, nil
}

// Reconcile re-tags a and b with the larger of their two scales so they can
// be combined. Values are unchanged.
func Reconcile(a, b Amount) (Amount, Amount) {
	scale := a.scale
	if b.scale > scale {
		scale = b.scale
	}
	return Amount{value: a.value, scale: scale}, Amount{value: b.value, scale: scale}
}

// Multiply scales a by a plain quantity such as a share count or a factor.
// The product is exact and rounded once to a's scale.
func Multiply(a Amount, quantity float64) (Amount, error) {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return Amount{}, fmt.Errorf("%w: %v", ErrNotFinite, quantity)
	}
	return MultiplyDecimal(a, decimal.NewFromFloat(quantity)), nil
}

// MultiplyDecimal is Multiply for a factor already held as a decimal.
func MultiplyDecimal(a Amount, factor decimal.Decimal) Amount {
	return Amount{value: a.value.Mul(factor).Round(a.scale), scale: a.scale}
}

// MulDiv returns a * num / den rounded once to a's scale.
func MulDiv(a Amount, num, den decimal.Decimal) (Amount, error) {
	if den.IsZero() {
		return Amount{}, ErrDivisionByZero
	}
	return Amount{value: a.value.Mul(num).DivRound(den, a.scale), scale: a.scale}, nil
}

// Sum adds selector(item) over items. An empty collection sums to Zero(scale).
// Every selected amount must be at scale.
func Sum[T any](items []T, scale int32, selector func(T) Amount) (Amount, error) {
	total := Zero(scale)
	for i, item := range items {
		var err error
		total, err = Add(total, selector(item))
		if err != nil {
			return Amount{}, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return total, nil
}

// PercentOf returns numerator / denominator * 100 rounded to decimals places.
// A zero denominator yields 0 rather than an error.
func PercentOf(numerator, denominator Amount, decimals int32) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.value.Mul(hundred).DivRound(denominator.value, decimals)
}

// Round re-expresses a at decimals places, rounding half away from zero.
// Round is idempotent.
func Round(a Amount, decimals int32) Amount {
	return Amount{value: a.value.Round(decimals), scale: decimals}
}

// Min returns the smaller of a and b. Both operands must share a scale.
func Min(a, b Amount) (Amount, error) {
	if a.scale != b.scale {
		return Amount{}, fmt.Errorf("%w: cannot compare scale %d with scale %d", ErrScaleMismatch, b.scale, a.scale)
	}
	if b.value.LessThan(a.value) {
		return b, nil
	}
	return a, nil
}
