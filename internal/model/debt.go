package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/money"
)

// InterestType labels how a creditor describes interest accrual.
type InterestType string

const (
	InterestSimple   InterestType = "simple"
	InterestCompound InterestType = "compound"
)

// ParseInterestType parses "simple" or "compound" (case-insensitive).
// An empty string defaults to compound.
func ParseInterestType(s string) (InterestType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(InterestCompound):
		return InterestCompound, nil
	case string(InterestSimple):
		return InterestSimple, nil
	default:
		return "", fmt.Errorf("unknown interest type %q", s)
	}
}

// Valid reports whether t is a known interest type.
func (t InterestType) Valid() bool {
	return t == InterestSimple || t == InterestCompound
}

// Debt is a read-only snapshot of a liability handed to the payoff engine.
type Debt struct {
	Creditor       string
	Currency       string // ISO 4217 code, tagged by the caller
	Balance        money.Amount
	AnnualRate     decimal.Decimal // percent, e.g. 18.99
	InterestType   InterestType
	MonthlyPayment money.Amount
}

// Scale returns the scale the debt is simulated at: the larger of the
// balance and payment scales.
func (d Debt) Scale() int32 {
	if d.MonthlyPayment.Scale() > d.Balance.Scale() {
		return d.MonthlyPayment.Scale()
	}
	return d.Balance.Scale()
}
