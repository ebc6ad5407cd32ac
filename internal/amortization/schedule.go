// Package amortization simulates a fixed monthly payment against a declining
// balance. Every simulation is bounded by MaxMonths, so no input can make
// BuildSchedule loop indefinitely.
package amortization

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// MaxMonths caps every simulation at 50 years.
const MaxMonths = 600

// annual percent -> monthly fraction
var monthlyRateDivisor = decimal.NewFromInt(100 * 12)

// Entry is one month of a schedule. Payment == Principal + Interest, and
// Balance is the balance left after the payment.
type Entry struct {
	PaymentNumber int          `json:"payment_number"`
	Payment       money.Amount `json:"payment"`
	Principal     money.Amount `json:"principal"`
	Interest      money.Amount `json:"interest"`
	Balance       money.Amount `json:"balance"`
}

// Schedule is a converged month-by-month repayment plan.
type Schedule struct {
	InitialBalance money.Amount `json:"initial_balance"`
	Entries        []Entry      `json:"entries"`
	TotalInterest  money.Amount `json:"total_interest"`
	TotalPaid      money.Amount `json:"total_paid"`
}

// Months returns the number of payments in the schedule.
func (s Schedule) Months() int {
	return len(s.Entries)
}

// Scale returns the scale every amount in the schedule is expressed at.
func (s Schedule) Scale() int32 {
	return s.InitialBalance.Scale()
}

// FinalBalance returns the balance after the last payment.
func (s Schedule) FinalBalance() money.Amount {
	if len(s.Entries) == 0 {
		return s.InitialBalance
	}
	return s.Entries[len(s.Entries)-1].Balance
}

// BuildSchedule simulates d month by month until the balance is retired.
//
// Each month accrues round(balance * rate / 1200) of interest on the
// remaining balance, for both simple and compound debts. The result is
// either a converged Schedule or an *EngineError of kind KindInvalidInput
// (reported before simulating) or KindNonConvergent (payment never covers
// interest, or MaxMonths reached first). The debt is not modified.
func BuildSchedule(d model.Debt) (Schedule, error) {
	if err := validate(d); err != nil {
		return Schedule{}, err
	}

	balance, payment := money.Reconcile(d.Balance, d.MonthlyPayment)
	scale := balance.Scale()
	epsilon := money.Epsilon(scale)

	s := Schedule{
		InitialBalance: balance,
		TotalInterest:  money.Zero(scale),
		TotalPaid:      money.Zero(scale),
	}

	for n := 1; n <= MaxMonths; n++ {
		e, err := step(n, balance, payment, d.AnnualRate)
		if err != nil {
			return Schedule{}, err
		}
		s.Entries = append(s.Entries, e)
		balance = e.Balance
		if s.TotalInterest, err = money.Add(s.TotalInterest, e.Interest); err != nil {
			return Schedule{}, fmt.Errorf("month %d: %w", n, err)
		}
		if s.TotalPaid, err = money.Add(s.TotalPaid, e.Payment); err != nil {
			return Schedule{}, fmt.Errorf("month %d: %w", n, err)
		}
		if balance.LessThan(epsilon) {
			return s, nil
		}
	}
	return Schedule{}, nonConvergent(ReasonTermExceeded, MaxMonths)
}

// step computes payment n against balance.
func step(n int, balance, payment money.Amount, annualRate decimal.Decimal) (Entry, error) {
	interest, err := money.MulDiv(balance, annualRate, monthlyRateDivisor)
	if err != nil {
		return Entry{}, fmt.Errorf("month %d: interest: %w", n, err)
	}
	available, err := money.Subtract(payment, interest)
	if err != nil {
		return Entry{}, fmt.Errorf("month %d: %w", n, err)
	}
	principal, err := money.Min(available, balance)
	if err != nil {
		return Entry{}, fmt.Errorf("month %d: %w", n, err)
	}
	if !principal.IsPositive() {
		return Entry{}, nonConvergent(ReasonInsufficientPayment, n)
	}
	paid, err := money.Add(interest, principal)
	if err != nil {
		return Entry{}, fmt.Errorf("month %d: %w", n, err)
	}
	remaining, err := money.Subtract(balance, principal)
	if err != nil {
		return Entry{}, fmt.Errorf("month %d: %w", n, err)
	}
	return Entry{
		PaymentNumber: n,
		Payment:       paid,
		Principal:     principal,
		Interest:      interest,
		Balance:       remaining,
	}, nil
}

func validate(d model.Debt) error {
	if err := money.ValidateScale(d.Balance.Scale()); err != nil {
		return invalidInput("balance: %v", err)
	}
	if err := money.ValidateScale(d.MonthlyPayment.Scale()); err != nil {
		return invalidInput("monthly payment: %v", err)
	}
	if !d.Balance.IsPositive() {
		return invalidInput("balance must be positive, got %s", d.Balance)
	}
	if !d.MonthlyPayment.IsPositive() {
		return invalidInput("monthly payment must be positive, got %s", d.MonthlyPayment)
	}
	if d.AnnualRate.IsNegative() {
		return invalidInput("annual interest rate must not be negative, got %s", d.AnnualRate)
	}
	if !d.InterestType.Valid() {
		return invalidInput("unknown interest type %q", d.InterestType)
	}
	if !d.Balance.Exact() {
		return invalidInput("balance %s has more than %d decimal places", d.Balance.Decimal(), d.Balance.Scale())
	}
	if !d.MonthlyPayment.Exact() {
		return invalidInput("monthly payment %s has more than %d decimal places", d.MonthlyPayment.Decimal(), d.MonthlyPayment.Scale())
	}
	return nil
}
