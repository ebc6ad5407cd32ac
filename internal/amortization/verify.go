package amortization

import (
	"fmt"

	"github.com/cleared-dev/tally/internal/money"
)

// ValidationError describes a single schedule invariant violation.
type ValidationError struct {
	Invariant     int
	PaymentNumber int
	Description   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [payment %d]: %s", e.Invariant, e.PaymentNumber, e.Description)
}

// Verify checks 7 invariants on a converged schedule and returns every
// violation found. A schedule from BuildSchedule always verifies clean.
func Verify(s Schedule) []ValidationError {
	var errs []ValidationError
	scale := s.Scale()

	// Invariant 6: Bounded term.
	if len(s.Entries) == 0 || len(s.Entries) > MaxMonths {
		errs = append(errs, ValidationError{
			Invariant:   6,
			Description: fmt.Sprintf("schedule has %d payments, want 1..%d", len(s.Entries), MaxMonths),
		})
	}

	principalSum := money.Zero(scale)
	interestSum := money.Zero(scale)
	prevBalance := s.InitialBalance

	for i, e := range s.Entries {
		// Invariant 7: Every amount is exact at the schedule scale.
		for _, f := range []struct {
			name string
			a    money.Amount
		}{{"payment", e.Payment}, {"principal", e.Principal}, {"interest", e.Interest}, {"balance", e.Balance}} {
			if f.a.Scale() != scale || !f.a.Exact() {
				errs = append(errs, ValidationError{
					Invariant:     7,
					PaymentNumber: e.PaymentNumber,
					Description:   fmt.Sprintf("%s %s is not exact at scale %d", f.name, f.a.Decimal(), scale),
				})
			}
		}

		// Invariant 2: Payment numbers run 1..N.
		if e.PaymentNumber != i+1 {
			errs = append(errs, ValidationError{
				Invariant:     2,
				PaymentNumber: e.PaymentNumber,
				Description:   fmt.Sprintf("payment number %d at position %d", e.PaymentNumber, i+1),
			})
		}

		// Invariant 1: payment == principal + interest.
		if !e.Payment.Decimal().Equal(e.Principal.Decimal().Add(e.Interest.Decimal())) {
			errs = append(errs, ValidationError{
				Invariant:     1,
				PaymentNumber: e.PaymentNumber,
				Description:   fmt.Sprintf("payment (%s) != principal (%s) + interest (%s)", e.Payment, e.Principal, e.Interest),
			})
		}

		// Invariant 3: Balance is non-negative and non-increasing.
		if e.Balance.IsNegative() || prevBalance.LessThan(e.Balance) {
			errs = append(errs, ValidationError{
				Invariant:     3,
				PaymentNumber: e.PaymentNumber,
				Description:   fmt.Sprintf("balance %s after %s", e.Balance, prevBalance),
			})
		}
		prevBalance = e.Balance

		if sum, err := money.Add(principalSum, e.Principal); err == nil {
			principalSum = sum
		}
		if sum, err := money.Add(interestSum, e.Interest); err == nil {
			interestSum = sum
		}
	}

	// Invariant 4: Terminal balance is zero.
	final := s.FinalBalance()
	if len(s.Entries) > 0 && !final.IsZero() {
		errs = append(errs, ValidationError{
			Invariant:     4,
			PaymentNumber: len(s.Entries),
			Description:   fmt.Sprintf("final balance %s is not zero", final),
		})
	}

	// Invariant 5: sum(principal) + final balance == initial balance, and the
	// interest total matches the entries.
	if !principalSum.Decimal().Add(final.Decimal()).Equal(s.InitialBalance.Decimal()) {
		errs = append(errs, ValidationError{
			Invariant:   5,
			Description: fmt.Sprintf("principal (%s) + final balance (%s) != initial balance (%s)", principalSum, final, s.InitialBalance),
		})
	}
	if !interestSum.Decimal().Equal(s.TotalInterest.Decimal()) {
		errs = append(errs, ValidationError{
			Invariant:   5,
			Description: fmt.Sprintf("entry interest (%s) != total interest (%s)", interestSum, s.TotalInterest),
		})
	}

	return errs
}
