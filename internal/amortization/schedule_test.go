package amortization

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

func amt(s string) money.Amount {
	return money.MustParse(s, 2)
}

func debt(balance, rate, payment string) model.Debt {
	return model.Debt{
		Creditor:       "Test Bank",
		Currency:       "USD",
		Balance:        amt(balance),
		AnnualRate:     decimal.RequireFromString(rate),
		InterestType:   model.InterestCompound,
		MonthlyPayment: amt(payment),
	}
}

func engineKind(t *testing.T, err error) *EngineError {
	t.Helper()
	var ee *EngineError
	require.True(t, errors.As(err, &ee), "expected *EngineError, got %v", err)
	return ee
}

func TestBuildSchedule_ZeroRate(t *testing.T) {
	s, err := BuildSchedule(debt("1200.00", "0", "100.00"))
	require.NoError(t, err)

	assert.Equal(t, 12, s.Months())
	assert.Equal(t, "0.00", s.TotalInterest.String())
	assert.Equal(t, "1200.00", s.TotalPaid.String())
	assert.Equal(t, "0.00", s.FinalBalance().String())
	for _, e := range s.Entries {
		assert.Equal(t, "100.00", e.Payment.String())
		assert.Equal(t, "0.00", e.Interest.String())
	}
	assert.Empty(t, Verify(s))
}

func TestBuildSchedule_WithInterest(t *testing.T) {
	s, err := BuildSchedule(debt("1000.00", "12", "100.00"))
	require.NoError(t, err)

	assert.Equal(t, 11, s.Months())
	assert.Less(t, s.Months(), 12)
	assert.True(t, s.TotalInterest.IsPositive())
	assert.Equal(t, "58.98", s.TotalInterest.String())

	first := s.Entries[0]
	assert.Equal(t, 1, first.PaymentNumber)
	assert.Equal(t, "100.00", first.Payment.String())
	assert.Equal(t, "10.00", first.Interest.String())
	assert.Equal(t, "90.00", first.Principal.String())
	assert.Equal(t, "910.00", first.Balance.String())

	second := s.Entries[1]
	assert.Equal(t, "9.10", second.Interest.String())
	assert.Equal(t, "819.10", second.Balance.String())

	last := s.Entries[len(s.Entries)-1]
	assert.Equal(t, "58.98", last.Payment.String())
	assert.Equal(t, "58.40", last.Principal.String())
	assert.Equal(t, "0.58", last.Interest.String())
	assert.Equal(t, "0.00", last.Balance.String())

	assert.Empty(t, Verify(s))
}

func TestBuildSchedule_Mortgage(t *testing.T) {
	s, err := BuildSchedule(debt("100000.00", "6", "600.00"))
	require.NoError(t, err)
	assert.Equal(t, 360, s.Months())
	assert.Equal(t, "115548.38", s.TotalInterest.String())
	assert.Empty(t, Verify(s))
}

func TestBuildSchedule_PartialFinalPayment(t *testing.T) {
	s, err := BuildSchedule(debt("250.00", "0", "100.00"))
	require.NoError(t, err)
	require.Equal(t, 3, s.Months())
	assert.Equal(t, "50.00", s.Entries[2].Payment.String())
	assert.Equal(t, "0.00", s.FinalBalance().String())
}

func TestBuildSchedule_SinglePayment(t *testing.T) {
	s, err := BuildSchedule(debt("50.00", "12", "100.00"))
	require.NoError(t, err)
	require.Equal(t, 1, s.Months())
	assert.Equal(t, "0.50", s.Entries[0].Interest.String())
	assert.Equal(t, "50.50", s.Entries[0].Payment.String())
}

func TestBuildSchedule_NegativeAmortization(t *testing.T) {
	_, err := BuildSchedule(debt("1000.00", "24", "10.00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonConvergent)
	assert.NotErrorIs(t, err, ErrInvalidInput)

	ee := engineKind(t, err)
	assert.Equal(t, KindNonConvergent, ee.Kind)
	assert.Equal(t, ReasonInsufficientPayment, ee.Reason)
	assert.Equal(t, 1, ee.Month)
}

func TestBuildSchedule_PaymentEqualsInterest(t *testing.T) {
	_, err := BuildSchedule(debt("1000.00", "12", "10.00"))
	ee := engineKind(t, err)
	assert.Equal(t, ReasonInsufficientPayment, ee.Reason)
	assert.Equal(t, 1, ee.Month)
}

func TestBuildSchedule_TermExceeded(t *testing.T) {
	// One cent above the interest: converges in theory, not within 50 years.
	_, err := BuildSchedule(debt("1000.00", "12", "10.01"))
	require.ErrorIs(t, err, ErrNonConvergent)

	ee := engineKind(t, err)
	assert.Equal(t, ReasonTermExceeded, ee.Reason)
	assert.Equal(t, MaxMonths, ee.Month)
	assert.Contains(t, err.Error(), "exceeded maximum simulated term")
}

func TestBuildSchedule_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		d    model.Debt
	}{
		{"zero balance", debt("0.00", "5", "100.00")},
		{"negative balance", debt("-10.00", "5", "100.00")},
		{"zero payment", debt("100.00", "5", "0.00")},
		{"negative payment", debt("100.00", "5", "-1.00")},
		{"negative rate", debt("100.00", "-0.5", "10.00")},
		{"balance beyond scale", func() model.Debt {
			d := debt("100.00", "5", "10.00")
			d.Balance = amt("100.005")
			return d
		}()},
		{"unknown interest type", func() model.Debt {
			d := debt("100.00", "5", "10.00")
			d.InterestType = "continuous"
			return d
		}()},
		{"invalid scale", func() model.Debt {
			d := debt("100.00", "5", "10.00")
			d.Balance = money.New(decimal.NewFromInt(100), 40)
			return d
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSchedule(tt.d)
			require.ErrorIs(t, err, ErrInvalidInput)
			ee := engineKind(t, err)
			assert.Equal(t, KindInvalidInput, ee.Kind)
			assert.Zero(t, ee.Month)
		})
	}
}

func TestBuildSchedule_SimpleMatchesCompound(t *testing.T) {
	compound := debt("5000.00", "18.99", "150.00")
	simple := compound
	simple.InterestType = model.InterestSimple

	cs, err := BuildSchedule(compound)
	require.NoError(t, err)
	ss, err := BuildSchedule(simple)
	require.NoError(t, err)

	assert.Equal(t, 48, cs.Months())
	assert.Equal(t, cs.Months(), ss.Months())
	assert.Equal(t, "2162.62", cs.TotalInterest.String())
	assert.True(t, cs.TotalInterest.Equal(ss.TotalInterest))
}

func TestBuildSchedule_MixedScales(t *testing.T) {
	d := debt("100.00", "0", "30.00")
	d.MonthlyPayment = money.MustParse("30.005", 3)

	s, err := BuildSchedule(d)
	require.NoError(t, err)
	assert.Equal(t, int32(3), s.Scale())
	assert.Equal(t, 4, s.Months())
	assert.Equal(t, "9.985", s.Entries[3].Payment.String())
	assert.Empty(t, Verify(s))
}

func TestBuildSchedule_DoesNotMutateDebt(t *testing.T) {
	d := debt("1000.00", "12", "100.00")
	before := d.Balance.String()
	_, err := BuildSchedule(d)
	require.NoError(t, err)
	assert.Equal(t, before, d.Balance.String())
}

// Randomized valid inputs: every run terminates within MaxMonths, converged
// schedules satisfy all invariants, and payments at or below the first
// month's interest stop on the first step.
func TestBuildSchedule_TerminationProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(20240601))
	hundred := decimal.NewFromInt(100)

	for i := 0; i < 500; i++ {
		balanceCents := rng.Int63n(10_000_000) + 1
		rateBps := rng.Int63n(4000) // 0% .. 40%
		paymentCents := rng.Int63n(balanceCents) + 1

		d := model.Debt{
			Creditor:       "Random",
			Balance:        money.New(decimal.New(balanceCents, -2), 2),
			AnnualRate:     decimal.New(rateBps, -2),
			InterestType:   model.InterestCompound,
			MonthlyPayment: money.New(decimal.New(paymentCents, -2), 2),
		}

		s, err := BuildSchedule(d)
		firstInterest := d.Balance.Decimal().Mul(d.AnnualRate).Div(hundred).Div(decimal.NewFromInt(12))

		if err != nil {
			require.ErrorIs(t, err, ErrNonConvergent, "run %d: %+v", i, d)
			ee := engineKind(t, err)
			assert.LessOrEqual(t, ee.Month, MaxMonths)
			if !d.MonthlyPayment.Decimal().GreaterThan(firstInterest) {
				assert.Equal(t, 1, ee.Month, "run %d: payment below interest must stop on month 1", i)
			}
			continue
		}

		assert.LessOrEqual(t, s.Months(), MaxMonths)
		assert.Empty(t, Verify(s), "run %d: %+v", i, d)
	}
}
