package payoff

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// Share is one debt's portion of its currency's outstanding balance.
type Share struct {
	Creditor string
	Percent  decimal.Decimal
}

// CurrencySummary aggregates the projections of all debts in one currency.
// TotalInterest and LatestPayoff cover converged debts only.
type CurrencySummary struct {
	Currency      string
	TotalBalance  money.Amount
	TotalInterest money.Amount
	LatestPayoff  time.Time
	Converged     int
	NonConvergent int
	Invalid       int
	Shares        []Share
}

// Summarize groups debts by currency. debts and projections are parallel
// slices as returned by ProjectAll. Currencies are sorted by code.
func Summarize(debts []model.Debt, projections []Projection) ([]CurrencySummary, error) {
	if len(debts) != len(projections) {
		return nil, fmt.Errorf("have %d debts but %d projections", len(debts), len(projections))
	}

	byCurrency := make(map[string]*CurrencySummary)
	var order []string
	for i, d := range debts {
		cs, ok := byCurrency[d.Currency]
		if !ok {
			cs = &CurrencySummary{
				Currency:      d.Currency,
				TotalBalance:  money.Zero(d.Balance.Scale()),
				TotalInterest: money.Zero(d.Balance.Scale()),
			}
			byCurrency[d.Currency] = cs
			order = append(order, d.Currency)
		}

		var err error
		if cs.TotalBalance, err = addReconciled(cs.TotalBalance, d.Balance); err != nil {
			return nil, fmt.Errorf("debt %s: %w", d.Creditor, err)
		}

		p := projections[i]
		switch p.Status {
		case StatusConverged:
			cs.Converged++
			if cs.TotalInterest, err = addReconciled(cs.TotalInterest, p.TotalInterest); err != nil {
				return nil, fmt.Errorf("debt %s: %w", d.Creditor, err)
			}
			if p.PayoffDate.After(cs.LatestPayoff) {
				cs.LatestPayoff = p.PayoffDate
			}
		case StatusNonConvergent:
			cs.NonConvergent++
		default:
			cs.Invalid++
		}
	}

	for _, d := range debts {
		cs := byCurrency[d.Currency]
		cs.Shares = append(cs.Shares, Share{
			Creditor: d.Creditor,
			Percent:  money.PercentOf(d.Balance, cs.TotalBalance, money.DefaultPercentDecimals),
		})
	}

	slices.Sort(order)
	out := make([]CurrencySummary, 0, len(order))
	for _, c := range order {
		out = append(out, *byCurrency[c])
	}
	return out, nil
}

func addReconciled(a, b money.Amount) (money.Amount, error) {
	a, b = money.Reconcile(a, b)
	return money.Add(a, b)
}
