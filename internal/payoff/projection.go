// Package payoff turns amortization results into compact payoff projections.
package payoff

import (
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/tally/internal/amortization"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// Status tags which variant a Projection holds.
type Status int

const (
	// StatusUnknown is the zero value: no projection has been computed.
	StatusUnknown Status = iota
	StatusConverged
	StatusNonConvergent
	StatusInvalidInput
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusNonConvergent:
		return "non-convergent"
	case StatusInvalidInput:
		return "invalid-input"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Projection summarizes one debt. Months, PayoffDate and TotalInterest are
// set only for StatusConverged; Reason only for the other computed states.
type Projection struct {
	Status        Status       `json:"status"`
	Months        int          `json:"months,omitempty"`
	PayoffDate    time.Time    `json:"payoff_date,omitzero"`
	TotalInterest money.Amount `json:"total_interest"`
	Reason        string       `json:"reason,omitempty"`
}

// Converged reports whether the projection holds a payoff.
func (p Projection) Converged() bool {
	return p.Status == StatusConverged
}

// Project builds d's schedule and summarizes it relative to start.
func Project(d model.Debt, start time.Time) Projection {
	s, err := amortization.BuildSchedule(d)
	return FromSchedule(s, err, start)
}

// FromSchedule summarizes an engine result. Engine errors pass through as
// StatusNonConvergent or StatusInvalidInput with the engine's reason.
func FromSchedule(s amortization.Schedule, err error, start time.Time) Projection {
	if err != nil {
		var ee *amortization.EngineError
		if !errors.As(err, &ee) {
			return Projection{Status: StatusInvalidInput, Reason: err.Error()}
		}
		if ee.Kind == amortization.KindNonConvergent {
			return Projection{Status: StatusNonConvergent, Reason: ee.Reason}
		}
		return Projection{Status: StatusInvalidInput, Reason: ee.Reason}
	}

	total, serr := money.Sum(s.Entries, s.Scale(), func(e amortization.Entry) money.Amount { return e.Interest })
	if serr != nil {
		return Projection{Status: StatusInvalidInput, Reason: fmt.Sprintf("summing interest: %v", serr)}
	}

	months := s.Months()
	return Projection{
		Status:        StatusConverged,
		Months:        months,
		PayoffDate:    AddMonths(start, months),
		TotalInterest: total,
	}
}

// AddMonths adds calendar months to t, clamping to the last day of the
// target month (Jan 31 + 1 month = Feb 28 or 29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
