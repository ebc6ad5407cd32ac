package payoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/tally/internal/amortization"
	"github.com/cleared-dev/tally/internal/cache"
	"github.com/cleared-dev/tally/internal/model"
)

// DefaultConcurrency bounds ProjectAll when no option is given.
const DefaultConcurrency = 4

// Projector runs projections for many debts, optionally through a cache of
// engine outcomes. It is safe for concurrent use if its Store is.
type Projector struct {
	store       cache.Store
	logger      *slog.Logger
	concurrency int
}

// Option configures a Projector.
type Option func(*Projector)

// WithConcurrency sets how many debts ProjectAll simulates at once.
func WithConcurrency(n int) Option {
	return func(p *Projector) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProjector creates a Projector. store may be nil to disable caching;
// logger may be nil to discard logs.
func NewProjector(store cache.Store, logger *slog.Logger, opts ...Option) *Projector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Projector{store: store, logger: logger, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// outcome is the cached form of a BuildSchedule result.
type outcome struct {
	Schedule *amortization.Schedule `json:"schedule,omitempty"`
	Kind     amortization.Kind      `json:"kind,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
	Month    int                    `json:"month,omitempty"`
}

// CacheKey identifies the engine inputs that determine a schedule. The
// creditor and currency do not affect the simulation and are not part of it.
func CacheKey(d model.Debt) string {
	return fmt.Sprintf("schedule:v1:%s@%d:%s:%s:%s@%d",
		d.Balance.Decimal(), d.Balance.Scale(),
		d.AnnualRate, d.InterestType,
		d.MonthlyPayment.Decimal(), d.MonthlyPayment.Scale())
}

// Schedule returns d's amortization schedule, consulting the cache first.
// Cache failures are logged and fall back to the engine.
func (p *Projector) Schedule(ctx context.Context, d model.Debt) (amortization.Schedule, error) {
	if p.store == nil {
		return amortization.BuildSchedule(d)
	}

	key := CacheKey(d)
	raw, ok, err := p.store.Get(ctx, key)
	switch {
	case err != nil:
		p.logger.WarnContext(ctx, "schedule cache read failed", "key", key, "error", err)
	case ok:
		o, decodeErr := decodeOutcome(raw)
		if decodeErr == nil {
			p.logger.DebugContext(ctx, "schedule cache hit", "key", key)
			return o.result()
		}
		p.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key, "error", decodeErr)
	}

	s, engineErr := amortization.BuildSchedule(d)
	if engineErr != nil && !errors.Is(engineErr, amortization.ErrNonConvergent) {
		return s, engineErr
	}
	encoded, err := encodeOutcome(s, engineErr)
	if err != nil {
		p.logger.WarnContext(ctx, "encoding schedule for cache failed", "key", key, "error", err)
		return s, engineErr
	}
	if err := p.store.Set(ctx, key, encoded); err != nil {
		p.logger.WarnContext(ctx, "schedule cache write failed", "key", key, "error", err)
	}
	return s, engineErr
}

// Project returns the projection for d relative to start.
func (p *Projector) Project(ctx context.Context, d model.Debt, start time.Time) Projection {
	s, err := p.Schedule(ctx, d)
	proj := FromSchedule(s, err, start)
	p.logger.DebugContext(ctx, "projected debt",
		"creditor", d.Creditor,
		"status", proj.Status.String(),
		"months", proj.Months,
	)
	return proj
}

// ProjectAll projects every debt concurrently. Results are in input order.
// Per-debt failures are reported in each Projection; the returned error is
// non-nil only if ctx is cancelled.
func (p *Projector) ProjectAll(ctx context.Context, debts []model.Debt, start time.Time) ([]Projection, error) {
	out := make([]Projection, len(debts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, d := range debts {
		i, d := i, d // per-iteration copies (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = p.Project(gctx, d, start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("projecting debts: %w", err)
	}
	return out, nil
}

func encodeOutcome(s amortization.Schedule, err error) (string, error) {
	var o outcome
	var ee *amortization.EngineError
	switch {
	case err == nil:
		o.Schedule = &s
	case errors.As(err, &ee):
		o.Kind, o.Reason, o.Month = ee.Kind, ee.Reason, ee.Month
	default:
		return "", fmt.Errorf("cannot cache error: %w", err)
	}
	data, jerr := json.Marshal(o)
	if jerr != nil {
		return "", fmt.Errorf("marshaling outcome: %w", jerr)
	}
	return string(data), nil
}

func decodeOutcome(raw string) (outcome, error) {
	var o outcome
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return outcome{}, fmt.Errorf("unmarshaling outcome: %w", err)
	}
	if o.Schedule == nil && o.Kind == 0 {
		return outcome{}, fmt.Errorf("outcome has neither schedule nor error")
	}
	return o, nil
}

func (o outcome) result() (amortization.Schedule, error) {
	if o.Schedule != nil {
		return *o.Schedule, nil
	}
	return amortization.Schedule{}, &amortization.EngineError{Kind: o.Kind, Reason: o.Reason, Month: o.Month}
}
