package payoff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/amortization"
	"github.com/cleared-dev/tally/internal/cache"
	"github.com/cleared-dev/tally/internal/model"
)

// failingStore implements cache.Store and fails every call.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("connection refused")
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestCacheKey(t *testing.T) {
	a := debt("A", "1000.00", "12", "100.00")
	b := debt("B", "1000.00", "12", "100.00")
	b.Currency = "EUR"
	assert.Equal(t, CacheKey(a), CacheKey(b), "creditor and currency do not change the schedule")

	c := a
	c.InterestType = model.InterestSimple
	assert.NotEqual(t, CacheKey(a), CacheKey(c))

	d := debt("A", "1000.00", "12", "100.01")
	assert.NotEqual(t, CacheKey(a), CacheKey(d))
}

func TestProjector_NoCache(t *testing.T) {
	p := NewProjector(nil, nil)
	got := p.Project(context.Background(), debt("Card", "1200.00", "0", "100.00"), date(2026, 1, 1))
	assert.Equal(t, StatusConverged, got.Status)
	assert.Equal(t, 12, got.Months)
}

func TestProjector_CachesConverged(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	p := NewProjector(store, nil)
	d := debt("Card", "1000.00", "12", "100.00")

	first, err := p.Schedule(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	second, err := p.Schedule(ctx, d)
	require.NoError(t, err)
	require.Equal(t, first.Months(), second.Months())
	assert.Equal(t, first.TotalInterest.String(), second.TotalInterest.String())
	assert.Equal(t, int32(2), second.Scale())
	assert.Empty(t, amortization.Verify(second))
}

func TestProjector_CachesNonConvergent(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	p := NewProjector(store, nil)
	d := debt("Payday", "1000.00", "24", "10.00")

	_, err := p.Schedule(ctx, d)
	require.ErrorIs(t, err, amortization.ErrNonConvergent)
	assert.Equal(t, 1, store.Len())

	_, err = p.Schedule(ctx, d)
	require.ErrorIs(t, err, amortization.ErrNonConvergent)
	var ee *amortization.EngineError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, amortization.ReasonInsufficientPayment, ee.Reason)
	assert.Equal(t, 1, ee.Month)
}

func TestProjector_DoesNotCacheInvalidInput(t *testing.T) {
	store := cache.NewMemory()
	p := NewProjector(store, nil)

	_, err := p.Schedule(context.Background(), debt("Bad", "-1.00", "5", "10.00"))
	require.ErrorIs(t, err, amortization.ErrInvalidInput)
	assert.Equal(t, 0, store.Len())
}

func TestProjector_CorruptEntryFallsBack(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	d := debt("Card", "1200.00", "0", "100.00")
	require.NoError(t, store.Set(ctx, CacheKey(d), "{not json"))

	var buf bytes.Buffer
	p := NewProjector(store, testLogger(&buf))
	s, err := p.Schedule(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 12, s.Months())
	assert.Contains(t, buf.String(), "discarding undecodable cache entry")

	raw, ok, err := store.Get(ctx, CacheKey(d))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"schedule"`)
}

func TestProjector_StoreFailureIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProjector(failingStore{}, testLogger(&buf))

	got := p.Project(context.Background(), debt("Card", "1000.00", "12", "100.00"), date(2026, 1, 1))
	assert.Equal(t, StatusConverged, got.Status)
	assert.Equal(t, 11, got.Months)
	assert.Contains(t, buf.String(), "schedule cache read failed")
	assert.Contains(t, buf.String(), "schedule cache write failed")
}

func TestProjector_ProjectAllKeepsOrder(t *testing.T) {
	var debts []model.Debt
	for i := 1; i <= 25; i++ {
		balance := fmt.Sprintf("%d.00", i*100)
		debts = append(debts, debt(fmt.Sprintf("D%02d", i), balance, "0", "100.00"))
	}
	debts = append(debts, debt("Payday", "1000.00", "24", "10.00"))

	p := NewProjector(cache.NewMemory(), nil, WithConcurrency(3))
	got, err := p.ProjectAll(context.Background(), debts, date(2026, 1, 1))
	require.NoError(t, err)
	require.Len(t, got, len(debts))

	for i := 0; i < 25; i++ {
		assert.Equal(t, StatusConverged, got[i].Status, debts[i].Creditor)
		assert.Equal(t, i+1, got[i].Months, debts[i].Creditor)
	}
	assert.Equal(t, StatusNonConvergent, got[25].Status)
}

func TestProjector_ProjectAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProjector(nil, nil)
	_, err := p.ProjectAll(ctx, []model.Debt{debt("Card", "100.00", "0", "10.00")}, date(2026, 1, 1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithConcurrency_IgnoresNonPositive(t *testing.T) {
	p := NewProjector(nil, nil, WithConcurrency(0))
	assert.Equal(t, DefaultConcurrency, p.concurrency)
	p = NewProjector(nil, nil, WithConcurrency(8))
	assert.Equal(t, 8, p.concurrency)
}
