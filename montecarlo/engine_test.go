package montecarlo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/pretrade/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct {
	mu        sync.Mutex
	positions []Position
	err       error
	calls     int
}

func (f *stubFeed) Snapshot(ctx context.Context) ([]Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.positions, f.err
}

func (f *stubFeed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type varJournal struct {
	journal.Nop
	records []journal.VaRRecord
}

func (j *varJournal) RecordVaR(r journal.VaRRecord) error {
	j.records = append(j.records, r)
	return nil
}

func newTestEngine(feed Feed, latest *Latest) *Engine {
	return NewEngine(feed, latest, NewSampler(11), Config{
		Interval: 10 * time.Millisecond,
		Params:   Params{Trials: 1000, Confidence: 0.99},
	}, zerolog.Nop())
}

func TestEngineTickPublishes(t *testing.T) {
	t.Parallel()

	latest := NewLatest(0)
	e := newTestEngine(&stubFeed{positions: referencePortfolio()}, latest)
	j := &varJournal{}
	e.SetJournal(j)

	res, err := e.Tick(context.Background())
	require.NoError(t, err)

	got, ok := latest.Get()
	require.True(t, ok)
	assert.Equal(t, res, got)
	assert.Equal(t, 750000.0, got.PortfolioValue)
	require.Len(t, j.records, 1)
	assert.Equal(t, res.VaRAmount, j.records[0].VaRAmount)
}

func TestEngineTickSkipsOnFailure(t *testing.T) {
	t.Parallel()

	latest := NewLatest(0)
	prior := Result{VaRAmount: 1, PortfolioValue: 10}
	latest.Publish(prior)

	feedErr := errors.New("positions service down")
	_, err := newTestEngine(&stubFeed{err: feedErr}, latest).Tick(context.Background())
	assert.ErrorIs(t, err, feedErr)

	bad := []Position{{Symbol: "X", Quantity: 1, CurrentPrice: 1, DailyReturnVolatility: -1}}
	_, err = newTestEngine(&stubFeed{positions: bad}, latest).Tick(context.Background())
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, _ := latest.Get()
	assert.Equal(t, prior, got)
}

func TestEngineRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	feed := &stubFeed{positions: referencePortfolio()}
	latest := NewLatest(0)
	e := newTestEngine(feed, latest)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return feed.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
	_, ok := latest.Get()
	assert.True(t, ok)
}

func TestEngineDefaults(t *testing.T) {
	t.Parallel()

	e := NewEngine(&stubFeed{}, NewLatest(0), nil, Config{}, zerolog.Nop())
	assert.Equal(t, DefaultInterval, e.cfg.Interval)
	assert.Equal(t, DefaultTrials, e.cfg.Params.Trials)
	assert.Equal(t, DefaultConfidence, e.cfg.Params.Confidence)
	assert.NotNil(t, e.sampler)
}
