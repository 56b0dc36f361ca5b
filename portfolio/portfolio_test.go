package portfolio

import (
	"context"
	"testing"

	"github.com/rustyeddy/pretrade/account"
	"github.com/rustyeddy/pretrade/montecarlo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := NewStatic([]montecarlo.Position{{Symbol: "BTC", Quantity: 10, CurrentPrice: 60000, DailyReturnVolatility: 0.02}})
	got, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	got[0].Quantity = 0

	again, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), again[0].Quantity)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMarks(t *testing.T) {
	t.Parallel()

	ms := NewMarks()
	require.NoError(t, ms.Set(Mark{Instrument: "ETH", Price: 3000, Volatility: 0.03}))
	require.NoError(t, ms.Set(Mark{Instrument: "BTC", Price: 60000, Volatility: 0.02}))

	m, err := ms.Get("BTC")
	require.NoError(t, err)
	assert.Equal(t, 60000.0, m.Price)
	assert.False(t, m.Time.IsZero())

	_, err = ms.Get("DOGE")
	assert.ErrorIs(t, err, ErrNoMark)

	assert.ErrorIs(t, ms.Set(Mark{Instrument: "X", Price: 0}), ErrInvalidMark)
	assert.ErrorIs(t, ms.Set(Mark{Instrument: "X", Price: 1, Volatility: -1}), ErrInvalidMark)
	assert.ErrorIs(t, ms.Set(Mark{Price: 1}), ErrInvalidMark)

	all := ms.All()
	require.Len(t, all, 2)
	assert.Equal(t, "BTC", all[0].Instrument)
}

func book(t *testing.T, s account.Store, id string, positions map[string]int64) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), account.New(id, 1e9, 1000)))
	_, err := s.Update(context.Background(), id, account.Mutation{
		Fields: account.FieldPositions,
		Apply: func(st *account.State) error {
			for k, v := range positions {
				st.Positions[k] = v
			}
			return nil
		},
	})
	require.NoError(t, err)
}

func TestAccountFeedNetsPositions(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore(0)
	book(t, store, "a", map[string]int64{"BTC": 6, "ETH": 50, "SOL": 5})
	book(t, store, "b", map[string]int64{"BTC": 4, "SOL": -5})

	marks := NewMarks()
	require.NoError(t, marks.Set(Mark{Instrument: "BTC", Price: 60000, Volatility: 0.02}))
	require.NoError(t, marks.Set(Mark{Instrument: "ETH", Price: 3000, Volatility: 0.03}))

	got, err := NewAccountFeed(store, marks).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []montecarlo.Position{
		{Symbol: "BTC", Quantity: 10, CurrentPrice: 60000, DailyReturnVolatility: 0.02},
		{Symbol: "ETH", Quantity: 50, CurrentPrice: 3000, DailyReturnVolatility: 0.03},
	}, got)
	assert.Equal(t, 750000.0, montecarlo.PortfolioValue(got))
}

func TestAccountFeedMissingMark(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore(0)
	book(t, store, "a", map[string]int64{"DOGE": 1})

	_, err := NewAccountFeed(store, NewMarks()).Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoMark)
}
