package portfolio

import (
	"context"
	"fmt"
	"sort"

	"github.com/rustyeddy/pretrade/account"
	"github.com/rustyeddy/pretrade/montecarlo"
)

// AccountFeed nets the booked positions of every account in the store and
// prices them from Marks. Instruments that net to zero are left out.
type AccountFeed struct {
	store account.Store
	marks *Marks
}

func NewAccountFeed(store account.Store, marks *Marks) *AccountFeed {
	return &AccountFeed{store: store, marks: marks}
}

func (f *AccountFeed) Snapshot(ctx context.Context) ([]montecarlo.Position, error) {
	ids, err := f.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("portfolio: list accounts: %w", err)
	}

	net := make(map[string]int64)
	for _, id := range ids {
		st, err := f.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("portfolio: read %q: %w", id, err)
		}
		for instrument, qty := range st.Positions {
			net[instrument] += qty
		}
	}

	symbols := make([]string, 0, len(net))
	for s, q := range net {
		if q != 0 {
			symbols = append(symbols, s)
		}
	}
	sort.Strings(symbols)

	out := make([]montecarlo.Position, 0, len(symbols))
	for _, s := range symbols {
		m, err := f.marks.Get(s)
		if err != nil {
			return nil, fmt.Errorf("portfolio: %w", err)
		}
		out = append(out, montecarlo.Position{
			Symbol:                s,
			Quantity:              net[s],
			CurrentPrice:          m.Price,
			DailyReturnVolatility: m.Volatility,
		})
	}
	return out, nil
}
