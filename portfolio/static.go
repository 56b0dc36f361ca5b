// Package portfolio supplies the position snapshots the VaR engine simulates.
package portfolio

import (
	"context"
	"sync"

	"github.com/rustyeddy/pretrade/montecarlo"
)

var (
	_ montecarlo.Feed = (*Static)(nil)
	_ montecarlo.Feed = (*AccountFeed)(nil)
)

// Static serves a fixed list of positions that callers may replace.
type Static struct {
	mu        sync.RWMutex
	positions []montecarlo.Position
}

func NewStatic(positions []montecarlo.Position) *Static {
	s := &Static{}
	s.Set(positions)
	return s
}

func (s *Static) Set(positions []montecarlo.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append([]montecarlo.Position(nil), positions...)
}

func (s *Static) Snapshot(ctx context.Context) ([]montecarlo.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]montecarlo.Position(nil), s.positions...), nil
}
