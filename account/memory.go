package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps accounts in process. It is the default backend and the
// one used by tests that exercise the concurrency properties.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[string]State
	maxRetries int
}

func NewMemoryStore(maxRetries int) *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[string]State),
		maxRetries: maxRetries,
	}
}

func (s *MemoryStore) name() string { return "memory" }

func (s *MemoryStore) Get(ctx context.Context, id string) (State, error) {
	return s.load(ctx, id)
}

func (s *MemoryStore) load(ctx context.Context, id string) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, unavailable("get "+id, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.accounts[id]
	if !ok {
		return State{}, fmt.Errorf("account: get %q: %w", id, ErrNotFound)
	}
	return st.Clone(), nil
}

func (s *MemoryStore) swap(ctx context.Context, expected uint64, next State) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("swap "+next.AccountID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[next.AccountID]
	if !ok {
		return false, fmt.Errorf("account: swap %q: %w", next.AccountID, ErrNotFound)
	}
	if cur.Version != expected {
		return false, nil
	}
	s.accounts[next.AccountID] = next.Clone()
	return true, nil
}

func (s *MemoryStore) Create(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return unavailable("create "+st.AccountID, err)
	}
	st, err := prepareCreate(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[st.AccountID]; ok {
		return fmt.Errorf("account: create %q: %w", st.AccountID, ErrExists)
	}
	s.accounts[st.AccountID] = st
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, m Mutation) (State, error) {
	return update(ctx, s, id, m, s.maxRetries)
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error { return nil }
