package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/pretrade/metrics"
)

var (
	ErrNotFound        = errors.New("account not found")
	ErrExists          = errors.New("account already exists")
	ErrContention      = errors.New("account update contention")
	ErrUnavailable     = errors.New("account store unavailable")
	ErrUndeclaredField = errors.New("mutation changed undeclared field")
)

// DefaultMaxRetries bounds the compare-and-swap loop in Update.
const DefaultMaxRetries = 5

// Mutation is a pure function over a private copy of the state. Fields
// declares everything Apply is allowed to change; an error from Apply aborts
// the update without writing and is returned to the caller as is.
type Mutation struct {
	Fields Field
	Apply  func(*State) error
}

// Store is the single source of truth for account state.
type Store interface {
	Get(ctx context.Context, id string) (State, error)
	Create(ctx context.Context, st State) error
	Update(ctx context.Context, id string, m Mutation) (State, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

// backend is the versioned primitive a store provides to the shared update loop.
type backend interface {
	name() string
	load(ctx context.Context, id string) (State, error)
	// swap writes next only if the stored version still equals expected.
	swap(ctx context.Context, expected uint64, next State) (bool, error)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("account: %s: %w: %w", op, ErrUnavailable, err)
}

// update runs the optimistic read-apply-swap loop. Every attempt starts from
// a fresh read so the mutation always validates against the latest state.
func update(ctx context.Context, b backend, id string, m Mutation, maxRetries int) (State, error) {
	if m.Apply == nil {
		return State{}, fmt.Errorf("account: update %q: nil mutation", id)
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return State{}, unavailable("update "+id, err)
		}

		cur, err := b.load(ctx, id)
		if err != nil {
			return State{}, err
		}

		next := cur.Clone()
		if err := m.Apply(&next); err != nil {
			return State{}, err
		}

		diff := changed(cur, next)
		if diff == 0 {
			return cur, nil
		}
		if extra := diff &^ m.Fields; extra != 0 {
			return State{}, fmt.Errorf("account: update %q: %w: %s", id, ErrUndeclaredField, extra)
		}
		if err := next.Validate(); err != nil {
			return State{}, fmt.Errorf("account: update %q: %w", id, err)
		}

		next.Version = cur.Version + 1
		ok, err := b.swap(ctx, cur.Version, next)
		if err != nil {
			return State{}, err
		}
		if ok {
			return next, nil
		}
		metrics.CASConflictsTotal.WithLabelValues(b.name()).Inc()
	}

	return State{}, fmt.Errorf("account: update %q after %d attempts: %w", id, maxRetries, ErrContention)
}

func prepareCreate(st State) (State, error) {
	st = st.Clone()
	if err := st.Validate(); err != nil {
		return State{}, err
	}
	st.Version = 1
	return st, nil
}
