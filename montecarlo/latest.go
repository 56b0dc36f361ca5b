package montecarlo

import "sync"

// DefaultHistory is how many past results Latest keeps for inspection.
const DefaultHistory = 32

// Latest holds the most recent result. Readers never see a partial result:
// a cycle either publishes a complete Result or nothing.
type Latest struct {
	mu      sync.RWMutex
	history []Result // oldest first
	limit   int
}

func NewLatest(history int) *Latest {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Latest{limit: history}
}

func (l *Latest) Publish(r Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, r)
	if len(l.history) > l.limit {
		l.history = append(l.history[:0], l.history[len(l.history)-l.limit:]...)
	}
}

// Get returns false until the first cycle completes.
func (l *Latest) Get() (Result, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.history) == 0 {
		return Result{}, false
	}
	return l.history[len(l.history)-1], true
}

// History returns up to n results, newest first.
func (l *Latest) History(n int) []Result {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.history) || n <= 0 {
		n = len(l.history)
	}
	out := make([]Result, 0, n)
	for i := len(l.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.history[i])
	}
	return out
}
