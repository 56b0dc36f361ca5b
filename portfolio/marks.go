package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

var (
	ErrNoMark      = errors.New("mark not found")
	ErrInvalidMark = errors.New("invalid mark")
)

// Mark is the latest price and daily return volatility of an instrument.
type Mark struct {
	Instrument string    `json:"instrument" yaml:"instrument"`
	Price      float64   `json:"price" yaml:"price"`
	Volatility float64   `json:"volatility" yaml:"volatility"`
	Time       time.Time `json:"time" yaml:"-"`
}

func (m Mark) Validate() error {
	switch {
	case m.Instrument == "":
		return fmt.Errorf("%w: instrument is required", ErrInvalidMark)
	case math.IsNaN(m.Price) || math.IsInf(m.Price, 0) || m.Price <= 0:
		return fmt.Errorf("%w: %s price %v", ErrInvalidMark, m.Instrument, m.Price)
	case math.IsNaN(m.Volatility) || math.IsInf(m.Volatility, 0) || m.Volatility < 0:
		return fmt.Errorf("%w: %s volatility %v", ErrInvalidMark, m.Instrument, m.Volatility)
	}
	return nil
}

// Marks is the in-process mark store, written by whatever ingests prices.
type Marks struct {
	mu    sync.RWMutex
	marks map[string]Mark
}

func NewMarks() *Marks {
	return &Marks{marks: make(map[string]Mark)}
}

func (ms *Marks) Set(m Mark) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.Time.IsZero() {
		m.Time = time.Now().UTC()
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.marks[m.Instrument] = m
	return nil
}

func (ms *Marks) Get(instrument string) (Mark, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	m, ok := ms.marks[instrument]
	if !ok {
		return Mark{}, fmt.Errorf("%w: %s", ErrNoMark, instrument)
	}
	return m, nil
}

// All returns every mark sorted by instrument.
func (ms *Marks) All() []Mark {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]Mark, 0, len(ms.marks))
	for _, m := range ms.marks {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}
