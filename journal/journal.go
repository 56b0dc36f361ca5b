// Package journal records risk decisions and VaR results for audit and inspection.
package journal

import "time"

// DecisionRecord is one row per risk decision.
type DecisionRecord struct {
	OrderID    string
	AccountID  string
	Instrument string
	Side       string
	Price      int64
	Size       uint64
	Notional   float64
	Status     string
	Code       string
	Reason     string
	Exposure   float64 // post-commit exposure on approval, read exposure otherwise
	Version    uint64
	Time       time.Time
}

// VaRRecord is one row per completed Monte Carlo cycle.
type VaRRecord struct {
	Time           time.Time
	Confidence     float64
	VaRAmount      float64
	PortfolioValue float64
	Trials         int
	Positions      int
}

type Journal interface {
	RecordDecision(DecisionRecord) error
	RecordVaR(VaRRecord) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordDecision(DecisionRecord) error { return nil }
func (Nop) RecordVaR(VaRRecord) error           { return nil }
func (Nop) Close() error                        { return nil }
