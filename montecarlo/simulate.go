package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	DefaultTrials     = 10000
	DefaultConfidence = 0.99
)

var ErrInvalidInput = errors.New("invalid simulation input")

type Params struct {
	Trials     int
	Confidence float64
}

func (p Params) Validate() error {
	if p.Trials <= 0 {
		return fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidInput, p.Trials)
	}
	if !(p.Confidence > 0 && p.Confidence < 1) {
		return fmt.Errorf("%w: confidence must be in (0,1), got %v", ErrInvalidInput, p.Confidence)
	}
	return nil
}

// Result is one VaR estimate. VaRAmount is a loss when positive and may be
// negative when even the tail outcome is a gain.
type Result struct {
	ConfidenceLevel float64   `json:"confidence_level"`
	VaRAmount       float64   `json:"var_amount"`
	PortfolioValue  float64   `json:"portfolio_value"`
	Timestamp       time.Time `json:"timestamp_utc"`
	Trials          int       `json:"trials"`
	Positions       int       `json:"positions"`
}

// PercentileIndex is floor(n*c) clamped to the last element.
func PercentileIndex(n int, c float64) int {
	idx := int(math.Floor(float64(n) * c))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// cancelCheckEvery is how many trials run between context checks.
const cancelCheckEvery = 256

// Simulate draws p.Trials one-day outcomes for the snapshot and returns the
// loss at the confidence percentile. A canceled context discards the run.
func Simulate(ctx context.Context, positions []Position, p Params, s Sampler) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if len(positions) == 0 {
		return Result{}, fmt.Errorf("%w: empty portfolio", ErrInvalidInput)
	}
	for _, pos := range positions {
		if err := pos.Validate(); err != nil {
			return Result{}, err
		}
	}

	initial := PortfolioValue(positions)
	losses := make([]float64, p.Trials)

	for trial := 0; trial < p.Trials; trial++ {
		if trial%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}

		var simulated float64
		for _, pos := range positions {
			price := pos.CurrentPrice * (1 + s.Normal(pos.DailyReturnVolatility))
			simulated += float64(pos.Quantity) * price
		}
		losses[trial] = initial - simulated
	}

	sort.Float64s(losses)
	amount := losses[PercentileIndex(p.Trials, p.Confidence)]
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Result{}, fmt.Errorf("%w: non-finite loss %v", ErrInvalidInput, amount)
	}

	return Result{
		ConfidenceLevel: p.Confidence,
		VaRAmount:       amount,
		PortfolioValue:  initial,
		Timestamp:       time.Now().UTC(),
		Trials:          p.Trials,
		Positions:       len(positions),
	}, nil
}
