// Package montecarlo estimates one-day portfolio Value-at-Risk by parametric
// Monte Carlo simulation and keeps the latest estimate for readers.
package montecarlo

import (
	"fmt"
	"math"
)

// Position is one line of a portfolio snapshot. Quantity is signed, long
// positive. DailyReturnVolatility is the standard deviation of daily returns.
type Position struct {
	Symbol                string  `json:"symbol" yaml:"symbol"`
	Quantity              int64   `json:"quantity" yaml:"quantity"`
	CurrentPrice          float64 `json:"current_price" yaml:"current_price"`
	DailyReturnVolatility float64 `json:"daily_return_volatility" yaml:"daily_return_volatility"`
}

// Value is the signed notional of the position.
func (p Position) Value() float64 {
	return float64(p.Quantity) * p.CurrentPrice
}

func (p Position) Validate() error {
	switch {
	case p.Symbol == "":
		return fmt.Errorf("%w: position without symbol", ErrInvalidInput)
	case math.IsNaN(p.CurrentPrice) || math.IsInf(p.CurrentPrice, 0):
		return fmt.Errorf("%w: %s price %v", ErrInvalidInput, p.Symbol, p.CurrentPrice)
	case math.IsNaN(p.DailyReturnVolatility) || math.IsInf(p.DailyReturnVolatility, 0) || p.DailyReturnVolatility < 0:
		return fmt.Errorf("%w: %s volatility %v", ErrInvalidInput, p.Symbol, p.DailyReturnVolatility)
	}
	return nil
}

// PortfolioValue sums the signed notional of every position.
func PortfolioValue(positions []Position) float64 {
	var total float64
	for _, p := range positions {
		total += p.Value()
	}
	return total
}
