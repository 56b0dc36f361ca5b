// Package limits maps the latest VaR estimate onto per-account limits.
package limits

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/pretrade/account"
	"github.com/rustyeddy/pretrade/montecarlo"
)

const (
	DefaultThreshold     = 0.05
	DefaultTightenFactor = 0.75
)

var (
	// ErrUndefinedRatio means the VaR ratio cannot be computed for a result.
	ErrUndefinedRatio = errors.New("var ratio undefined")
	ErrInvalidPolicy  = errors.New("invalid limit policy")
)

type Regime int

const (
	Baseline Regime = iota
	Tightened
)

func (r Regime) String() string {
	switch r {
	case Baseline:
		return "baseline"
	case Tightened:
		return "tightened"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

// Policy tightens every account while VaR/portfolio value exceeds Threshold.
type Policy struct {
	Threshold     float64
	TightenFactor float64
}

func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, TightenFactor: DefaultTightenFactor}
}

func (p Policy) Validate() error {
	if math.IsNaN(p.Threshold) || math.IsInf(p.Threshold, 0) || p.Threshold < 0 {
		return fmt.Errorf("%w: threshold %v", ErrInvalidPolicy, p.Threshold)
	}
	if !(p.TightenFactor > 0 && p.TightenFactor <= 1) {
		return fmt.Errorf("%w: tighten factor %v not in (0,1]", ErrInvalidPolicy, p.TightenFactor)
	}
	return nil
}

// Ratio is var_amount / portfolio_value.
func Ratio(res montecarlo.Result) (float64, error) {
	if res.PortfolioValue == 0 {
		return 0, fmt.Errorf("%w: portfolio value is zero", ErrUndefinedRatio)
	}
	ratio := res.VaRAmount / res.PortfolioValue
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, fmt.Errorf("%w: var %v over value %v", ErrUndefinedRatio, res.VaRAmount, res.PortfolioValue)
	}
	return ratio, nil
}

// Regime is strict: a ratio equal to the threshold stays at baseline.
func (p Policy) Regime(ratio float64) Regime {
	if ratio > p.Threshold {
		return Tightened
	}
	return Baseline
}

// Limits are the current_max_* values a regime assigns to an account.
type Limits struct {
	MaxExposure  float64
	MaxOrderSize uint64
}

// For derives the limits from the account's immutable base values, so
// applying the same regime twice never drifts.
func (p Policy) For(r Regime, st account.State) Limits {
	if r != Tightened {
		return Limits{MaxExposure: st.BaseMaxExposure, MaxOrderSize: st.BaseMaxOrderSize}
	}
	size := uint64(math.Floor(float64(st.BaseMaxOrderSize) * p.TightenFactor))
	if size < 1 {
		size = 1
	}
	return Limits{
		MaxExposure:  st.BaseMaxExposure * p.TightenFactor,
		MaxOrderSize: size,
	}
}
