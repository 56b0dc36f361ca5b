package limits

import (
	"math"
	"testing"

	"github.com/rustyeddy/pretrade/account"
	"github.com/rustyeddy/pretrade/montecarlo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	t.Parallel()

	r, err := Ratio(montecarlo.Result{VaRAmount: 37500, PortfolioValue: 750000})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, r, 1e-12)

	_, err = Ratio(montecarlo.Result{VaRAmount: 10, PortfolioValue: 0})
	assert.ErrorIs(t, err, ErrUndefinedRatio)

	_, err = Ratio(montecarlo.Result{VaRAmount: math.NaN(), PortfolioValue: 10})
	assert.ErrorIs(t, err, ErrUndefinedRatio)

	_, err = Ratio(montecarlo.Result{VaRAmount: math.Inf(1), PortfolioValue: 10})
	assert.ErrorIs(t, err, ErrUndefinedRatio)
}

func TestPolicyRegime(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	tests := []struct {
		ratio float64
		want  Regime
	}{
		{0, Baseline},
		{-0.2, Baseline},
		{0.05, Baseline},
		{0.0500001, Tightened},
		{0.3, Tightened},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Regime(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestPolicyFor(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	st := account.New("101", 100000, 100)

	assert.Equal(t, Limits{MaxExposure: 75000, MaxOrderSize: 75}, p.For(Tightened, st))
	assert.Equal(t, Limits{MaxExposure: 100000, MaxOrderSize: 100}, p.For(Baseline, st))

	// The tightened values derive from the base, never from current limits.
	st.CurrentMaxExposure = 75000
	st.CurrentMaxOrderSize = 75
	assert.Equal(t, Limits{MaxExposure: 75000, MaxOrderSize: 75}, p.For(Tightened, st))

	assert.Equal(t, uint64(2), p.For(Tightened, account.New("a", 10, 3)).MaxOrderSize)
	assert.Equal(t, uint64(1), p.For(Tightened, account.New("a", 10, 1)).MaxOrderSize)
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultPolicy().Validate())
	assert.NoError(t, Policy{Threshold: 0, TightenFactor: 1}.Validate())
	assert.ErrorIs(t, Policy{Threshold: -1, TightenFactor: 0.5}.Validate(), ErrInvalidPolicy)
	assert.ErrorIs(t, Policy{Threshold: math.NaN(), TightenFactor: 0.5}.Validate(), ErrInvalidPolicy)
	assert.ErrorIs(t, Policy{Threshold: 0.05, TightenFactor: 0}.Validate(), ErrInvalidPolicy)
	assert.ErrorIs(t, Policy{Threshold: 0.05, TightenFactor: 1.5}.Validate(), ErrInvalidPolicy)
}

func TestRegimeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "baseline", Baseline.String())
	assert.Equal(t, "tightened", Tightened.String())
	assert.Equal(t, "regime(7)", Regime(7).String())
}
