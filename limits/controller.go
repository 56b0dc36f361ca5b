package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/pretrade/account"
	"github.com/rustyeddy/pretrade/metrics"
	"github.com/rustyeddy/pretrade/montecarlo"
)

const (
	DefaultInterval = 15 * time.Second
	DefaultTimeout  = 2 * time.Second
)

// ErrNoResult is returned by Tick before the first VaR cycle completes.
var ErrNoResult = errors.New("no var result yet")

type Config struct {
	Interval time.Duration
	// Timeout bounds the store work for each account.
	Timeout time.Duration
	Policy  Policy
}

// Controller periodically writes the current_max_* fields of every account.
// It is the only writer of those fields.
type Controller struct {
	store  account.Store
	latest *montecarlo.Latest
	cfg    Config
	log    zerolog.Logger
}

func NewController(store account.Store, latest *montecarlo.Latest, cfg Config, log zerolog.Logger) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	return &Controller{
		store:  store,
		latest: latest,
		cfg:    cfg,
		log:    log.With().Str("component", "controller").Logger(),
	}
}

// Tick evaluates the latest VaR once and applies the resulting regime to
// every account. Failures on one account do not stop the others; they are
// joined into the returned error.
func (c *Controller) Tick(ctx context.Context) (Regime, error) {
	res, ok := c.latest.Get()
	if !ok {
		metrics.TicksSkippedTotal.WithLabelValues("controller", "no_result").Inc()
		return Baseline, ErrNoResult
	}
	ratio, err := Ratio(res)
	if err != nil {
		metrics.TicksSkippedTotal.WithLabelValues("controller", "undefined_ratio").Inc()
		return Baseline, err
	}
	metrics.VaRRatio.Set(ratio)

	regime := c.cfg.Policy.Regime(ratio)

	listCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	ids, err := c.store.List(listCtx)
	cancel()
	if err != nil {
		metrics.TicksSkippedTotal.WithLabelValues("controller", "store").Inc()
		return regime, fmt.Errorf("limits: list accounts: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := c.apply(ctx, id, regime, ratio); err != nil {
			c.log.Error().Err(err).Str("account_id", id).Str("regime", regime.String()).Msg("apply limits")
			errs = append(errs, err)
		}
	}
	return regime, errors.Join(errs...)
}

func (c *Controller) apply(ctx context.Context, id string, regime Regime, ratio float64) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var before Limits
	next, err := c.store.Update(ctx, id, account.Mutation{
		Fields: account.LimitFields,
		Apply: func(st *account.State) error {
			before = Limits{MaxExposure: st.CurrentMaxExposure, MaxOrderSize: st.CurrentMaxOrderSize}
			l := c.cfg.Policy.For(regime, *st)
			st.CurrentMaxExposure = l.MaxExposure
			st.CurrentMaxOrderSize = l.MaxOrderSize
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("limits: update %q: %w", id, err)
	}
	metrics.LimitRegime.WithLabelValues(id).Set(float64(regime))

	after := Limits{MaxExposure: next.CurrentMaxExposure, MaxOrderSize: next.CurrentMaxOrderSize}
	if before != after {
		c.log.Info().
			Str("account_id", id).
			Str("regime", regime.String()).
			Float64("var_ratio", ratio).
			Float64("max_exposure", after.MaxExposure).
			Uint64("max_order_size", after.MaxOrderSize).
			Uint64("version", next.Version).
			Msg("limits changed")
	}
	return nil
}

// Run ticks immediately and then every interval until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		switch _, err := c.Tick(ctx); {
		case err == nil, ctx.Err() != nil:
		case errors.Is(err, ErrNoResult):
			c.log.Debug().Msg("waiting for first var result")
		default:
			c.log.Warn().Err(err).Msg("controller cycle incomplete")
		}

		select {
		case <-ctx.Done():
			c.log.Info().Msg("controller stopped")
			return
		case <-ticker.C:
		}
	}
}
