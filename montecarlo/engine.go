package montecarlo

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/pretrade/journal"
	"github.com/rustyeddy/pretrade/metrics"
)

const (
	DefaultInterval    = 15 * time.Second
	DefaultFeedTimeout = 2 * time.Second
)

// Feed supplies the portfolio snapshot for one cycle.
type Feed interface {
	Snapshot(ctx context.Context) ([]Position, error)
}

type Config struct {
	Interval    time.Duration
	FeedTimeout time.Duration
	Params      Params
}

// Engine recomputes VaR on a fixed interval, independent of order traffic.
type Engine struct {
	feed    Feed
	latest  *Latest
	sampler Sampler
	cfg     Config
	log     zerolog.Logger
	journal journal.Journal
}

func NewEngine(feed Feed, latest *Latest, sampler Sampler, cfg Config, log zerolog.Logger) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FeedTimeout <= 0 {
		cfg.FeedTimeout = DefaultFeedTimeout
	}
	if cfg.Params.Trials == 0 {
		cfg.Params.Trials = DefaultTrials
	}
	if cfg.Params.Confidence == 0 {
		cfg.Params.Confidence = DefaultConfidence
	}
	if sampler == nil {
		sampler = NewRandomSampler()
	}
	return &Engine{
		feed:    feed,
		latest:  latest,
		sampler: sampler,
		cfg:     cfg,
		log:     log.With().Str("component", "var").Logger(),
		journal: journal.Nop{},
	}
}

func (e *Engine) SetJournal(j journal.Journal) {
	if j == nil {
		j = journal.Nop{}
	}
	e.journal = j
}

// Tick runs one cycle and publishes its result. On error nothing is published.
func (e *Engine) Tick(ctx context.Context) (Result, error) {
	feedCtx, cancel := context.WithTimeout(ctx, e.cfg.FeedTimeout)
	positions, err := e.feed.Snapshot(feedCtx)
	cancel()
	if err != nil {
		metrics.TicksSkippedTotal.WithLabelValues("var", "feed").Inc()
		return Result{}, err
	}

	start := time.Now()
	res, err := Simulate(ctx, positions, e.cfg.Params, e.sampler)
	if err != nil {
		reason := "numerical"
		if !errors.Is(err, ErrInvalidInput) {
			reason = "canceled"
		}
		metrics.TicksSkippedTotal.WithLabelValues("var", reason).Inc()
		return Result{}, err
	}
	metrics.SimulationSeconds.Observe(time.Since(start).Seconds())

	e.latest.Publish(res)
	metrics.VaRAmount.Set(res.VaRAmount)
	metrics.PortfolioValue.Set(res.PortfolioValue)

	if err := e.journal.RecordVaR(journal.VaRRecord{
		Time:           res.Timestamp,
		Confidence:     res.ConfidenceLevel,
		VaRAmount:      res.VaRAmount,
		PortfolioValue: res.PortfolioValue,
		Trials:         res.Trials,
		Positions:      res.Positions,
	}); err != nil {
		e.log.Error().Err(err).Msg("journal var result")
	}

	e.log.Info().
		Float64("confidence", res.ConfidenceLevel).
		Float64("var_amount", res.VaRAmount).
		Float64("portfolio_value", res.PortfolioValue).
		Int("positions", res.Positions).
		Dur("took", time.Since(start)).
		Msg("var updated")
	return res, nil
}

// Run ticks immediately and then every interval until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := e.Tick(ctx); err != nil && ctx.Err() == nil {
			e.log.Warn().Err(err).Msg("var cycle skipped")
		}

		select {
		case <-ctx.Done():
			e.log.Info().Msg("var engine stopped")
			return
		case <-ticker.C:
		}
	}
}
