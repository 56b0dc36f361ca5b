// Package metrics holds the Prometheus collectors shared by the risk components.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pretrade_decisions_total", Help: "Risk decisions by status and reason code"},
		[]string{"status", "code"},
	)
	CASConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pretrade_cas_conflicts_total", Help: "Account writes retried after a version conflict"},
		[]string{"backend"},
	)
	VaRAmount = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "pretrade_var_amount", Help: "Latest Monte Carlo VaR (positive is a loss)"},
	)
	VaRRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "pretrade_var_ratio", Help: "Latest VaR divided by portfolio value"},
	)
	PortfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "pretrade_portfolio_value", Help: "Net notional of the simulated portfolio"},
	)
	SimulationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pretrade_simulation_seconds",
			Help:    "Wall time of one Monte Carlo cycle",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
	LimitRegime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "pretrade_limit_regime", Help: "Active limit regime per account (0 baseline, 1 tightened)"},
		[]string{"account"},
	)
	TicksSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pretrade_ticks_skipped_total", Help: "Periodic ticks that committed nothing"},
		[]string{"task", "reason"},
	)
)

func init() {
	prometheus.MustRegister(
		DecisionsTotal,
		CASConflictsTotal,
		VaRAmount,
		VaRRatio,
		PortfolioValue,
		SimulationSeconds,
		LimitRegime,
		TicksSkippedTotal,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
