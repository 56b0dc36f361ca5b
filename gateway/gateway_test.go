package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/pretrade/account"
	"github.com/rustyeddy/pretrade/config"
	"github.com/rustyeddy/pretrade/journal"
	"github.com/rustyeddy/pretrade/limits"
	"github.com/rustyeddy/pretrade/montecarlo"
	"github.com/rustyeddy/pretrade/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Service.HTTPAddr = ""
	cfg.VaR.Seed = 42
	cfg.VaR.Trials = 2000
	cfg.VaR.Interval = "10ms"
	cfg.Controller.Interval = "10ms"
	return cfg
}

func newGateway(t *testing.T, cfg *config.Config) *Gateway {
	t.Helper()
	g, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewSeedsAccounts(t *testing.T) {
	t.Parallel()

	g := newGateway(t, testConfig())
	st, err := g.Store.Get(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, 100000.0, st.BaseMaxExposure)
	assert.Equal(t, uint64(100), st.CurrentMaxOrderSize)
	assert.Equal(t, 50000.0, st.CurrentExposure)
	assert.Equal(t, []string{"101"}, g.Accounts())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.VaR.Trials = 0
	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestSeedingKeepsExistingState(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Store.Backend = "sqlite"
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "accounts.db")

	g, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	d := g.Risk.CheckAndApply(context.Background(), risk.OrderRequest{
		OrderID: "o-1", AccountID: "101", InstrumentID: "BTC", Price: 60150, Size: 80, Side: risk.Buy,
	})
	require.True(t, d.Approved(), d.String())
	require.NoError(t, g.Close())

	g2 := newGateway(t, cfg)
	st, err := g2.Store.Get(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, 98120.0, st.CurrentExposure)
	assert.Equal(t, int64(80), st.Positions["BTC"])
}

func TestVaREndpoint(t *testing.T) {
	t.Parallel()

	g := newGateway(t, testConfig())
	h := g.Handler()

	rec := get(t, h, "/var")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"VaR not calculated yet."}`, rec.Body.String())

	_, err := g.VaR.Tick(context.Background())
	require.NoError(t, err)

	rec = get(t, h, "/var")
	require.Equal(t, http.StatusOK, rec.Code)
	var res montecarlo.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 750000.0, res.PortfolioValue)
	assert.Equal(t, 0.99, res.ConfidenceLevel)
	assert.Greater(t, res.VaRAmount, 0.0)

	rec = get(t, h, "/var/history?n=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist []montecarlo.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Len(t, hist, 1)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/var/history?n=x").Code)
}

func TestAccountEndpoint(t *testing.T) {
	t.Parallel()

	g := newGateway(t, testConfig())
	h := g.Handler()

	rec := get(t, h, "/accounts/101")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, k := range []string{"account_id", "base_max_exposure", "base_max_order_size",
		"current_max_exposure", "current_max_order_size", "current_exposure", "positions", "version"} {
		assert.Contains(t, body, k)
	}
	assert.Equal(t, "101", body["account_id"])

	assert.Equal(t, http.StatusNotFound, get(t, h, "/accounts/999").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/metrics").Code)
}

func TestClosedLoopTightensOrderPath(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	// 20% daily vol on BTC pushes VaR/value well above 5%.
	cfg.Portfolio.Positions[0].DailyReturnVolatility = 0.2
	g := newGateway(t, cfg)
	ctx := context.Background()

	res, err := g.VaR.Tick(ctx)
	require.NoError(t, err)
	ratio, err := limits.Ratio(res)
	require.NoError(t, err)
	require.Greater(t, ratio, 0.05)

	regime, err := g.Controller.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, limits.Tightened, regime)

	st, err := g.Store.Get(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 75000.0, st.CurrentMaxExposure)
	assert.Equal(t, uint64(75), st.CurrentMaxOrderSize)

	d := g.Risk.CheckAndApply(ctx, risk.OrderRequest{
		OrderID: "o-80", AccountID: "101", InstrumentID: "BTC", Price: 60150, Size: 80, Side: risk.Buy,
	})
	assert.Equal(t, risk.CodeOrderSize, d.Code)

	// 50000 + 601.50*50 = 80075 > 75000
	d = g.Risk.CheckAndApply(ctx, risk.OrderRequest{
		OrderID: "o-50", AccountID: "101", InstrumentID: "BTC", Price: 60150, Size: 50, Side: risk.Buy,
	})
	assert.Equal(t, risk.CodeExposure, d.Code)
}

func TestSQLiteJournalRecordsDecisions(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Journal = config.JournalConfig{Type: "sqlite", DBPath: filepath.Join(t.TempDir(), "journal.db")}
	g := newGateway(t, cfg)

	d := g.Risk.CheckAndApply(context.Background(), risk.OrderRequest{
		OrderID: "o-150", AccountID: "101", InstrumentID: "BTC", Price: 60150, Size: 150, Side: risk.Buy,
	})
	require.False(t, d.Approved())

	j, ok := g.Journal.(*journal.SQLite)
	require.True(t, ok)
	rec, err := j.GetDecision("o-150")
	require.NoError(t, err)
	assert.Equal(t, string(risk.CodeOrderSize), rec.Code)

	_, err = g.VaR.Tick(context.Background())
	require.NoError(t, err)
	vars, err := j.RecentVaR(1)
	require.NoError(t, err)
	assert.Len(t, vars, 1)
}

func TestOpenBackends(t *testing.T) {
	t.Parallel()

	_, err := OpenStore(context.Background(), config.StoreConfig{Backend: "etcd"})
	assert.Error(t, err)
	_, err = OpenJournal(config.JournalConfig{Type: "kafka"})
	assert.Error(t, err)

	s, err := OpenStore(context.Background(), config.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	_, ok := s.(*account.MemoryStore)
	assert.True(t, ok)

	j, err := OpenJournal(config.JournalConfig{
		Type:          "csv",
		DecisionsFile: filepath.Join(t.TempDir(), "decisions.csv"),
		VaRFile:       filepath.Join(t.TempDir(), "var.csv"),
	})
	require.NoError(t, err)
	assert.NoError(t, j.Close())
}

func TestRunStopsCleanly(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Service.HTTPAddr = "127.0.0.1:0"
	g := newGateway(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	demo := NewDemo(g.Risk, g.Accounts(), 5*time.Millisecond, zerolog.Nop())
	go func() { done <- g.Run(ctx, demo) }()

	assert.Eventually(t, func() bool {
		_, ok := g.Latest.Get()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		st, err := g.Store.Get(context.Background(), "101")
		return err == nil && st.Version > 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not stop")
	}
}

func TestDemoOrder(t *testing.T) {
	t.Parallel()

	d := NewDemo(nil, []string{"101"}, 0, zerolog.Nop())
	assert.Equal(t, DemoInterval, d.interval)
	for i := 0; i < 500; i++ {
		o := d.Order("101")
		require.NoError(t, o.Validate())
		assert.GreaterOrEqual(t, o.Size, uint64(1))
		assert.LessOrEqual(t, o.Size, uint64(DemoMaxSize))
		assert.Equal(t, int64(DemoPrice), o.Price)
	}
}
