package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, int32(2), cfg.Risk.PriceScale)
	assert.Equal(t, 10000, cfg.VaR.Trials)
	assert.Equal(t, 0.05, cfg.Controller.Threshold)
	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, "101", cfg.Accounts[0].ID)
	assert.Equal(t, 50000.0, cfg.Accounts[0].OpeningExposure)
	assert.Len(t, cfg.Portfolio.Positions, 2)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 15*time.Second, cfg.VaR.IntervalDuration())
	assert.Equal(t, 2*time.Second, cfg.Risk.TimeoutDuration())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, "store.backend must be"},
		{"redis without addr", func(c *Config) { c.Store.Backend = "redis"; c.Store.RedisAddr = "" }, "store.redis_addr"},
		{"sqlite without path", func(c *Config) { c.Store.Backend = "sqlite"; c.Store.SQLitePath = "" }, "store.sqlite_path"},
		{"bad price scale", func(c *Config) { c.Risk.PriceScale = -1 }, "risk.price_scale"},
		{"zero trials", func(c *Config) { c.VaR.Trials = 0 }, "var.trials must be positive"},
		{"confidence one", func(c *Config) { c.VaR.Confidence = 1 }, "var.confidence"},
		{"tighten factor", func(c *Config) { c.Controller.TightenFactor = 0 }, "controller.tighten_factor"},
		{"bad duration", func(c *Config) { c.VaR.Interval = "soon" }, "var.interval"},
		{"negative duration", func(c *Config) { c.Controller.Interval = "-1s" }, "controller.interval"},
		{"duplicate account", func(c *Config) { c.Accounts = append(c.Accounts, c.Accounts[0]) }, "duplicate id"},
		{"zero base limit", func(c *Config) { c.Accounts[0].BaseMaxOrderSize = 0 }, "base limits must be positive"},
		{"empty static book", func(c *Config) { c.Portfolio.Positions = nil }, "portfolio.positions required"},
		{"bad position", func(c *Config) { c.Portfolio.Positions[0].DailyReturnVolatility = -1 }, "portfolio.positions"},
		{"accounts without marks", func(c *Config) { c.Portfolio.Source = "accounts"; c.Portfolio.Marks = nil }, "portfolio.marks"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "kafka" }, "journal.type must be"},
		{"csv without files", func(c *Config) { c.Journal.Type = "csv" }, "decisions_file and var_file"},
		{"sqlite journal without path", func(c *Config) { c.Journal.Type = "sqlite" }, "db_path required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	for _, ext := range []string{".json", ".yaml", ".yml"} {
		t.Run(ext, func(t *testing.T) {
			cfg := Default()
			cfg.Journal = JournalConfig{Type: "sqlite", DBPath: "./journal.db"}
			path := filepath.Join(tmpDir, "pretrade"+ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unterminated"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PRETRADE_REDIS_ADDR=redis.internal:6380\nPRETRADE_REDIS_DB=3\n"), 0644))

	t.Setenv("PRETRADE_STORE_BACKEND", "redis")
	t.Setenv("PRETRADE_LOG_LEVEL", "debug")
	// godotenv.Load sets variables; make sure the test leaves none behind.
	t.Setenv("PRETRADE_REDIS_ADDR", "")
	require.NoError(t, os.Unsetenv("PRETRADE_REDIS_ADDR"))
	t.Setenv("PRETRADE_REDIS_DB", "")
	require.NoError(t, os.Unsetenv("PRETRADE_REDIS_DB"))

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envFile))

	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, "redis.internal:6380", cfg.Store.RedisAddr)
	assert.Equal(t, 3, cfg.Store.RedisDB)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvMissingFileIsFine(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestApplyEnvBadRedisDB(t *testing.T) {
	t.Setenv("PRETRADE_REDIS_DB", "three")
	cfg := Default()
	assert.Error(t, cfg.ApplyEnv(""))
}
