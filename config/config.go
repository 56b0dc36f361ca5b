// Package config loads, validates and writes the service configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/pretrade/montecarlo"
	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Service    ServiceConfig    `json:"service" yaml:"service"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Risk       RiskConfig       `json:"risk" yaml:"risk"`
	VaR        VaRConfig        `json:"var" yaml:"var"`
	Controller ControllerConfig `json:"controller" yaml:"controller"`
	Accounts   []AccountConfig  `json:"accounts" yaml:"accounts"`
	Portfolio  PortfolioConfig  `json:"portfolio" yaml:"portfolio"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

type ServiceConfig struct {
	LogLevel string `json:"log_level" yaml:"log_level"`
	// HTTPAddr serves /var, /accounts/{id} and /metrics; empty disables it.
	HTTPAddr string `json:"http_addr" yaml:"http_addr"`
}

// StoreConfig selects the account store backend.
type StoreConfig struct {
	Backend       string `json:"backend" yaml:"backend"` // "memory", "redis" or "sqlite"
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	SQLitePath    string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	Timeout       string `json:"timeout" yaml:"timeout"`
	MaxRetries    int    `json:"max_retries" yaml:"max_retries"`
}

type RiskConfig struct {
	PriceScale int32  `json:"price_scale" yaml:"price_scale"`
	Timeout    string `json:"timeout" yaml:"timeout"`
}

type VaRConfig struct {
	Interval    string  `json:"interval" yaml:"interval"`
	Trials      int     `json:"trials" yaml:"trials"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	Seed        uint64  `json:"seed,omitempty" yaml:"seed,omitempty"` // 0 seeds from entropy
	FeedTimeout string  `json:"feed_timeout" yaml:"feed_timeout"`
	History     int     `json:"history" yaml:"history"`
}

type ControllerConfig struct {
	Interval      string  `json:"interval" yaml:"interval"`
	Threshold     float64 `json:"threshold" yaml:"threshold"`
	TightenFactor float64 `json:"tighten_factor" yaml:"tighten_factor"`
}

// AccountConfig onboards an account at startup if it does not exist yet.
type AccountConfig struct {
	ID               string  `json:"id" yaml:"id"`
	BaseMaxExposure  float64 `json:"base_max_exposure" yaml:"base_max_exposure"`
	BaseMaxOrderSize uint64  `json:"base_max_order_size" yaml:"base_max_order_size"`
	OpeningExposure  float64 `json:"opening_exposure,omitempty" yaml:"opening_exposure,omitempty"`
}

type PortfolioConfig struct {
	Source    string                `json:"source" yaml:"source"` // "static" or "accounts"
	Positions []montecarlo.Position `json:"positions,omitempty" yaml:"positions,omitempty"`
	Marks     []MarkConfig          `json:"marks,omitempty" yaml:"marks,omitempty"`
}

type MarkConfig struct {
	Instrument string  `json:"instrument" yaml:"instrument"`
	Price      float64 `json:"price" yaml:"price"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
}

type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	DecisionsFile string `json:"decisions_file,omitempty" yaml:"decisions_file,omitempty"`
	VaRFile       string `json:"var_file,omitempty" yaml:"var_file,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
// and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// EnvPrefix scopes environment overrides.
const EnvPrefix = "PRETRADE_"

// ApplyEnv loads envFile (if it exists) into the process environment and
// applies PRETRADE_* overrides. Variables already set win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("LOG_LEVEL", &c.Service.LogLevel)
	str("HTTP_ADDR", &c.Service.HTTPAddr)
	str("STORE_BACKEND", &c.Store.Backend)
	str("REDIS_ADDR", &c.Store.RedisAddr)
	str("REDIS_PASSWORD", &c.Store.RedisPassword)
	str("SQLITE_PATH", &c.Store.SQLitePath)

	if v, ok := os.LookupEnv(EnvPrefix + "REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err)
		}
		c.Store.RedisDB = db
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr required for redis backend")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path required for sqlite backend")
		}
	default:
		return fmt.Errorf("store.backend must be 'memory', 'redis' or 'sqlite'")
	}
	if c.Store.MaxRetries < 0 {
		return fmt.Errorf("store.max_retries must not be negative")
	}

	if c.Risk.PriceScale < 0 || c.Risk.PriceScale > 18 {
		return fmt.Errorf("risk.price_scale must be between 0 and 18")
	}

	if c.VaR.Trials <= 0 {
		return fmt.Errorf("var.trials must be positive")
	}
	if !(c.VaR.Confidence > 0 && c.VaR.Confidence < 1) {
		return fmt.Errorf("var.confidence must be between 0 and 1")
	}
	if c.VaR.History < 0 {
		return fmt.Errorf("var.history must not be negative")
	}

	if c.Controller.Threshold < 0 {
		return fmt.Errorf("controller.threshold must not be negative")
	}
	if !(c.Controller.TightenFactor > 0 && c.Controller.TightenFactor <= 1) {
		return fmt.Errorf("controller.tighten_factor must be in (0,1]")
	}

	for name, d := range map[string]string{
		"store.timeout":       c.Store.Timeout,
		"risk.timeout":        c.Risk.Timeout,
		"var.interval":        c.VaR.Interval,
		"var.feed_timeout":    c.VaR.FeedTimeout,
		"controller.interval": c.Controller.Interval,
	} {
		if _, err := parseDuration(d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	seen := make(map[string]bool)
	for _, a := range c.Accounts {
		if a.ID == "" {
			return fmt.Errorf("accounts: id is required")
		}
		if seen[a.ID] {
			return fmt.Errorf("accounts: duplicate id %s", a.ID)
		}
		seen[a.ID] = true
		if a.BaseMaxExposure <= 0 || a.BaseMaxOrderSize == 0 {
			return fmt.Errorf("accounts: %s base limits must be positive", a.ID)
		}
	}

	switch c.Portfolio.Source {
	case "static":
		if len(c.Portfolio.Positions) == 0 {
			return fmt.Errorf("portfolio.positions required for static source")
		}
		for _, p := range c.Portfolio.Positions {
			if err := p.Validate(); err != nil {
				return fmt.Errorf("portfolio.positions: %w", err)
			}
		}
	case "accounts":
		if len(c.Portfolio.Marks) == 0 {
			return fmt.Errorf("portfolio.marks required for accounts source")
		}
	default:
		return fmt.Errorf("portfolio.source must be 'static' or 'accounts'")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.DecisionsFile == "" || c.Journal.VaRFile == "" {
			return fmt.Errorf("journal decisions_file and var_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// parseDuration accepts an empty string as "use the component default".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

func (s StoreConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(s.Timeout)
	return d
}

func (r RiskConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(r.Timeout)
	return d
}

func (v VaRConfig) IntervalDuration() time.Duration {
	d, _ := parseDuration(v.Interval)
	return d
}

func (v VaRConfig) FeedTimeoutDuration() time.Duration {
	d, _ := parseDuration(v.FeedTimeout)
	return d
}

func (c ControllerConfig) IntervalDuration() time.Duration {
	d, _ := parseDuration(c.Interval)
	return d
}

// Default returns the reference deployment: one account, a BTC/ETH book and
// an in-memory store.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			LogLevel: "info",
			HTTPAddr: ":8080",
		},
		Store: StoreConfig{
			Backend:    "memory",
			RedisAddr:  "localhost:6379",
			SQLitePath: "./pretrade.db",
			Timeout:    "2s",
			MaxRetries: 5,
		},
		Risk: RiskConfig{
			PriceScale: 2,
			Timeout:    "2s",
		},
		VaR: VaRConfig{
			Interval:    "15s",
			Trials:      montecarlo.DefaultTrials,
			Confidence:  montecarlo.DefaultConfidence,
			FeedTimeout: "2s",
			History:     montecarlo.DefaultHistory,
		},
		Controller: ControllerConfig{
			Interval:      "15s",
			Threshold:     0.05,
			TightenFactor: 0.75,
		},
		Accounts: []AccountConfig{
			{ID: "101", BaseMaxExposure: 100000, BaseMaxOrderSize: 100, OpeningExposure: 50000},
		},
		Portfolio: PortfolioConfig{
			Source: "static",
			Positions: []montecarlo.Position{
				{Symbol: "BTC", Quantity: 10, CurrentPrice: 60000, DailyReturnVolatility: 0.02},
				{Symbol: "ETH", Quantity: 50, CurrentPrice: 3000, DailyReturnVolatility: 0.03},
			},
			Marks: []MarkConfig{
				{Instrument: "BTC", Price: 60000, Volatility: 0.02},
				{Instrument: "ETH", Price: 3000, Volatility: 0.03},
			},
		},
		Journal: JournalConfig{
			Type: "none",
		},
	}
}
