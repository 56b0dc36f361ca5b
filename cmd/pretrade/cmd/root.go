package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/pretrade/config"
	"github.com/rustyeddy/pretrade/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pretrade",
	Short: "Adaptive pre-trade risk control",
	Long: `Pretrade approves or rejects orders against live per-account limits and
adapts those limits to the portfolio's Monte Carlo Value-at-Risk.

It provides tools for:
  - Running the risk service (VaR engine, limit controller, HTTP queries)
  - Checking single orders against an account
  - One-shot VaR estimates of the configured portfolio
  - Generating and validating configuration files`,
	SilenceUsage: true,
}

var (
	cfgFile  string
	envFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); built-in defaults when empty")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with PRETRADE_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override service.log_level")
}

// loadConfig resolves defaults, the config file and environment overrides,
// in that order.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Service.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.NewLogger(cfg.Service.LogLevel)
}
