package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/pretrade/gateway"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the risk service",
	Long: `Start the VaR engine, the adaptive limit controller and the HTTP query
surface (/var, /accounts/{id}, /metrics). Stops on SIGINT or SIGTERM.

With --demo, a buy order of random size 1..150 at 601.50 is submitted for
every configured account on each demo tick.

Example:
  pretrade run -c pretrade.yaml --demo`,
	RunE: runRun,
}

var (
	runDemo         bool
	runDemoInterval time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runDemo, "demo", false, "submit random demo orders")
	runCmd.Flags().DurationVar(&runDemoInterval, "demo-interval", gateway.DemoInterval, "time between demo order rounds")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := gateway.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer g.Close()

	var demo *gateway.Demo
	if runDemo {
		demo = gateway.NewDemo(g.Risk, g.Accounts(), runDemoInterval, log)
	}

	log.Info().
		Str("store", cfg.Store.Backend).
		Str("portfolio", cfg.Portfolio.Source).
		Str("journal", cfg.Journal.Type).
		Bool("demo", runDemo).
		Msg("pretrade starting")
	return g.Run(ctx, demo)
}
