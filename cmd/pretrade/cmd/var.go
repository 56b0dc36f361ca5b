package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/pretrade/gateway"
	"github.com/rustyeddy/pretrade/limits"
	"github.com/spf13/cobra"
)

var varCmd = &cobra.Command{
	Use:   "var",
	Short: "Estimate VaR of the configured portfolio once",
	Long: `Run a single Monte Carlo cycle over the configured portfolio and print the
result with the limit regime it would select.

Example:
  pretrade var -c pretrade.yaml --json`,
	RunE: runVaR,
}

var varJSON bool

func init() {
	rootCmd.AddCommand(varCmd)
	varCmd.Flags().BoolVar(&varJSON, "json", false, "print the result as JSON")
}

func runVaR(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	g, err := gateway.New(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer g.Close()

	res, err := g.VaR.Tick(ctx)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	out := cmd.OutOrStdout()
	if varJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "Portfolio value: %.2f (%d positions)\n", res.PortfolioValue, res.Positions)
	fmt.Fprintf(out, "VaR %.0f%% 1-day: %.2f over %d trials\n", res.ConfidenceLevel*100, res.VaRAmount, res.Trials)

	ratio, err := limits.Ratio(res)
	if err != nil {
		fmt.Fprintf(out, "Regime: undefined (%v)\n", err)
		return nil
	}
	policy := limits.Policy{Threshold: cfg.Controller.Threshold, TightenFactor: cfg.Controller.TightenFactor}
	fmt.Fprintf(out, "VaR ratio: %.4f (threshold %.4f) => %s\n", ratio, policy.Threshold, policy.Regime(ratio))
	return nil
}
