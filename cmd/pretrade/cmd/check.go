package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rustyeddy/pretrade/gateway"
	"github.com/rustyeddy/pretrade/pkg/id"
	"github.com/rustyeddy/pretrade/risk"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check an order against an account",
	Long: `Show an account's limits and the largest size that fits at a price. With
--size, the order is submitted and booked on approval.

Prices are fixed point in minor units (risk.price_scale decimals).

Examples:
  pretrade check --account 101 --price 60150
  pretrade check --account 101 --instrument BTC --price 60150 --size 80 --side buy`,
	RunE: runCheck,
}

var (
	checkAccount    string
	checkInstrument string
	checkPrice      int64
	checkSize       uint64
	checkSide       string
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkAccount, "account", "101", "account id")
	checkCmd.Flags().StringVar(&checkInstrument, "instrument", gateway.DemoInstrument, "instrument id")
	checkCmd.Flags().Int64Var(&checkPrice, "price", gateway.DemoPrice, "price in minor units")
	checkCmd.Flags().Uint64Var(&checkSize, "size", 0, "order size; 0 only reports headroom")
	checkCmd.Flags().StringVar(&checkSide, "side", "buy", "buy or sell")
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	st, err := g.Store.Get(ctx, checkAccount)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Account %s (version %d)\n", st.AccountID, st.Version)
	fmt.Fprintf(out, "  Max exposure:   %.2f (base %.2f)\n", st.CurrentMaxExposure, st.BaseMaxExposure)
	fmt.Fprintf(out, "  Max order size: %d (base %d)\n", st.CurrentMaxOrderSize, st.BaseMaxOrderSize)
	fmt.Fprintf(out, "  Exposure:       %.2f\n", st.CurrentExposure)
	fmt.Fprintf(out, "  Headroom @ %s: %d\n",
		risk.UnitPrice(checkPrice, cfg.Risk.PriceScale).String(),
		risk.Headroom(st, checkPrice, cfg.Risk.PriceScale))

	if checkSize == 0 {
		return nil
	}

	d := g.Risk.CheckAndApply(ctx, risk.OrderRequest{
		OrderID:      id.NewOrderID(),
		AccountID:    checkAccount,
		InstrumentID: checkInstrument,
		Price:        checkPrice,
		Size:         checkSize,
		Side:         risk.Side(strings.ToUpper(checkSide)),
	})
	fmt.Fprintf(out, "\n%s %s\n", d.OrderID, d)
	if d.Approved() {
		fmt.Fprintf(out, "  Exposure now %.2f (version %d)\n", d.Exposure, d.Version)
	}
	return nil
}
