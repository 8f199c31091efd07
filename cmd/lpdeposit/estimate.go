package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lpdeposit/internal/config"
	"lpdeposit/internal/deposit"
	"lpdeposit/internal/ledger"
	"lpdeposit/internal/pool"
)

func runEstimate(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc is required")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := parseAmounts(cfg)
	if err != nil {
		return err
	}
	target, err := resolvePool(cfg)
	if err != nil {
		return err
	}

	client, err := ledger.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer client.Close()

	snapshot, err := newLoader(client, logger).Load(ctx, target.PoolID, target.AssetAID, target.AssetBID)
	if err != nil {
		return err
	}
	estimate, err := pool.EstimateJoin(snapshot, in.Shares, in.Slippage)
	if err != nil {
		return err
	}
	quote, err := pool.Quote(snapshot, in.QuoteWeight)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "pool\t%s\n", snapshot.PoolID)
	fmt.Fprintf(w, "total shares\t%s\n", deposit.FormatAmount(snapshot.TotalShares))
	fmt.Fprintf(w, "reserve A\t%s\n", deposit.FormatAmount(snapshot.AssetA.Balance))
	fmt.Fprintf(w, "reserve B\t%s\n", deposit.FormatAmount(snapshot.AssetB.Balance))
	fmt.Fprintf(w, "A per share\t%s\n", quote.AssetAPerShare.StringFixed(deposit.AmountDecimals))
	fmt.Fprintf(w, "B per share\t%s\n", quote.AssetBPerShare.StringFixed(deposit.AmountDecimals))
	fmt.Fprintf(w, "share price (B)\t%s\n", quote.SharePrice.StringFixed(deposit.AmountDecimals))
	fmt.Fprintf(w, "shares out\t%s\n", deposit.FormatAmount(in.Shares))
	fmt.Fprintf(w, "max A in\t%s\n", deposit.FormatAmount(deposit.ToBaseUnits(estimate.ReserveALimit)))
	fmt.Fprintf(w, "max B in\t%s\n", deposit.FormatAmount(deposit.ToBaseUnits(estimate.ReserveBLimit)))
	if err := w.Flush(); err != nil {
		return err
	}
	if estimate.LargeSlippage {
		fmt.Fprintln(cmd.OutOrStdout(), "warning: slippage of 50% or more")
	}
	return nil
}
