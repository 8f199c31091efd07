package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpdeposit/internal/config"
	"lpdeposit/internal/storage"
)

func runHistory(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadHistory(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal, err := openJournal(ctx, cfg.Journal, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer journal.close()

	records, err := journal.source.ListAttempts(ctx, storage.AttemptFilter{
		Initiator: cfg.Initiator,
		PoolID:    cfg.Pool,
		Outcome:   cfg.Outcome,
		Limit:     cfg.Limit,
	})
	if err != nil {
		return err
	}
	logger.Debug("history loaded", zap.Int("records", len(records)))

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, record := range records {
			if err := enc.Encode(record); err != nil {
				return err
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tOUTCOME\tSHARES\tMAX A\tMAX B\tHASH\tDETAIL")
	for _, r := range records {
		detail := r.Message
		if r.ErrorKind != "" {
			detail = r.ErrorKind + ": " + detail
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format(time.RFC3339), r.Outcome, r.TargetShares,
			r.ReserveALimit, r.ReserveBLimit, r.Hash, detail)
	}
	return w.Flush()
}
