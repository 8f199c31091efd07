package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lpdeposit/internal/config"
	"lpdeposit/internal/deposit"
	"lpdeposit/internal/ledger"
	"lpdeposit/internal/lifecycle"
	"lpdeposit/internal/storage"
	"lpdeposit/internal/txerror"
)

func runStatus(cmd *cobra.Command, args []string) error {
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

	client, err := ledger.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer client.Close()

	controller, err := lifecycle.NewController(lifecycle.Config{
		Simulator:       client,
		Confirmer:       trackOnly{},
		Signer:          trackOnly{},
		Submitter:       client,
		Poller:          client,
		Decoder:         txerror.NewDecoder(cfg.ContractErrorMap),
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
		PollTimeout:     cfg.PollTimeout,
	}, logger)
	if err != nil {
		return err
	}

	journal, err := openJournal(ctx, cfg.Journal, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer journal.close()

	svc, err := deposit.NewService(deposit.Config{}, deposit.Deps{
		Loader:    newLoader(client, logger),
		Accounts:  client,
		Lifecycle: controller,
		Journal:   journal.sink,
		Pending:   storage.NewPendingStore(cfg.Pending, true),
	}, logger)
	if err != nil {
		return err
	}

	results, err := svc.Resume(ctx, journal.source)
	if len(results) == 0 && err == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "no pending deposit")
		return nil
	}

	var failed error
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "attempt %s:\n", r.Pending.AttemptID)
		if rerr := report(cmd, r.Outcome); rerr != nil && failed == nil {
			failed = rerr
		}
	}
	if err != nil {
		return err
	}
	return failed
}
