package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpdeposit/internal/config"
	"lpdeposit/internal/confirm"
	"lpdeposit/internal/deposit"
	"lpdeposit/internal/ledger"
	"lpdeposit/internal/lifecycle"
	"lpdeposit/internal/model"
	"lpdeposit/internal/signer"
	"lpdeposit/internal/storage"
	"lpdeposit/internal/txerror"
)

func runDeposit(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc is required")
	}
	if cfg.Secret == "" {
		return fmt.Errorf("secret is required")
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

	passphrase, err := networkPassphrase(ctx, cfg, client)
	if err != nil {
		return err
	}

	keys, err := signer.NewEd25519Signer(cfg.Secret, passphrase)
	if err != nil {
		return err
	}
	initiator := cfg.Initiator
	if initiator == "" {
		initiator = keys.AccountID()
	}

	var confirmer lifecycle.Confirmer
	if cfg.Yes {
		maxA, err := parseLimit("max-asset-a", cfg.MaxAssetA)
		if err != nil {
			return err
		}
		maxB, err := parseLimit("max-asset-b", cfg.MaxAssetB)
		if err != nil {
			return err
		}
		confirmer = confirm.Policy{MaxAssetA: maxA, MaxAssetB: maxB, MaxResourceFee: cfg.MaxResourceFee, Logger: logger}
	} else {
		prompt := confirm.NewPrompt(os.Stdin, os.Stdout)
		defer prompt.Close()
		confirmer = prompt
	}

	controller, err := lifecycle.NewController(lifecycle.Config{
		Simulator:       client,
		Confirmer:       confirmer,
		Signer:          keys,
		Submitter:       client,
		Poller:          client,
		Decoder:         txerror.NewDecoder(cfg.ContractErrorMap),
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
		PollTimeout:     cfg.PollTimeout,
	}, logger, lifecycle.WithObserver(observe(logger)))
	if err != nil {
		return err
	}

	journal, err := openJournal(ctx, cfg.Journal, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer journal.close()

	locker, closeLocker, err := openLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	deps := deposit.Deps{
		Loader:    newLoader(client, logger),
		Accounts:  client,
		Lifecycle: controller,
		Journal:   journal.sink,
		Locker:    locker,
		Pending:   storage.NewPendingStore(cfg.Pending, true),
	}

	svc, err := deposit.NewService(deposit.Config{
		Tx: deposit.TxParams{
			Network: passphrase,
			BaseFee: cfg.BaseFee,
			Timeout: cfg.TxTimeout,
		},
		QuoteWeight:  in.QuoteWeight,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, deps, logger)
	if err != nil {
		return err
	}

	logger.Info("deposit starting",
		zap.String("network", cfg.Network),
		zap.String("pool", target.PoolID),
		zap.String("initiator", initiator),
		zap.String("shares", deposit.FormatAmount(in.Shares)),
		zap.String("slippage", in.Slippage.String()),
	)

	outcome, err := svc.DepositForShares(ctx, deposit.DepositParams{
		PoolID:       target.PoolID,
		AssetAID:     target.AssetAID,
		AssetBID:     target.AssetBID,
		TargetShares: in.Shares,
		Slippage:     in.Slippage,
		Initiator:    initiator,
	})
	if err != nil {
		return err
	}
	return report(cmd, outcome)
}

// report prints the outcome and turns anything but success into an error exit.
func report(cmd *cobra.Command, outcome model.Outcome) error {
	out := cmd.OutOrStdout()
	switch outcome.Kind {
	case model.OutcomeSucceeded:
		fmt.Fprintf(out, "deposit succeeded: %s\n", outcome.Hash)
		return nil
	case model.OutcomeTimedOut:
		fmt.Fprintf(out, "deposit still pending: %s\nrun `lpdeposit status` to keep waiting\n", outcome.Reason())
	default:
		fmt.Fprintf(out, "deposit %s: %s\n", outcome.Kind, outcome.Reason())
	}
	if outcome.Failure != nil {
		fmt.Fprintf(out, "failure: %s (code %d)\n", outcome.Failure.Kind, outcome.Failure.RawCode)
	}
	return fmt.Errorf("deposit %s", outcome.Kind)
}
