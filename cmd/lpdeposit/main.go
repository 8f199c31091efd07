package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// A missing .env is fine; settings may come from flags or the environment.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "lpdeposit",
		Short:        "Deposit into a weighted two-asset pool for an exact number of shares",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Estimate, confirm and submit a pool join",
		RunE:  runDeposit,
	}
	addPoolFlags(depositCmd)
	depositCmd.Flags().String("secret", "", "signing key (hex seed or S... secret)")
	depositCmd.Flags().String("initiator", "", "depositing account, defaults to the signing key's account")
	depositCmd.Flags().Uint32("base-fee", 10000, "base fee in stroops")
	depositCmd.Flags().Duration("tx-timeout", 30*time.Second, "transaction validity window")
	depositCmd.Flags().Duration("poll-interval", 6*time.Second, "interval between status polls")
	depositCmd.Flags().Int("max-poll-attempts", 30, "maximum status polls before giving up")
	depositCmd.Flags().Duration("poll-timeout", 3*time.Minute, "overall polling deadline")
	depositCmd.Flags().Int("max-retries", 3, "maximum retry attempts for account lookups")
	depositCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	depositCmd.Flags().String("contract-error-map", "", "extra contract error code->kind mappings (comma-separated key=value)")
	depositCmd.Flags().String("journal", "./data/attempts.jsonl", "attempt journal JSONL path")
	depositCmd.Flags().String("pending", "./data/pending.json", "file tracking an unresolved submission")
	depositCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for the attempt journal")
	depositCmd.Flags().String("redis-url", "", "optional Redis URL for the per-account lock")
	depositCmd.Flags().Duration("lock-ttl", 5*time.Minute, "per-account lock expiry")
	depositCmd.Flags().Bool("yes", false, "skip the prompt and approve within the max-* limits")
	depositCmd.Flags().String("max-asset-a", "", "largest asset A amount approved with --yes")
	depositCmd.Flags().String("max-asset-b", "", "largest asset B amount approved with --yes")
	depositCmd.Flags().Int64("max-resource-fee", 0, "largest resource fee approved with --yes, 0 means unbounded")
	root.AddCommand(depositCmd)

	estimateCmd := &cobra.Command{
		Use:   "estimate",
		Short: "Show the pool state and the reserve limits for a deposit",
		RunE:  runEstimate,
	}
	addPoolFlags(estimateCmd)
	root.AddCommand(estimateCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Resume polling a submission that timed out",
		RunE:  runStatus,
	}
	statusCmd.Flags().String("rpc", "", "ledger RPC URL")
	statusCmd.Flags().Duration("poll-interval", 6*time.Second, "interval between status polls")
	statusCmd.Flags().Int("max-poll-attempts", 30, "maximum status polls before giving up")
	statusCmd.Flags().Duration("poll-timeout", 3*time.Minute, "overall polling deadline")
	statusCmd.Flags().String("contract-error-map", "", "extra contract error code->kind mappings (comma-separated key=value)")
	statusCmd.Flags().String("journal", "./data/attempts.jsonl", "attempt journal JSONL path")
	statusCmd.Flags().String("pending", "./data/pending.json", "file tracking an unresolved submission")
	statusCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for the attempt journal")
	statusCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(statusCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled deposit attempts",
		RunE:  runHistory,
	}
	historyCmd.Flags().String("journal", "./data/attempts.jsonl", "attempt journal JSONL path")
	historyCmd.Flags().String("pg-dsn", "", "read from Postgres instead of the JSONL journal")
	historyCmd.Flags().String("initiator", "", "only attempts from this account")
	historyCmd.Flags().String("pool", "", "only attempts against this pool")
	historyCmd.Flags().String("outcome", "", "only attempts with this outcome (succeeded, failed, timed_out, cancelled)")
	historyCmd.Flags().Int("limit", 20, "maximum attempts to list, 0 means all")
	historyCmd.Flags().Bool("json", false, "print JSON lines instead of a table")
	historyCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(historyCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres journal schema",
		RunE:  runMigrate,
	}
	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().Int("steps", 0, "migrate this many versions (negative rolls back), 0 means all the way up")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPoolFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "ledger RPC URL")
	cmd.Flags().String("network", "testnet", "network (testnet, mainnet, futurenet)")
	cmd.Flags().String("network-passphrase", "", "network passphrase, fetched from the RPC when empty")
	cmd.Flags().String("address-book-dir", ".", "directory holding <network>.contracts.json")
	cmd.Flags().String("pool", "", "pool contract, overrides the address book")
	cmd.Flags().String("asset-a", "", "asset A contract, overrides the address book")
	cmd.Flags().String("asset-b", "", "asset B contract, overrides the address book")
	cmd.Flags().String("shares", "", "pool shares to mint, in whole tokens")
	cmd.Flags().String("slippage", "1", "maximum slippage in percent (1 means 1%)")
	cmd.Flags().String("quote-weight", "0.2", "asset B weight used for the share price when the pool reports none")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
