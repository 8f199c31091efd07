package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpdeposit/internal/config"
	"lpdeposit/internal/storage/postgres"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadHistory(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg-dsn is required")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	version, err := postgres.Migrate(cfg.PGDSN, cfg.Steps)
	if err != nil {
		return err
	}
	logger.Info("journal schema migrated", zap.Uint("version", version))
	return nil
}
