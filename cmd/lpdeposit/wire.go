package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lpdeposit/internal/config"
	"lpdeposit/internal/deposit"
	"lpdeposit/internal/ledger"
	"lpdeposit/internal/lifecycle"
	"lpdeposit/internal/lock"
	"lpdeposit/internal/model"
	"lpdeposit/internal/pool"
	"lpdeposit/internal/registry"
	"lpdeposit/internal/storage"
	"lpdeposit/internal/storage/postgres"
)

type poolTarget struct {
	PoolID   string
	AssetAID string
	AssetBID string
}

// resolvePool fills in contract IDs from the address book unless all three
// are given explicitly.
func resolvePool(cfg config.Config) (poolTarget, error) {
	target := poolTarget{PoolID: cfg.Pool, AssetAID: cfg.AssetA, AssetBID: cfg.AssetB}
	if target.PoolID != "" && target.AssetAID != "" && target.AssetBID != "" {
		return target, nil
	}

	book, err := registry.Load(cfg.AddressBookDir, cfg.Network)
	if err != nil {
		return poolTarget{}, err
	}
	poolID, assetA, assetB, err := book.PoolContracts()
	if err != nil {
		return poolTarget{}, err
	}
	if target.PoolID == "" {
		target.PoolID = poolID
	}
	if target.AssetAID == "" {
		target.AssetAID = assetA
	}
	if target.AssetBID == "" {
		target.AssetBID = assetB
	}
	return target, nil
}

type amounts struct {
	Shares      *big.Int
	Slippage    decimal.Decimal
	QuoteWeight decimal.Decimal
}

// parseAmounts reads the share count in whole tokens and the slippage in percent.
func parseAmounts(cfg config.Config) (amounts, error) {
	if cfg.Shares == "" {
		return amounts{}, fmt.Errorf("shares is required")
	}
	shares, err := decimal.NewFromString(cfg.Shares)
	if err != nil {
		return amounts{}, fmt.Errorf("parse shares: %w", err)
	}
	scaled, err := deposit.ScaleAmount(shares)
	if err != nil {
		return amounts{}, err
	}

	percent, err := decimal.NewFromString(cfg.Slippage)
	if err != nil {
		return amounts{}, fmt.Errorf("parse slippage: %w", err)
	}

	weight := decimal.Zero
	if cfg.QuoteWeight != "" {
		weight, err = decimal.NewFromString(cfg.QuoteWeight)
		if err != nil {
			return amounts{}, fmt.Errorf("parse quote-weight: %w", err)
		}
	}

	return amounts{
		Shares:      scaled,
		Slippage:    percent.Div(decimal.NewFromInt(100)),
		QuoteWeight: weight,
	}, nil
}

func parseLimit(name, value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return deposit.ScaleAmount(amount)
}

func networkPassphrase(ctx context.Context, cfg config.Config, client *ledger.Client) (string, error) {
	if cfg.NetworkPassphrase != "" {
		return cfg.NetworkPassphrase, nil
	}
	passphrase, err := client.NetworkPassphrase(ctx)
	if err != nil {
		return "", fmt.Errorf("network passphrase: %w", err)
	}
	return passphrase, nil
}

// journal holds the attempt sinks opened for one command.
type journal struct {
	sink   storage.AttemptSink
	source storage.AttemptSource
	close  func()
}

func openJournal(ctx context.Context, jsonlPath, dsn string, logger *zap.Logger) (*journal, error) {
	jsonl := storage.NewJsonlStorage(jsonlPath)
	if dsn == "" {
		return &journal{sink: jsonl, source: jsonl, close: func() {}}, nil
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, err
	}
	logger.Info("postgres journal enabled", zap.String("dsn", redactURL(dsn)))
	return &journal{
		sink:   storage.Fanout(jsonl, store),
		source: store,
		close:  store.Close,
	}, nil
}

func openLocker(ctx context.Context, cfg config.Config, logger *zap.Logger) (deposit.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return nil, func() {}, nil
	}
	cli, err := lock.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("per-account lock enabled", zap.String("redis", redactURL(cfg.RedisURL)), zap.Duration("ttl", cfg.LockTTL))
	return lock.NewRedisLocker(cli, cfg.LockTTL, logger.Named("lock")), func() { _ = cli.Close() }, nil
}

// redactURL hides credentials in a connection string before it is logged.
func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}

// observe logs lifecycle events at the CLI level.
func observe(logger *zap.Logger) lifecycle.Observer {
	return func(ev lifecycle.Event) {
		switch ev.Kind {
		case lifecycle.EventEstimated:
			if ev.Summary != nil {
				logger.Info("simulation ok",
					zap.Int64("resource_fee", ev.Summary.ResourceFee),
					zap.String("asset_a_max", deposit.FormatAmount(ev.Summary.AssetAAmount)),
					zap.String("asset_b_max", deposit.FormatAmount(ev.Summary.AssetBAmount)),
				)
			}
		case lifecycle.EventResolved:
			logger.Debug("lifecycle resolved", zap.Stringer("state", ev.State))
		}
	}
}

func newLoader(client *ledger.Client, logger *zap.Logger) *pool.Loader {
	return pool.NewLoader(client, ledger.JSONDecoder{}, logger)
}

// trackOnly stands in for the signing side when a command only follows an
// existing submission.
type trackOnly struct{}

func (trackOnly) Confirm(context.Context, lifecycle.Summary) (bool, error) { return false, nil }

func (trackOnly) Sign(context.Context, model.UnsignedTx) ([]byte, error) {
	return nil, errors.New("signing is not available here")
}
