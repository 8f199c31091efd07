package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lpdeposit/internal/ledger"
	"lpdeposit/internal/model"
)

// Storage entries read from the pool contract.
const (
	KeyAllRecordData = "AllRecordData"
	KeyTotalShares   = "TotalShares"
)

// LedgerReader fetches raw ledger entries.
type LedgerReader interface {
	GetLedgerEntries(ctx context.Context, keys ...json.RawMessage) ([]model.LedgerEntry, error)
}

// ValueDecoder interprets entry keys and stored values.
type ValueDecoder interface {
	DecodeEntryKey(raw json.RawMessage) (string, error)
	ContractDataValue(raw json.RawMessage) (json.RawMessage, error)
	DecodeStructuredValue(raw json.RawMessage) (interface{}, error)
}

// Loader reads pool snapshots from ledger state. It never caches.
type Loader struct {
	reader  LedgerReader
	decoder ValueDecoder
	logger  *zap.Logger
	now     func() time.Time
}

// NewLoader creates a snapshot loader.
func NewLoader(reader LedgerReader, decoder ValueDecoder, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{reader: reader, decoder: decoder, logger: logger, now: time.Now}
}

// Load fetches the reserve records and the total share supply of a pool
// concurrently and returns them as one snapshot.
func (l *Loader) Load(ctx context.Context, poolID, assetAID, assetBID string) (model.PoolSnapshot, error) {
	var records, shares interface{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		value, err := l.readEntry(gctx, poolID, KeyAllRecordData)
		records = value
		return err
	})
	g.Go(func() error {
		value, err := l.readEntry(gctx, poolID, KeyTotalShares)
		shares = value
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PoolSnapshot{}, err
	}

	recordMap, ok := records.(map[string]interface{})
	if !ok {
		return model.PoolSnapshot{}, fmt.Errorf("%w: %s is %T, not a map", model.ErrDataUnavailable, KeyAllRecordData, records)
	}
	assetA, err := parseRecord(recordMap, assetAID)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	assetB, err := parseRecord(recordMap, assetBID)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	totalShares, err := ledger.AsBigInt(shares)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("%w: %s: %v", model.ErrDataUnavailable, KeyTotalShares, err)
	}

	snapshot := model.PoolSnapshot{
		PoolID:      poolID,
		AssetA:      assetA,
		AssetB:      assetB,
		TotalShares: totalShares,
		FetchedAt:   l.now().UTC(),
	}
	l.logger.Debug("pool snapshot loaded",
		zap.String("pool", poolID),
		zap.String("reserve_a", assetA.Balance.String()),
		zap.String("reserve_b", assetB.Balance.String()),
		zap.String("total_shares", totalShares.String()),
	)
	return snapshot, nil
}

func (l *Loader) readEntry(ctx context.Context, poolID, symbol string) (interface{}, error) {
	key := ledger.ContractDataKey(poolID, symbol, model.DurabilityPersistent)
	entries, err := l.reader.GetLedgerEntries(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", model.ErrDataUnavailable, symbol, err)
	}

	for _, entry := range entries {
		name, err := l.decoder.DecodeEntryKey(entry.Key)
		if err != nil {
			l.logger.Warn("skip undecodable entry key", zap.String("pool", poolID), zap.Error(err))
			continue
		}
		if name != symbol {
			continue
		}
		raw, err := l.decoder.ContractDataValue(entry.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrDataUnavailable, symbol, err)
		}
		value, err := l.decoder.DecodeStructuredValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", model.ErrDataUnavailable, symbol, err)
		}
		return value, nil
	}
	return nil, fmt.Errorf("%w: %s not found for pool %s", model.ErrDataUnavailable, symbol, poolID)
}

func parseRecord(records map[string]interface{}, assetID string) (model.PoolAsset, error) {
	raw, ok := records[assetID]
	if !ok {
		return model.PoolAsset{}, fmt.Errorf("%w: no record for asset %s", model.ErrDataUnavailable, assetID)
	}
	fields, ok := raw.(map[string]interface{})
	if !ok {
		return model.PoolAsset{}, fmt.Errorf("%w: record for asset %s is %T", model.ErrDataUnavailable, assetID, raw)
	}

	balance, err := ledger.AsBigInt(fields["balance"])
	if err != nil {
		return model.PoolAsset{}, fmt.Errorf("%w: balance of %s: %v", model.ErrDataUnavailable, assetID, err)
	}
	asset := model.PoolAsset{ID: assetID, Balance: balance, Index: -1}

	if denorm, ok := fields["denorm"]; ok {
		weight, err := ledger.AsBigInt(denorm)
		if err != nil {
			return model.PoolAsset{}, fmt.Errorf("%w: weight of %s: %v", model.ErrDataUnavailable, assetID, err)
		}
		asset.Weight = weight
	}
	if index, ok := fields["index"]; ok {
		idx, err := ledger.AsBigInt(index)
		if err != nil || !idx.IsInt64() || idx.Sign() < 0 || idx.Cmp(big.NewInt(1<<16)) > 0 {
			return model.PoolAsset{}, fmt.Errorf("%w: index of %s is invalid", model.ErrDataUnavailable, assetID)
		}
		asset.Index = int(idx.Int64())
	}
	return asset, nil
}
