package storage

import (
	"context"

	"pulsetrack/internal/domain"
)

// CandleUpsertResult reports per-batch outcome of a candle upsert.
// Malformed records are skipped without aborting the batch.
type CandleUpsertResult struct {
	Accepted int
	Rejected int
}

// AssetStore provides access to the assets table.
type AssetStore interface {
	// Upsert inserts or fully replaces an asset by id.
	Upsert(ctx context.Context, a *domain.Asset) error

	// GetByID retrieves an asset. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, assetID string) (*domain.Asset, error)

	// ListEnabled retrieves all enabled assets ordered by id.
	ListEnabled(ctx context.Context) ([]*domain.Asset, error)

	// ListAll retrieves every asset ordered by id.
	ListAll(ctx context.Context) ([]*domain.Asset, error)
}

// CandleStore provides access to one or more (asset, timeframe) candle
// series. Re-upserting an existing (asset, timeframe, timestamp) key
// overwrites all OHLCV fields: refreshed upstream data is authoritative.
type CandleStore interface {
	// Upsert validates and stores a batch. Malformed candles are counted
	// in Rejected and skipped; the rest of the batch still commits.
	Upsert(ctx context.Context, assetID string, timeframe domain.Timeframe, candles []*domain.Candle) (CandleUpsertResult, error)

	// PriceAsOf returns the close of the latest candle with timestamp <= ts.
	// ok is false when no such candle exists.
	PriceAsOf(ctx context.Context, assetID string, timeframe domain.Timeframe, ts int64) (price float64, ok bool, err error)

	// Range returns the min/max timestamps and count of a series.
	// count is 0 with min/max 0 for an empty series.
	Range(ctx context.Context, assetID string, timeframe domain.Timeframe) (minTS, maxTS int64, count int, err error)

	// GetByAsset retrieves a full series ordered by timestamp ASC.
	GetByAsset(ctx context.Context, assetID string, timeframe domain.Timeframe) ([]*domain.Candle, error)
}

// PostStore provides access to the posts table.
type PostStore interface {
	// Upsert inserts new posts and refreshes engagement counters of
	// already stored ones (text and created_at keep their first-insert
	// values). Returns the number of newly inserted posts.
	Upsert(ctx context.Context, assetID string, posts []*domain.Post) (inserted int, err error)

	// ListSince retrieves posts with created_at >= minTS, ordered by
	// created_at ASC with post id ASC as the tie-break.
	ListSince(ctx context.Context, assetID string, minTS int64) ([]*domain.Post, error)

	// Count returns the number of stored posts for an asset.
	Count(ctx context.Context, assetID string) (int, error)
}

// CursorStore is the ingestion ledger: one cursor per (asset, data type).
type CursorStore interface {
	// Get retrieves a cursor. Returns ErrNotFound before the first merge.
	Get(ctx context.Context, assetID string, dataType DataType) (*Cursor, error)

	// Merge folds a partial update into the stored cursor, creating it if
	// absent. Nil fields never clobber stored values and stored values
	// never move backwards; a regressing update is dropped silently and
	// reported via the returned flag so callers can log it.
	Merge(ctx context.Context, assetID string, dataType DataType, update CursorUpdate) (regressed bool, err error)
}
