package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
//
// The candles table is a ReplacingMergeTree keyed by
// (asset_id, timeframe, timestamp) versioned by fetched_at, so repeated
// inserts of the same candle collapse to the freshest row on merge.
// Reads use FINAL to deduplicate rows that have not merged yet.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// Upsert inserts or refreshes candles. Malformed records are counted as
// rejected without aborting the rest of the batch; re-inserting an
// existing (asset, timeframe, timestamp) key overwrites all OHLCV fields
// once the ReplacingMergeTree collapses versions.
func (s *CandleStore) Upsert(ctx context.Context, assetID string, timeframe domain.Timeframe, candles []*domain.Candle) (storage.CandleUpsertResult, error) {
	var res storage.CandleUpsertResult
	if assetID == "" || !timeframe.Valid() {
		return res, storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return res, nil
	}

	valid := make([]*domain.Candle, 0, len(candles))
	for _, c := range candles {
		if c == nil || c.Validate() != nil {
			res.Rejected++
			continue
		}
		valid = append(valid, c)
	}
	if len(valid) == 0 {
		return res, nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			asset_id, timeframe, timestamp, open, high, low, close, volume, fetched_at
		)
	`)
	if err != nil {
		return res, fmt.Errorf("prepare batch: %w", err)
	}

	fetchedAt := time.Now().UTC()
	for _, c := range valid {
		err = batch.Append(
			assetID, string(timeframe), c.Timestamp,
			c.Open, c.High, c.Low, c.Close, c.Volume,
			fetchedAt,
		)
		if err != nil {
			return res, fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return res, fmt.Errorf("send batch: %w", err)
	}

	res.Accepted = len(valid)
	return res, nil
}

// PriceAsOf returns the close of the latest candle at or before ts.
// ok is false when no candle exists at or before ts.
func (s *CandleStore) PriceAsOf(ctx context.Context, assetID string, tf domain.Timeframe, ts int64) (float64, bool, error) {
	query := `
		SELECT close
		FROM candles FINAL
		WHERE asset_id = ? AND timeframe = ? AND timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var price float64
	err := s.conn.QueryRow(ctx, query, assetID, string(tf), ts).Scan(&price)
	if err != nil {
		if isNoRowsError(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query price as of: %w", err)
	}
	return price, true, nil
}

// Range reports the stored extent of a series: earliest timestamp,
// latest timestamp and row count. count is zero for an empty series.
func (s *CandleStore) Range(ctx context.Context, assetID string, tf domain.Timeframe) (int64, int64, int, error) {
	query := `
		SELECT min(timestamp), max(timestamp), count()
		FROM candles FINAL
		WHERE asset_id = ? AND timeframe = ?
	`

	var minTS, maxTS int64
	var count uint64
	err := s.conn.QueryRow(ctx, query, assetID, string(tf)).Scan(&minTS, &maxTS, &count)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("query range: %w", err)
	}
	if count == 0 {
		return 0, 0, 0, nil
	}
	return minTS, maxTS, int(count), nil
}

// GetByAsset retrieves all candles of one series ordered by timestamp ASC.
func (s *CandleStore) GetByAsset(ctx context.Context, assetID string, tf domain.Timeframe) ([]*domain.Candle, error) {
	query := `
		SELECT asset_id, timeframe, timestamp, open, high, low, close, volume
		FROM candles FINAL
		WHERE asset_id = ? AND timeframe = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, assetID, string(tf))
	if err != nil {
		return nil, fmt.Errorf("query candles by asset: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// scanCandles scans multiple rows.
func scanCandles(rows driver.Rows) ([]*domain.Candle, error) {
	var candles []*domain.Candle

	for rows.Next() {
		var c domain.Candle
		var tf string

		err := rows.Scan(
			&c.AssetID, &tf, &c.Timestamp,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}

		c.Timeframe = domain.Timeframe(tf)
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}
