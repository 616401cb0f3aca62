package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// CandleStore implements storage.CandleStore using PostgreSQL.
// The (asset_id, timeframe, timestamp) primary key index makes PriceAsOf
// an index-backed ORDER BY ... LIMIT 1, i.e. O(log n).
type CandleStore struct {
	pool *Pool
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(pool *Pool) *CandleStore {
	return &CandleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// Upsert validates and stores a batch in one transaction, last-write-wins
// per timestamp. Malformed candles are counted as rejected and skipped.
func (s *CandleStore) Upsert(ctx context.Context, assetID string, timeframe domain.Timeframe, candles []*domain.Candle) (storage.CandleUpsertResult, error) {
	var res storage.CandleUpsertResult
	if assetID == "" || !timeframe.Valid() {
		return res, storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return res, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO candles (
			asset_id, timeframe, timestamp, open, high, low, close, volume, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (asset_id, timeframe, timestamp) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			fetched_at = now()
	`

	for _, c := range candles {
		if c == nil || c.Validate() != nil {
			res.Rejected++
			continue
		}
		_, err := tx.Exec(ctx, query,
			assetID,
			string(timeframe),
			c.Timestamp,
			c.Open,
			c.High,
			c.Low,
			c.Close,
			c.Volume,
		)
		if err != nil {
			return storage.CandleUpsertResult{}, fmt.Errorf("upsert candle at %d: %w", c.Timestamp, err)
		}
		res.Accepted++
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.CandleUpsertResult{}, fmt.Errorf("commit tx: %w", err)
	}
	return res, nil
}

// PriceAsOf returns the close of the latest candle with timestamp <= ts.
func (s *CandleStore) PriceAsOf(ctx context.Context, assetID string, timeframe domain.Timeframe, ts int64) (float64, bool, error) {
	query := `
		SELECT close
		FROM candles
		WHERE asset_id = $1 AND timeframe = $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var price float64
	err := s.pool.QueryRow(ctx, query, assetID, string(timeframe), ts).Scan(&price)
	if err != nil {
		if isNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("price as of: %w", err)
	}
	return price, true, nil
}

// Range returns min/max timestamps and count of a series.
func (s *CandleStore) Range(ctx context.Context, assetID string, timeframe domain.Timeframe) (int64, int64, int, error) {
	query := `
		SELECT COALESCE(MIN(timestamp), 0), COALESCE(MAX(timestamp), 0), COUNT(*)
		FROM candles
		WHERE asset_id = $1 AND timeframe = $2
	`

	var minTS, maxTS int64
	var count int
	err := s.pool.QueryRow(ctx, query, assetID, string(timeframe)).Scan(&minTS, &maxTS, &count)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("candle range: %w", err)
	}
	return minTS, maxTS, count, nil
}

// GetByAsset retrieves a full series ordered by timestamp ASC.
func (s *CandleStore) GetByAsset(ctx context.Context, assetID string, timeframe domain.Timeframe) ([]*domain.Candle, error) {
	query := `
		SELECT asset_id, timeframe, timestamp, open, high, low, close, volume
		FROM candles
		WHERE asset_id = $1 AND timeframe = $2
		ORDER BY timestamp ASC
	`

	rows, err := s.pool.Query(ctx, query, assetID, string(timeframe))
	if err != nil {
		return nil, fmt.Errorf("get candles by asset: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

func scanCandles(rows pgx.Rows) ([]*domain.Candle, error) {
	var candles []*domain.Candle

	for rows.Next() {
		var c domain.Candle
		var timeframe string

		err := rows.Scan(
			&c.AssetID,
			&timeframe,
			&c.Timestamp,
			&c.Open,
			&c.High,
			&c.Low,
			&c.Close,
			&c.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		c.Timeframe = domain.Timeframe(timeframe)
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}
	return candles, nil
}
