package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
	"pulsetrack/internal/storage/postgres"
)

func testCandle(ts int64, close float64) *domain.Candle {
	return &domain.Candle{
		Timestamp: ts,
		Open:      close - 0.1,
		High:      close + 0.2,
		Low:       close - 0.2,
		Close:     close,
		Volume:    100,
	}
}

func TestCandleStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandleStore(pool)
	ctx := context.Background()

	res, err := store.Upsert(ctx, "alpha", domain.Timeframe1h, []*domain.Candle{
		testCandle(3600, 1.0),
		testCandle(7200, 1.1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 0, res.Rejected)

	candles, err := store.GetByAsset(ctx, "alpha", domain.Timeframe1h)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(3600), candles[0].Timestamp)
	assert.Equal(t, int64(7200), candles[1].Timestamp)
	assert.Equal(t, "alpha", candles[0].AssetID)
	assert.Equal(t, domain.Timeframe1h, candles[0].Timeframe)
}

func TestCandleStore_UpsertOverwrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandleStore(pool)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "alpha", domain.Timeframe1h, []*domain.Candle{testCandle(3600, 1.0)})
	require.NoError(t, err)

	_, err = store.Upsert(ctx, "alpha", domain.Timeframe1h, []*domain.Candle{testCandle(3600, 2.0)})
	require.NoError(t, err)

	candles, err := store.GetByAsset(ctx, "alpha", domain.Timeframe1h)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 2.0, candles[0].Close)
}

func TestCandleStore_UpsertRejectsMalformed(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandleStore(pool)
	ctx := context.Background()

	bad := testCandle(7200, 1.0)
	bad.High = 0.5 // below low

	res, err := store.Upsert(ctx, "alpha", domain.Timeframe1h, []*domain.Candle{
		testCandle(3600, 1.0),
		bad,
		nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 2, res.Rejected)

	_, _, count, err := store.Range(ctx, "alpha", domain.Timeframe1h)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCandleStore_PriceAsOf(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandleStore(pool)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "alpha", domain.Timeframe1h, []*domain.Candle{
		testCandle(3600, 1.0),
		testCandle(7200, 1.5),
	})
	require.NoError(t, err)

	// Exact hit.
	price, ok, err := store.PriceAsOf(ctx, "alpha", domain.Timeframe1h, 3600)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.0, price)

	// Between candles resolves to the earlier one.
	price, ok, err = store.PriceAsOf(ctx, "alpha", domain.Timeframe1h, 7199)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.0, price)

	// After the last candle.
	price, ok, err = store.PriceAsOf(ctx, "alpha", domain.Timeframe1h, 100000)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.5, price)

	// Before the first candle.
	_, ok, err = store.PriceAsOf(ctx, "alpha", domain.Timeframe1h, 100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCandleStore_Range(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandleStore(pool)
	ctx := context.Background()

	minTS, maxTS, count, err := store.Range(ctx, "alpha", domain.Timeframe1h)
	require.NoError(t, err)
	assert.Zero(t, minTS)
	assert.Zero(t, maxTS)
	assert.Zero(t, count)

	_, err = store.Upsert(ctx, "alpha", domain.Timeframe1h, []*domain.Candle{
		testCandle(3600, 1.0),
		testCandle(7200, 1.1),
		testCandle(10800, 1.2),
	})
	require.NoError(t, err)

	minTS, maxTS, count, err = store.Range(ctx, "alpha", domain.Timeframe1h)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), minTS)
	assert.Equal(t, int64(10800), maxTS)
	assert.Equal(t, 3, count)
}

func TestCandleStore_UpsertInvalidKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewCandleStore(pool)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "", domain.Timeframe1h, []*domain.Candle{testCandle(3600, 1.0)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.Upsert(ctx, "alpha", domain.Timeframe("5m"), []*domain.Candle{testCandle(3600, 1.0)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
