package memory

import (
	"context"
	"testing"

	"pulsetrack/internal/domain"
)

func mkCandle(ts int64, close float64) *domain.Candle {
	return &domain.Candle{
		Timestamp: ts,
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    1,
	}
}

func TestCandleStore_UpsertAndGet(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	res, err := store.Upsert(ctx, "pump", domain.Timeframe1m, []*domain.Candle{
		mkCandle(60, 1.1),
		mkCandle(120, 1.2),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if res.Accepted != 2 || res.Rejected != 0 {
		t.Errorf("Expected 2 accepted, 0 rejected, got %+v", res)
	}

	candles, err := store.GetByAsset(ctx, "pump", domain.Timeframe1m)
	if err != nil {
		t.Fatalf("GetByAsset failed: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(candles))
	}
	if candles[0].Timestamp != 60 || candles[1].Timestamp != 120 {
		t.Errorf("Candles not ordered by timestamp: %d, %d", candles[0].Timestamp, candles[1].Timestamp)
	}
}

func TestCandleStore_UpsertIdempotent(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	batch := []*domain.Candle{mkCandle(60, 1.1), mkCandle(120, 1.2)}

	if _, err := store.Upsert(ctx, "pump", domain.Timeframe1m, batch); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	// Second upsert of the same batch overwrites, never duplicates.
	res, err := store.Upsert(ctx, "pump", domain.Timeframe1m, batch)
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if res.Accepted != 2 {
		t.Errorf("Expected 2 accepted on overwrite, got %d", res.Accepted)
	}

	_, _, count, err := store.Range(ctx, "pump", domain.Timeframe1m)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected row count unchanged at 2, got %d", count)
	}
}

func TestCandleStore_UpsertOverwritesFields(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "pump", domain.Timeframe1h, []*domain.Candle{mkCandle(3600, 1.0)}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.Upsert(ctx, "pump", domain.Timeframe1h, []*domain.Candle{mkCandle(3600, 2.5)}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	price, ok, err := store.PriceAsOf(ctx, "pump", domain.Timeframe1h, 3600)
	if err != nil || !ok {
		t.Fatalf("PriceAsOf failed: ok=%v err=%v", ok, err)
	}
	if price != 2.5 {
		t.Errorf("Expected overwritten close 2.5, got %v", price)
	}
}

func TestCandleStore_MalformedRejectedWithoutAbort(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	bad := mkCandle(60, 1.0)
	bad.Low = 5.0 // low > high

	res, err := store.Upsert(ctx, "pump", domain.Timeframe1m, []*domain.Candle{
		bad,
		mkCandle(120, 1.2),
		nil,
	})
	if err != nil {
		t.Fatalf("Upsert should not abort on malformed records: %v", err)
	}
	if res.Accepted != 1 || res.Rejected != 2 {
		t.Errorf("Expected 1 accepted, 2 rejected, got %+v", res)
	}

	_, _, count, _ := store.Range(ctx, "pump", domain.Timeframe1m)
	if count != 1 {
		t.Errorf("Expected only the good candle stored, got %d", count)
	}
}

func TestCandleStore_PriceAsOf(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	// Minute candles at t=0 is invalid (timestamp must be positive), so
	// shift the textbook scenario by one bucket: 60, 120, 180.
	_, err := store.Upsert(ctx, "pump", domain.Timeframe1m, []*domain.Candle{
		mkCandle(60, 1.0),
		mkCandle(120, 1.1),
		mkCandle(180, 1.2),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	tests := []struct {
		name   string
		ts     int64
		want   float64
		wantOK bool
	}{
		{"between candles uses earlier", 150, 1.1, true},
		{"exact boundary", 120, 1.1, true},
		{"after last uses stale latest", 260, 1.2, true},
		{"before first is absent", 50, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, ok, err := store.PriceAsOf(ctx, "pump", domain.Timeframe1m, tt.ts)
			if err != nil {
				t.Fatalf("PriceAsOf failed: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && price != tt.want {
				t.Errorf("Expected price %v, got %v", tt.want, price)
			}
		})
	}
}

func TestCandleStore_PriceAsOf_UnknownSeries(t *testing.T) {
	store := NewCandleStore()

	_, ok, err := store.PriceAsOf(context.Background(), "nope", domain.Timeframe1d, 1000)
	if err != nil {
		t.Fatalf("PriceAsOf failed: %v", err)
	}
	if ok {
		t.Error("Expected absent price for unknown series")
	}
}

func TestCandleStore_Range(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	minTS, maxTS, count, err := store.Range(ctx, "pump", domain.Timeframe1d)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if minTS != 0 || maxTS != 0 || count != 0 {
		t.Errorf("Expected empty range, got min=%d max=%d count=%d", minTS, maxTS, count)
	}

	if _, err := store.Upsert(ctx, "pump", domain.Timeframe1d, []*domain.Candle{
		mkCandle(86400, 1.0),
		mkCandle(172800, 1.1),
		mkCandle(259200, 1.2),
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	minTS, maxTS, count, err = store.Range(ctx, "pump", domain.Timeframe1d)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if minTS != 86400 || maxTS != 259200 || count != 3 {
		t.Errorf("Expected min=86400 max=259200 count=3, got min=%d max=%d count=%d", minTS, maxTS, count)
	}
}

func TestCandleStore_SeriesAreIndependent(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "pump", domain.Timeframe1m, []*domain.Candle{mkCandle(60, 1.0)}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.Upsert(ctx, "hype", domain.Timeframe1m, []*domain.Candle{mkCandle(60, 9.0)}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	price, ok, _ := store.PriceAsOf(ctx, "pump", domain.Timeframe1m, 60)
	if !ok || price != 1.0 {
		t.Errorf("Expected pump close 1.0, got %v (ok=%v)", price, ok)
	}

	price, ok, _ = store.PriceAsOf(ctx, "hype", domain.Timeframe1m, 60)
	if !ok || price != 9.0 {
		t.Errorf("Expected hype close 9.0, got %v (ok=%v)", price, ok)
	}
}
