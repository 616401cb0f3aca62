package memory

import (
	"context"
	"errors"
	"testing"

	"pulsetrack/internal/storage"
)

func strPtr(s string) *string { return &s }
func tsPtr(ts int64) *int64   { return &ts }

func TestCursorStore_GetBeforeMerge(t *testing.T) {
	store := NewCursorStore()

	_, err := store.Get(context.Background(), "pump", storage.DataTypePosts)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound before first merge, got %v", err)
	}
}

func TestCursorStore_MergeCreatesAndAdvances(t *testing.T) {
	store := NewCursorStore()
	ctx := context.Background()

	regressed, err := store.Merge(ctx, "pump", storage.DataTypePosts, storage.CursorUpdate{
		LastID: strPtr("1000"),
	})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if regressed {
		t.Error("First merge should not regress")
	}

	regressed, err = store.Merge(ctx, "pump", storage.DataTypePosts, storage.CursorUpdate{
		LastID: strPtr("1005"),
	})
	if err != nil || regressed {
		t.Fatalf("Forward merge failed: regressed=%v err=%v", regressed, err)
	}

	c, err := store.Get(ctx, "pump", storage.DataTypePosts)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c.LastID != "1005" {
		t.Errorf("Expected last id 1005, got %s", c.LastID)
	}
}

func TestCursorStore_MergeIsMonotonic(t *testing.T) {
	store := NewCursorStore()
	ctx := context.Background()

	if _, err := store.Merge(ctx, "pump", storage.DataTypeCandles1m, storage.CursorUpdate{
		LastTimestamp: tsPtr(5000),
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// An older timestamp never regresses the stored value.
	regressed, err := store.Merge(ctx, "pump", storage.DataTypeCandles1m, storage.CursorUpdate{
		LastTimestamp: tsPtr(3000),
	})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !regressed {
		t.Error("Expected regression to be reported")
	}

	c, _ := store.Get(ctx, "pump", storage.DataTypeCandles1m)
	if c.LastTimestamp != 5000 {
		t.Errorf("Stored timestamp regressed: got %d", c.LastTimestamp)
	}
}

func TestCursorStore_NilFieldDoesNotClobber(t *testing.T) {
	store := NewCursorStore()
	ctx := context.Background()

	if _, err := store.Merge(ctx, "pump", storage.DataTypePosts, storage.CursorUpdate{
		LastID:        strPtr("1000"),
		LastTimestamp: tsPtr(5000),
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// Timestamp-only update must leave last_id intact.
	if _, err := store.Merge(ctx, "pump", storage.DataTypePosts, storage.CursorUpdate{
		LastTimestamp: tsPtr(6000),
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	c, _ := store.Get(ctx, "pump", storage.DataTypePosts)
	if c.LastID != "1000" {
		t.Errorf("Nil last_id clobbered stored value: got %q", c.LastID)
	}
	if c.LastTimestamp != 6000 {
		t.Errorf("Expected timestamp 6000, got %d", c.LastTimestamp)
	}
}

func TestCursorStore_ShorterIDIsOlder(t *testing.T) {
	store := NewCursorStore()
	ctx := context.Background()

	if _, err := store.Merge(ctx, "pump", storage.DataTypePosts, storage.CursorUpdate{
		LastID: strPtr("100"),
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// Snowflake-style ids grow in length over time: "99" predates "100".
	regressed, err := store.Merge(ctx, "pump", storage.DataTypePosts, storage.CursorUpdate{
		LastID: strPtr("99"),
	})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !regressed {
		t.Error("Expected shorter id to be treated as older")
	}

	c, _ := store.Get(ctx, "pump", storage.DataTypePosts)
	if c.LastID != "100" {
		t.Errorf("Expected last id 100, got %s", c.LastID)
	}
}

func TestCursorStore_CursorsAreIndependent(t *testing.T) {
	store := NewCursorStore()
	ctx := context.Background()

	if _, err := store.Merge(ctx, "pump", storage.DataTypePosts, storage.CursorUpdate{LastID: strPtr("1")}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if _, err := store.Merge(ctx, "pump", storage.DataTypeCandles1d, storage.CursorUpdate{LastTimestamp: tsPtr(100)}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	_, err := store.Get(ctx, "hype", storage.DataTypePosts)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other asset, got %v", err)
	}

	c, _ := store.Get(ctx, "pump", storage.DataTypeCandles1d)
	if c.LastID != "" || c.LastTimestamp != 100 {
		t.Errorf("Candle cursor polluted: %+v", c)
	}
}
