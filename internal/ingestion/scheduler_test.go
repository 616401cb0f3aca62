package ingestion_test

import (
	"context"
	"testing"
	"time"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/ingestion"
	"pulsetrack/internal/ingestion/stub"
	"pulsetrack/internal/storage/memory"
)

func TestScheduler_PollOnce(t *testing.T) {
	ctx := context.Background()

	assets := memory.NewAssetStore()
	enabled := testAsset()
	disabled := &domain.Asset{
		ID:          "beta",
		Founder:     "betafounder",
		PoolAddress: "pool-2",
		PriceSource: domain.SourcePoolAggregator,
		LaunchDate:  launch,
		Enabled:     false,
	}
	if err := assets.Upsert(ctx, enabled); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := assets.Upsert(ctx, disabled); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	posts := memory.NewPostStore()
	candles := memory.NewCandleStore()
	cursors := memory.NewCursorStore()
	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		PostSource: stub.NewPostSource([]*domain.Post{
			post("100", launch+100),
			{ID: "200", AssetID: "beta", CreatedAt: launch + 100},
		}, 10),
		CandleSource: stub.NewCandleSource([]*domain.Candle{
			candle(launch+3600, 1.0),
		}, 10),
		PostStore:   posts,
		CandleStore: candles,
		CursorStore: cursors,
	})

	sched := ingestion.NewScheduler(ingestion.SchedulerOptions{
		Manager:    mgr,
		AssetStore: assets,
		Now:        func() int64 { return launch + 86400 },
	})

	results, err := sched.PollOnce(ctx)
	if err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("polled %d assets, want 1 (disabled asset skipped)", len(results))
	}
	if results[0].AssetID != "alpha" || results[0].Err != nil {
		t.Errorf("unexpected result: %+v", results[0])
	}
	if results[0].Posts.Stored != 1 {
		t.Errorf("posts stored = %d, want 1", results[0].Posts.Stored)
	}

	// The disabled asset's posts were never ingested.
	count, err := posts.Count(ctx, "beta")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("disabled asset has %d posts stored", count)
	}

	// One day after launch every timeframe is still active.
	if len(results[0].Candles) != len(domain.TimeframePreference) {
		t.Errorf("candle runs = %d, want %d", len(results[0].Candles), len(domain.TimeframePreference))
	}
}

func TestScheduler_PollOnce_SkipsAgedTimeframes(t *testing.T) {
	ctx := context.Background()

	assets := memory.NewAssetStore()
	if err := assets.Upsert(ctx, testAsset()); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		CandleSource: stub.NewCandleSource(nil, 10),
		CandleStore:  memory.NewCandleStore(),
		CursorStore:  memory.NewCursorStore(),
	})

	// Asset is a year old: 1m and 15m are past their retention horizon.
	sched := ingestion.NewScheduler(ingestion.SchedulerOptions{
		Manager:    mgr,
		AssetStore: assets,
		Now:        func() int64 { return launch + 365*86400 },
	})

	results, err := sched.PollOnce(ctx)
	if err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	got := results[0].Candles
	if _, ok := got[domain.Timeframe1m]; ok {
		t.Error("1m should be skipped for an aged asset")
	}
	if _, ok := got[domain.Timeframe15m]; ok {
		t.Error("15m should be skipped for an aged asset")
	}
	if _, ok := got[domain.Timeframe1h]; !ok {
		t.Error("1h should still be fetched")
	}
	if _, ok := got[domain.Timeframe1d]; !ok {
		t.Error("1d should still be fetched")
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	assets := memory.NewAssetStore()
	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		CursorStore: memory.NewCursorStore(),
	})
	sched := ingestion.NewScheduler(ingestion.SchedulerOptions{
		Manager:    mgr,
		AssetStore: assets,
		Interval:   time.Hour,
	})

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
