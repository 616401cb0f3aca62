package ingestion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/observability"
	"pulsetrack/internal/storage"
)

// sleepIncrement is how often the daemon sleep re-checks cancellation.
const sleepIncrement = time.Second

// AssetResult is the outcome of one poll cycle for one asset.
type AssetResult struct {
	AssetID string
	Posts   PostResult
	Candles map[domain.Timeframe]CandleResult
	Err     error // per-asset failure; other assets still run
}

// Scheduler runs poll cycles over all enabled assets. It holds no
// business state of its own: each cycle is a pure function of store
// state, and the loop only owns the sleep and the shutdown signal.
type Scheduler struct {
	manager    *Manager
	assetStore storage.AssetStore
	interval   time.Duration
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() int64
}

// SchedulerOptions contains configuration for creating a Scheduler.
type SchedulerOptions struct {
	Manager    *Manager
	AssetStore storage.AssetStore
	Interval   time.Duration // default 5m
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() int64 // clock override for tests
}

// NewScheduler creates a new Scheduler.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Scheduler{
		manager:    opts.Manager,
		assetStore: opts.AssetStore,
		interval:   interval,
		metrics:    opts.Metrics,
		logger:     logger,
		now:        now,
	}
}

// PollOnce runs a single cycle: posts plus every active candle
// timeframe for each enabled asset. A failing asset is recorded in its
// result and does not stop the cycle; only listing the assets can fail
// the cycle as a whole.
func (s *Scheduler) PollOnce(ctx context.Context) ([]AssetResult, error) {
	assets, err := s.assetStore.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	results := make([]AssetResult, 0, len(assets))
	for _, asset := range assets {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		res := s.pollAsset(ctx, asset, now)
		if res.Err != nil {
			s.logger.Error("asset poll failed",
				zap.String("asset", asset.ID), zap.Error(res.Err))
			if s.metrics != nil {
				s.metrics.PollErrors.WithLabelValues(asset.ID).Inc()
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Scheduler) pollAsset(ctx context.Context, asset *domain.Asset, now int64) AssetResult {
	res := AssetResult{
		AssetID: asset.ID,
		Candles: make(map[domain.Timeframe]CandleResult),
	}

	posts, err := s.manager.IngestPosts(ctx, asset)
	res.Posts = posts
	if err != nil {
		res.Err = err
		return res
	}
	if posts.Stored > 0 || posts.Filtered > 0 {
		s.logger.Info("posts ingested",
			zap.String("asset", asset.ID),
			zap.Int("stored", posts.Stored),
			zap.Int("filtered", posts.Filtered))
	}

	for _, tf := range asset.ActiveTimeframes(now) {
		candles, err := s.manager.IngestCandles(ctx, asset, tf)
		res.Candles[tf] = candles
		if err != nil {
			res.Err = err
			return res
		}
		if candles.Accepted > 0 {
			s.logger.Info("candles ingested",
				zap.String("asset", asset.ID),
				zap.String("timeframe", string(tf)),
				zap.Int("accepted", candles.Accepted),
				zap.Int("rejected", candles.Rejected))
		}
	}
	return res
}

// Run polls continuously until the context is cancelled. The sleep
// between cycles is broken into increments so shutdown is never delayed
// by more than one increment.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("poller started", zap.Duration("interval", s.interval))

	for {
		start := time.Now()
		if _, err := s.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("poller stopping")
				return ctx.Err()
			}
			s.logger.Error("poll cycle failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.PollCycles.Inc()
			s.metrics.PollDuration.Observe(time.Since(start).Seconds())
			s.metrics.LastPollCycle.SetToCurrentTime()
		}

		if err := sleepCtx(ctx, s.interval); err != nil {
			s.logger.Info("poller stopping")
			return err
		}
	}
}

// sleepCtx sleeps for d in increments, returning early with the
// context's error on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		step := sleepIncrement
		if remaining < step {
			step = remaining
		}
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
