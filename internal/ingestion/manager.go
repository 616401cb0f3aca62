// Package ingestion pulls posts and candles from paginated upstream
// sources into storage under the ledger's cursor discipline: each page
// is committed before the cursor advances, so an interrupted fetch
// resumes from the last fully committed page and re-fetches at most one
// page (idempotent because the stores upsert).
package ingestion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/observability"
	"pulsetrack/internal/storage"
)

// defaultMaxPages bounds a single ingestion run per feed so one asset
// with deep history cannot starve a poll cycle.
const defaultMaxPages = 50

// Manager orchestrates ingestion from sources to storage.
type Manager struct {
	postSource   PostSource
	candleSource CandleSource

	postStore   storage.PostStore
	candleStore storage.CandleStore
	cursorStore storage.CursorStore

	metrics  *observability.Metrics
	logger   *zap.Logger
	maxPages int
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	PostSource   PostSource
	CandleSource CandleSource

	PostStore   storage.PostStore
	CandleStore storage.CandleStore
	CursorStore storage.CursorStore

	Metrics  *observability.Metrics // optional
	Logger   *zap.Logger            // optional
	MaxPages int                    // default 50
}

// NewManager creates a new ingestion manager with the provided sources and stores.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &Manager{
		postSource:   opts.PostSource,
		candleSource: opts.CandleSource,
		postStore:    opts.PostStore,
		candleStore:  opts.CandleStore,
		cursorStore:  opts.CursorStore,
		metrics:      opts.Metrics,
		logger:       logger,
		maxPages:     maxPages,
	}
}

// PostResult summarizes one post ingestion run for an asset.
type PostResult struct {
	Fetched  int // posts returned by the source
	Stored   int // newly inserted posts
	Filtered int // pre-launch posts excluded from storage
	Pages    int // fully committed pages
}

// CandleResult summarizes one candle ingestion run for an (asset, timeframe).
type CandleResult struct {
	Fetched  int
	Accepted int
	Rejected int
	Pages    int
}

// IngestPosts fetches founder posts newer than the ledger cursor and
// stores them, walking forward page by page. Pre-launch posts are
// counted and dropped; they still advance the cursor because the
// launch-date exclusion is permanent and re-fetching them is pure waste.
func (m *Manager) IngestPosts(ctx context.Context, asset *domain.Asset) (PostResult, error) {
	var res PostResult
	if m.postSource == nil || m.postStore == nil {
		return res, nil
	}

	sinceID := ""
	cursor, err := m.cursorStore.Get(ctx, asset.ID, storage.DataTypePosts)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return res, fmt.Errorf("get posts cursor: %w", err)
	}
	if cursor != nil {
		sinceID = cursor.LastID
	}

	pageToken := ""
	for page := 0; page < m.maxPages; page++ {
		p, err := m.postSource.FetchSince(ctx, asset, sinceID, pageToken)
		if err != nil {
			return res, fmt.Errorf("fetch posts page: %w", err)
		}
		if p == nil || len(p.Posts) == 0 {
			break
		}
		res.Fetched += len(p.Posts)

		keep := make([]*domain.Post, 0, len(p.Posts))
		var newestID string
		var newestTS int64
		for _, post := range p.Posts {
			if post == nil {
				continue
			}
			if newerPostID(post.ID, newestID) {
				newestID = post.ID
			}
			if post.CreatedAt > newestTS {
				newestTS = post.CreatedAt
			}
			if post.CreatedAt < asset.LaunchDate {
				res.Filtered++
				continue
			}
			keep = append(keep, post)
		}

		inserted, err := m.postStore.Upsert(ctx, asset.ID, keep)
		if err != nil {
			return res, fmt.Errorf("store posts page: %w", err)
		}
		res.Stored += inserted

		if err := m.mergeCursor(ctx, asset.ID, storage.DataTypePosts, storage.CursorUpdate{
			LastID:        &newestID,
			LastTimestamp: &newestTS,
		}); err != nil {
			return res, err
		}
		res.Pages++

		pageToken = p.NextToken
		if pageToken == "" {
			break
		}
	}

	if m.metrics != nil {
		m.metrics.PostsFetched.WithLabelValues(asset.ID).Add(float64(res.Fetched))
		m.metrics.PostsStored.WithLabelValues(asset.ID).Add(float64(res.Stored))
		m.metrics.PostsFiltered.WithLabelValues(asset.ID).Add(float64(res.Filtered))
	}
	return res, nil
}

// IngestCandles walks a candle feed backwards from the newest available
// candle down to the ledger cursor (or the asset launch date on a first
// run), committing page by page. The cursor is merged only once the
// walk completes; an interrupted walk resumes from the previous cursor
// and re-fetches, which the store upsert makes idempotent.
func (m *Manager) IngestCandles(ctx context.Context, asset *domain.Asset, timeframe domain.Timeframe) (CandleResult, error) {
	var res CandleResult
	if m.candleSource == nil || m.candleStore == nil {
		return res, nil
	}

	dataType := storage.CandleDataType(string(timeframe))
	lowerBound := asset.LaunchDate
	cursor, err := m.cursorStore.Get(ctx, asset.ID, dataType)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return res, fmt.Errorf("get candles cursor: %w", err)
	}
	if cursor != nil && cursor.LastTimestamp > lowerBound {
		lowerBound = cursor.LastTimestamp
	}

	var beforeTS int64
	var newestSeen int64
	pageToken := ""
	for page := 0; page < m.maxPages; page++ {
		p, err := m.candleSource.FetchBefore(ctx, asset, timeframe, beforeTS, pageToken)
		if err != nil {
			return res, fmt.Errorf("fetch candles page: %w", err)
		}
		if p == nil || len(p.Candles) == 0 {
			break
		}
		res.Fetched += len(p.Candles)

		keep := make([]*domain.Candle, 0, len(p.Candles))
		var oldestInPage int64
		reachedBound := false
		for _, c := range p.Candles {
			if c == nil {
				keep = append(keep, c) // counted as rejected by the store
				continue
			}
			if c.Timestamp > newestSeen {
				newestSeen = c.Timestamp
			}
			if oldestInPage == 0 || c.Timestamp < oldestInPage {
				oldestInPage = c.Timestamp
			}
			if c.Timestamp < lowerBound {
				reachedBound = true
				continue
			}
			keep = append(keep, c)
		}

		stored, err := m.candleStore.Upsert(ctx, asset.ID, timeframe, keep)
		if err != nil {
			return res, fmt.Errorf("store candles page: %w", err)
		}
		res.Accepted += stored.Accepted
		res.Rejected += stored.Rejected
		res.Pages++

		pageToken = p.NextToken
		if reachedBound || pageToken == "" {
			break
		}
		beforeTS = oldestInPage
	}

	if newestSeen > 0 {
		if err := m.mergeCursor(ctx, asset.ID, dataType, storage.CursorUpdate{
			LastTimestamp: &newestSeen,
		}); err != nil {
			return res, err
		}
	}

	if m.metrics != nil {
		m.metrics.CandlesAccepted.WithLabelValues(asset.ID, string(timeframe)).Add(float64(res.Accepted))
		m.metrics.CandlesRejected.WithLabelValues(asset.ID, string(timeframe)).Add(float64(res.Rejected))
	}
	return res, nil
}

// mergeCursor folds an update into the ledger, logging and counting a
// regression instead of applying it.
func (m *Manager) mergeCursor(ctx context.Context, assetID string, dataType storage.DataType, update storage.CursorUpdate) error {
	regressed, err := m.cursorStore.Merge(ctx, assetID, dataType, update)
	if err != nil {
		return fmt.Errorf("merge %s cursor: %w", dataType, err)
	}
	if regressed {
		m.logger.Warn("cursor merge would regress, ignored",
			zap.String("asset", assetID),
			zap.String("data_type", string(dataType)))
		if m.metrics != nil {
			m.metrics.CursorRegressions.WithLabelValues(assetID, string(dataType)).Inc()
		}
	}
	return nil
}

// newerPostID reports whether a is newer than b. Upstream post ids are
// snowflake-style numeric strings, so longer means newer and equal
// lengths compare lexically. Empty b means no id seen yet.
func newerPostID(a, b string) bool {
	if a == "" {
		return false
	}
	if b == "" {
		return true
	}
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
