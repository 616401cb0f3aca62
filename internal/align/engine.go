// Package align joins founder posts with the price prevailing at and
// after each post's timestamp. The join is derived on demand from
// current store state; nothing here is persisted.
package align

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// Default lookup offsets after each post.
const (
	DefaultOffset1 = int64(time.Hour / time.Second)
	DefaultOffset2 = int64(24 * time.Hour / time.Second)
)

// Options configures an Align call.
type Options struct {
	// Offset1 and Offset2 are the after-event lookup offsets in seconds.
	// Zero values fall back to +1h and +24h.
	Offset1 int64
	Offset2 int64
}

// Engine computes aligned events from the candle and post stores.
type Engine struct {
	candles storage.CandleStore
	posts   storage.PostStore
}

// NewEngine creates a new alignment engine.
func NewEngine(candles storage.CandleStore, posts storage.PostStore) *Engine {
	return &Engine{candles: candles, posts: posts}
}

// Align produces one AlignedEvent per stored post of the asset, ordered
// by created_at ascending. The timeframe is resolved once per call: the
// finest timeframe with any stored data, in preference order. The whole
// series is loaded once and every lookup is a local binary search, so
// one call costs one series read plus one post read regardless of how
// many posts and offsets there are.
//
// A post before the first stored candle gets absent prices; that is a
// normal outcome for assets whose post history predates price tracking,
// not an error.
func (e *Engine) Align(ctx context.Context, asset *domain.Asset, opts Options) ([]*domain.AlignedEvent, error) {
	offset1 := opts.Offset1
	if offset1 == 0 {
		offset1 = DefaultOffset1
	}
	offset2 := opts.Offset2
	if offset2 == 0 {
		offset2 = DefaultOffset2
	}

	timeframe, series, err := e.resolveSeries(ctx, asset)
	if err != nil {
		return nil, err
	}

	posts, err := e.posts.ListSince(ctx, asset.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("list posts for %s: %w", asset.ID, err)
	}

	events := make([]*domain.AlignedEvent, 0, len(posts))
	for _, post := range posts {
		// Ingestion already filters pre-launch posts; re-check in case
		// older stored data predates the filter.
		if post.CreatedAt < asset.LaunchDate {
			continue
		}

		ev := &domain.AlignedEvent{
			PostID:      post.ID,
			AssetID:     asset.ID,
			Timestamp:   post.CreatedAt,
			Text:        post.Text,
			Likes:       post.Likes,
			Reposts:     post.Reposts,
			Replies:     post.Replies,
			Impressions: post.Impressions,
			Timeframe:   timeframe,
		}

		ev.PriceAtEvent = series.closeAsOf(post.CreatedAt)
		ev.PriceAfter1 = series.closeAsOf(post.CreatedAt + offset1)
		ev.PriceAfter2 = series.closeAsOf(post.CreatedAt + offset2)
		ev.Change1Pct = pctChange(ev.PriceAtEvent, ev.PriceAfter1)
		ev.Change2Pct = pctChange(ev.PriceAtEvent, ev.PriceAfter2)

		events = append(events, ev)
	}
	return events, nil
}

// ResolveTimeframe returns the timeframe Align would use for an asset:
// the first in preference order with any stored candles, falling back
// to the coarsest when the asset has no data at all.
func (e *Engine) ResolveTimeframe(ctx context.Context, asset *domain.Asset) (domain.Timeframe, error) {
	tf, _, err := e.resolveSeries(ctx, asset)
	return tf, err
}

// resolveSeries picks the timeframe once per call and loads its full
// series, sorted ascending.
func (e *Engine) resolveSeries(ctx context.Context, asset *domain.Asset) (domain.Timeframe, priceSeries, error) {
	for _, tf := range domain.TimeframePreference {
		_, _, count, err := e.candles.Range(ctx, asset.ID, tf)
		if err != nil {
			return "", nil, fmt.Errorf("range %s/%s: %w", asset.ID, tf, err)
		}
		if count == 0 {
			continue
		}
		candles, err := e.candles.GetByAsset(ctx, asset.ID, tf)
		if err != nil {
			return "", nil, fmt.Errorf("load series %s/%s: %w", asset.ID, tf, err)
		}
		return tf, newPriceSeries(candles), nil
	}
	// No data in any timeframe: every lookup will be absent.
	return domain.Timeframe1d, nil, nil
}

// priceSeries is a candle series prepared for binary-search lookups,
// sorted by timestamp ascending.
type priceSeries []*domain.Candle

func newPriceSeries(candles []*domain.Candle) priceSeries {
	s := priceSeries(candles)
	sort.Slice(s, func(i, j int) bool { return s[i].Timestamp < s[j].Timestamp })
	return s
}

// closeAsOf returns the close of the latest candle at or before ts, or
// nil when ts precedes the first candle or the series is empty.
func (s priceSeries) closeAsOf(ts int64) *float64 {
	// First index with timestamp > ts; the candidate is the one before.
	i := sort.Search(len(s), func(i int) bool { return s[i].Timestamp > ts })
	if i == 0 {
		return nil
	}
	price := s[i-1].Close
	return &price
}

// pctChange returns (later-base)/base*100, or nil when either price is
// absent or the base is zero.
func pctChange(base, later *float64) *float64 {
	if base == nil || later == nil || *base == 0 {
		return nil
	}
	change := (*later - *base) / *base * 100
	return &change
}
