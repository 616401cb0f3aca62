package ingestion

import (
	"context"

	"pulsetrack/internal/domain"
)

// PostPage is one page of founder posts from an upstream feed, newest
// record last. NextToken is the opaque continuation handed back on the
// next call; empty means the feed is exhausted.
type PostPage struct {
	Posts     []*domain.Post
	NextToken string
}

// PostSource provides founder posts from an external, paginated source.
type PostSource interface {
	// FetchSince returns posts with id newer than sinceID (everything
	// when sinceID is empty), one page at a time. pageToken is "" on the
	// first call and the previous page's NextToken afterwards.
	FetchSince(ctx context.Context, asset *domain.Asset, sinceID, pageToken string) (*PostPage, error)
}

// CandlePage is one page of candles walking backwards in time, newest
// first. OldestTimestamp is the earliest candle in the page and seeds
// the next backward request; NextToken empty means history is exhausted.
type CandlePage struct {
	Candles   []*domain.Candle
	NextToken string
}

// CandleSource provides OHLCV candles from an external, paginated source.
type CandleSource interface {
	// FetchBefore returns candles with timestamp < beforeTS (the newest
	// available when beforeTS is 0), one page at a time walking backwards.
	FetchBefore(ctx context.Context, asset *domain.Asset, timeframe domain.Timeframe, beforeTS int64, pageToken string) (*CandlePage, error)
}
