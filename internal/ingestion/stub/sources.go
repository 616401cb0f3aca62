// Package stub provides fixed in-memory ingestion sources for tests
// and offline runs.
package stub

import (
	"context"
	"sort"
	"strconv"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/ingestion"
)

// PostSource serves a fixed set of posts, paginated oldest-first the
// way a since_id feed behaves. Implements ingestion.PostSource.
type PostSource struct {
	posts    []*domain.Post
	pageSize int
}

// NewPostSource creates a stub post source. Posts may be given in any
// order; pages are served oldest-first.
func NewPostSource(posts []*domain.Post, pageSize int) *PostSource {
	if pageSize <= 0 {
		pageSize = 100
	}
	sorted := make([]*domain.Post, len(posts))
	copy(sorted, posts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt != sorted[j].CreatedAt {
			return sorted[i].CreatedAt < sorted[j].CreatedAt
		}
		return olderID(sorted[i].ID, sorted[j].ID)
	})
	return &PostSource{posts: sorted, pageSize: pageSize}
}

// FetchSince returns one page of posts newer than sinceID.
func (s *PostSource) FetchSince(_ context.Context, asset *domain.Asset, sinceID, pageToken string) (*ingestion.PostPage, error) {
	start := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, err
		}
		start = n
	}

	var matched []*domain.Post
	for _, p := range s.posts {
		if p.AssetID != asset.ID {
			continue
		}
		if sinceID != "" && !olderID(sinceID, p.ID) {
			continue
		}
		matched = append(matched, p)
	}

	if start >= len(matched) {
		return &ingestion.PostPage{}, nil
	}
	end := start + s.pageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := &ingestion.PostPage{}
	for _, p := range matched[start:end] {
		cp := *p
		page.Posts = append(page.Posts, &cp)
	}
	if end < len(matched) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

// CandleSource serves a fixed set of candles, paginated newest-first
// the way a before-timestamp feed behaves. Implements
// ingestion.CandleSource.
type CandleSource struct {
	candles  []*domain.Candle
	pageSize int
}

// NewCandleSource creates a stub candle source.
func NewCandleSource(candles []*domain.Candle, pageSize int) *CandleSource {
	if pageSize <= 0 {
		pageSize = 100
	}
	sorted := make([]*domain.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})
	return &CandleSource{candles: sorted, pageSize: pageSize}
}

// FetchBefore returns one page of candles older than beforeTS, newest
// first. beforeTS of 0 starts from the newest available candle.
func (s *CandleSource) FetchBefore(_ context.Context, asset *domain.Asset, timeframe domain.Timeframe, beforeTS int64, _ string) (*ingestion.CandlePage, error) {
	var matched []*domain.Candle
	for _, c := range s.candles {
		if c.AssetID != asset.ID || c.Timeframe != timeframe {
			continue
		}
		if beforeTS != 0 && c.Timestamp >= beforeTS {
			continue
		}
		matched = append(matched, c)
	}

	page := &ingestion.CandlePage{}
	end := s.pageSize
	if end > len(matched) {
		end = len(matched)
	}
	for _, c := range matched[:end] {
		cp := *c
		page.Candles = append(page.Candles, &cp)
	}
	if end < len(matched) {
		page.NextToken = "more"
	}
	return page, nil
}

// olderID mirrors the ledger's snowflake ordering: shorter is older,
// equal lengths compare lexically.
func olderID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
