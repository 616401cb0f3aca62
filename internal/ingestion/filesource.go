package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"pulsetrack/internal/domain"
)

// FileSource serves posts and candles from JSON drop files, one file
// per feed: <dir>/posts_<asset>.json and <dir>/candles_<asset>_<tf>.json.
// It stands in for the upstream HTTP fetchers, which hand their raw
// pages over as files; pagination behaves like the real feeds so the
// cursor discipline is exercised end to end.
type FileSource struct {
	dir      string
	pageSize int
}

// NewFileSource creates a FileSource reading from dir.
func NewFileSource(dir string, pageSize int) *FileSource {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &FileSource{dir: dir, pageSize: pageSize}
}

// Compile-time interface checks.
var (
	_ PostSource   = (*FileSource)(nil)
	_ CandleSource = (*FileSource)(nil)
)

type filePost struct {
	ID          string `json:"id"`
	CreatedAt   int64  `json:"created_at"`
	Text        string `json:"text"`
	Likes       int    `json:"likes"`
	Reposts     int    `json:"reposts"`
	Replies     int    `json:"replies"`
	Impressions int    `json:"impressions"`
}

type fileCandle struct {
	Timestamp int64   `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

// FetchSince returns one page of posts newer than sinceID, oldest first.
// A missing drop file is an empty feed, not an error.
func (s *FileSource) FetchSince(_ context.Context, asset *domain.Asset, sinceID, pageToken string) (*PostPage, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("posts_%s.json", asset.ID))
	var raw []filePost
	if err := readJSONFile(path, &raw); err != nil {
		if os.IsNotExist(err) {
			return &PostPage{}, nil
		}
		return nil, err
	}

	var matched []filePost
	for _, p := range raw {
		if sinceID != "" && !newerPostID(p.ID, sinceID) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt != matched[j].CreatedAt {
			return matched[i].CreatedAt < matched[j].CreatedAt
		}
		return newerPostID(matched[j].ID, matched[i].ID)
	})

	start, err := parsePageToken(pageToken)
	if err != nil {
		return nil, err
	}
	if start >= len(matched) {
		return &PostPage{}, nil
	}
	end := start + s.pageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := &PostPage{}
	for _, p := range matched[start:end] {
		page.Posts = append(page.Posts, &domain.Post{
			ID:          p.ID,
			AssetID:     asset.ID,
			CreatedAt:   p.CreatedAt,
			Text:        p.Text,
			Likes:       p.Likes,
			Reposts:     p.Reposts,
			Replies:     p.Replies,
			Impressions: p.Impressions,
		})
	}
	if end < len(matched) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

// FetchBefore returns one page of candles older than beforeTS, newest
// first, the way a before-timestamp feed paginates.
func (s *FileSource) FetchBefore(_ context.Context, asset *domain.Asset, timeframe domain.Timeframe, beforeTS int64, _ string) (*CandlePage, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("candles_%s_%s.json", asset.ID, timeframe))
	var raw []fileCandle
	if err := readJSONFile(path, &raw); err != nil {
		if os.IsNotExist(err) {
			return &CandlePage{}, nil
		}
		return nil, err
	}

	var matched []fileCandle
	for _, c := range raw {
		if beforeTS != 0 && c.Timestamp >= beforeTS {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})

	end := s.pageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := &CandlePage{}
	for _, c := range matched[:end] {
		page.Candles = append(page.Candles, &domain.Candle{
			AssetID:   asset.ID,
			Timeframe: timeframe,
			Timestamp: c.Timestamp,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	if end < len(matched) {
		page.NextToken = "more"
	}
	return page, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func parsePageToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("bad page token %q: %w", token, err)
	}
	return n, nil
}
