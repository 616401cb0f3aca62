package memory

import (
	"context"
	"sort"
	"sync"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// PostStore is an in-memory implementation of storage.PostStore.
type PostStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Post // keyed by post id
}

// NewPostStore creates a new in-memory post store.
func NewPostStore() *PostStore {
	return &PostStore{data: make(map[string]*domain.Post)}
}

var _ storage.PostStore = (*PostStore)(nil)

// Upsert inserts new posts and refreshes engagement counters of already
// stored ones. Text and created_at keep their first-insert values.
func (s *PostStore) Upsert(_ context.Context, assetID string, posts []*domain.Post) (int, error) {
	if assetID == "" {
		return 0, storage.ErrInvalidInput
	}
	if len(posts) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, p := range posts {
		if p == nil || p.ID == "" {
			return inserted, storage.ErrInvalidInput
		}
		if existing, ok := s.data[p.ID]; ok {
			existing.Likes = p.Likes
			existing.Reposts = p.Reposts
			existing.Replies = p.Replies
			existing.Impressions = p.Impressions
			continue
		}
		postCopy := *p
		postCopy.AssetID = assetID
		s.data[p.ID] = &postCopy
		inserted++
	}
	return inserted, nil
}

// ListSince retrieves posts with created_at >= minTS, ordered by
// created_at ASC then post id ASC.
func (s *PostStore) ListSince(_ context.Context, assetID string, minTS int64) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Post
	for _, p := range s.data {
		if p.AssetID == assetID && p.CreatedAt >= minTS {
			postCopy := *p
			result = append(result, &postCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Count returns the number of stored posts for an asset.
func (s *PostStore) Count(_ context.Context, assetID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.data {
		if p.AssetID == assetID {
			count++
		}
	}
	return count, nil
}
