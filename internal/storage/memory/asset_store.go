package memory

import (
	"context"
	"sort"
	"sync"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// AssetStore is an in-memory implementation of storage.AssetStore.
type AssetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Asset
}

// NewAssetStore creates a new in-memory asset store.
func NewAssetStore() *AssetStore {
	return &AssetStore{data: make(map[string]*domain.Asset)}
}

var _ storage.AssetStore = (*AssetStore)(nil)

// Upsert inserts or fully replaces an asset by id.
func (s *AssetStore) Upsert(_ context.Context, a *domain.Asset) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	assetCopy := *a
	s.data[a.ID] = &assetCopy
	return nil
}

// GetByID retrieves an asset by id.
func (s *AssetStore) GetByID(_ context.Context, assetID string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[assetID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	assetCopy := *a
	return &assetCopy, nil
}

// ListEnabled retrieves all enabled assets ordered by id.
func (s *AssetStore) ListEnabled(ctx context.Context) ([]*domain.Asset, error) {
	return s.list(func(a *domain.Asset) bool { return a.Enabled })
}

// ListAll retrieves every asset ordered by id.
func (s *AssetStore) ListAll(ctx context.Context) ([]*domain.Asset, error) {
	return s.list(func(*domain.Asset) bool { return true })
}

func (s *AssetStore) list(keep func(*domain.Asset) bool) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Asset
	for _, a := range s.data {
		if keep(a) {
			assetCopy := *a
			result = append(result, &assetCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}
