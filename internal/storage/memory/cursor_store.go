package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pulsetrack/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu   sync.RWMutex
	data map[string]*storage.Cursor

	// now is overridable for tests.
	now func() int64
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		data: make(map[string]*storage.Cursor),
		now:  func() int64 { return time.Now().Unix() },
	}
}

var _ storage.CursorStore = (*CursorStore)(nil)

func cursorKey(assetID string, dataType storage.DataType) string {
	return fmt.Sprintf("%s|%s", assetID, dataType)
}

// Get retrieves a cursor. Returns ErrNotFound before the first merge.
func (s *CursorStore) Get(_ context.Context, assetID string, dataType storage.DataType) (*storage.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[cursorKey(assetID, dataType)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cursorCopy := *c
	return &cursorCopy, nil
}

// Merge folds a partial update into the stored cursor, creating it if
// absent. Nil fields never clobber and stored values never regress.
func (s *CursorStore) Merge(_ context.Context, assetID string, dataType storage.DataType, update storage.CursorUpdate) (bool, error) {
	if assetID == "" || dataType == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := cursorKey(assetID, dataType)
	c, ok := s.data[key]
	if !ok {
		c = &storage.Cursor{AssetID: assetID, DataType: dataType}
		s.data[key] = c
	}

	regressed := c.Apply(update)
	c.UpdatedAt = s.now()
	return regressed, nil
}
