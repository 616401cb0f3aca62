package postgres

import (
	"context"
	"fmt"

	"pulsetrack/internal/storage"
)

// CursorStore implements storage.CursorStore using PostgreSQL.
//
// Merge is a read-modify-write inside one transaction with the row
// locked, so the monotonicity rules live in exactly one place
// (storage.Cursor.Apply) and are shared with the memory backend.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new CursorStore.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// Get retrieves a cursor. Returns ErrNotFound before the first merge.
func (s *CursorStore) Get(ctx context.Context, assetID string, dataType storage.DataType) (*storage.Cursor, error) {
	query := `
		SELECT asset_id, data_type, COALESCE(last_id, ''), COALESCE(last_timestamp, 0),
		       EXTRACT(EPOCH FROM updated_at)::bigint
		FROM ingestion_cursors
		WHERE asset_id = $1 AND data_type = $2
	`

	var c storage.Cursor
	var dt string
	err := s.pool.QueryRow(ctx, query, assetID, string(dataType)).Scan(
		&c.AssetID, &dt, &c.LastID, &c.LastTimestamp, &c.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cursor: %w", err)
	}
	c.DataType = storage.DataType(dt)
	return &c, nil
}

// Merge folds a partial update into the stored cursor, creating it if
// absent. Regressing fields are dropped and reported, never applied.
func (s *CursorStore) Merge(ctx context.Context, assetID string, dataType storage.DataType, update storage.CursorUpdate) (bool, error) {
	if assetID == "" || dataType == "" {
		return false, storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Ensure the row exists, then lock it for the merge.
	_, err = tx.Exec(ctx, `
		INSERT INTO ingestion_cursors (asset_id, data_type, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (asset_id, data_type) DO NOTHING
	`, assetID, string(dataType))
	if err != nil {
		return false, fmt.Errorf("ensure cursor row: %w", err)
	}

	c := storage.Cursor{AssetID: assetID, DataType: dataType}
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(last_id, ''), COALESCE(last_timestamp, 0)
		FROM ingestion_cursors
		WHERE asset_id = $1 AND data_type = $2
		FOR UPDATE
	`, assetID, string(dataType)).Scan(&c.LastID, &c.LastTimestamp)
	if err != nil {
		return false, fmt.Errorf("lock cursor row: %w", err)
	}

	regressed := c.Apply(update)

	_, err = tx.Exec(ctx, `
		UPDATE ingestion_cursors
		SET last_id = NULLIF($3, ''), last_timestamp = NULLIF($4, 0), updated_at = now()
		WHERE asset_id = $1 AND data_type = $2
	`, assetID, string(dataType), c.LastID, c.LastTimestamp)
	if err != nil {
		return false, fmt.Errorf("update cursor: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return regressed, nil
}
