package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// PostStore implements storage.PostStore using PostgreSQL.
type PostStore struct {
	pool *Pool
}

// NewPostStore creates a new PostStore.
func NewPostStore(pool *Pool) *PostStore {
	return &PostStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PostStore = (*PostStore)(nil)

// Upsert inserts new posts and refreshes engagement counters of already
// stored ones. The conflict clause deliberately leaves text and
// created_at untouched: only counters are merged on refresh.
func (s *PostStore) Upsert(ctx context.Context, assetID string, posts []*domain.Post) (int, error) {
	if assetID == "" {
		return 0, storage.ErrInvalidInput
	}
	if len(posts) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO posts (
			id, asset_id, created_at, text, likes, reposts, replies, impressions, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			likes = EXCLUDED.likes,
			reposts = EXCLUDED.reposts,
			replies = EXCLUDED.replies,
			impressions = EXCLUDED.impressions,
			fetched_at = now()
		RETURNING (xmax = 0) AS inserted
	`

	inserted := 0
	for _, p := range posts {
		if p == nil || p.ID == "" {
			return 0, storage.ErrInvalidInput
		}
		var isNew bool
		err := tx.QueryRow(ctx, query,
			p.ID,
			assetID,
			p.CreatedAt,
			p.Text,
			p.Likes,
			p.Reposts,
			p.Replies,
			p.Impressions,
		).Scan(&isNew)
		if err != nil {
			return 0, fmt.Errorf("upsert post %s: %w", p.ID, err)
		}
		if isNew {
			inserted++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// ListSince retrieves posts with created_at >= minTS, ordered by
// created_at ASC then post id ASC.
func (s *PostStore) ListSince(ctx context.Context, assetID string, minTS int64) ([]*domain.Post, error) {
	query := `
		SELECT id, asset_id, created_at, text, likes, reposts, replies, impressions
		FROM posts
		WHERE asset_id = $1 AND created_at >= $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, assetID, minTS)
	if err != nil {
		return nil, fmt.Errorf("list posts since: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// Count returns the number of stored posts for an asset.
func (s *PostStore) Count(ctx context.Context, assetID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE asset_id = $1`, assetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func scanPosts(rows pgx.Rows) ([]*domain.Post, error) {
	var posts []*domain.Post

	for rows.Next() {
		var p domain.Post

		err := rows.Scan(
			&p.ID,
			&p.AssetID,
			&p.CreatedAt,
			&p.Text,
			&p.Likes,
			&p.Reposts,
			&p.Replies,
			&p.Impressions,
		)
		if err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		posts = append(posts, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post rows: %w", err)
	}
	return posts, nil
}
