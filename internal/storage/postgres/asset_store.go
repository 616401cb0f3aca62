package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// AssetStore implements storage.AssetStore using PostgreSQL.
type AssetStore struct {
	pool *Pool
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(pool *Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

// Upsert inserts or fully replaces an asset by id.
func (s *AssetStore) Upsert(ctx context.Context, a *domain.Asset) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO assets (
			id, name, founder, network, pool_address, listed_id,
			price_source, launch_date, enabled, color, skip_timeframes, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			founder = EXCLUDED.founder,
			network = EXCLUDED.network,
			pool_address = EXCLUDED.pool_address,
			listed_id = EXCLUDED.listed_id,
			price_source = EXCLUDED.price_source,
			launch_date = EXCLUDED.launch_date,
			enabled = EXCLUDED.enabled,
			color = EXCLUDED.color,
			skip_timeframes = EXCLUDED.skip_timeframes,
			updated_at = now()
	`

	skip := make([]string, len(a.SkipTimeframes))
	for i, tf := range a.SkipTimeframes {
		skip[i] = string(tf)
	}

	_, err := s.pool.Exec(ctx, query,
		a.ID,
		a.Name,
		a.Founder,
		a.Network,
		a.PoolAddress,
		a.ListedID,
		string(a.PriceSource),
		a.LaunchDate,
		a.Enabled,
		a.Color,
		skip,
	)
	if err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	return nil
}

// GetByID retrieves an asset by id. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByID(ctx context.Context, assetID string) (*domain.Asset, error) {
	query := `
		SELECT id, name, founder, network, pool_address, listed_id,
		       price_source, launch_date, enabled, color, skip_timeframes
		FROM assets
		WHERE id = $1
	`

	a, err := scanAsset(s.pool.QueryRow(ctx, query, assetID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset by id: %w", err)
	}
	return a, nil
}

// ListEnabled retrieves all enabled assets ordered by id.
func (s *AssetStore) ListEnabled(ctx context.Context) ([]*domain.Asset, error) {
	return s.listWhere(ctx, "WHERE enabled = true")
}

// ListAll retrieves every asset ordered by id.
func (s *AssetStore) ListAll(ctx context.Context) ([]*domain.Asset, error) {
	return s.listWhere(ctx, "")
}

func (s *AssetStore) listWhere(ctx context.Context, where string) ([]*domain.Asset, error) {
	query := `
		SELECT id, name, founder, network, pool_address, listed_id,
		       price_source, launch_date, enabled, color, skip_timeframes
		FROM assets
	` + where + `
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}
	return assets, nil
}

func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var a domain.Asset
	var priceSource string
	var skip []string

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Founder,
		&a.Network,
		&a.PoolAddress,
		&a.ListedID,
		&priceSource,
		&a.LaunchDate,
		&a.Enabled,
		&a.Color,
		&skip,
	)
	if err != nil {
		return nil, err
	}

	a.PriceSource = domain.PriceSource(priceSource)
	a.SkipTimeframes = make([]domain.Timeframe, len(skip))
	for i, tf := range skip {
		a.SkipTimeframes[i] = domain.Timeframe(tf)
	}
	return &a, nil
}
