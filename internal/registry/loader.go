// Package registry loads the tracked-asset file and syncs it into the
// asset store at startup.
package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// File is the on-disk asset registry.
type File struct {
	Assets []Entry `yaml:"assets"`
}

// Entry is one asset definition as written in the registry file.
type Entry struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Founder        string   `yaml:"founder"`
	Network        string   `yaml:"network"`
	PoolAddress    string   `yaml:"pool_address"`
	ListedID       string   `yaml:"listed_id"`
	PriceSource    string   `yaml:"price_source"`
	LaunchDate     string   `yaml:"launch_date"`
	Enabled        *bool    `yaml:"enabled"`
	Color          string   `yaml:"color"`
	SkipTimeframes []string `yaml:"skip_timeframes"`
}

// Load reads and parses a registry file, converting every entry into a
// validated domain asset. A single malformed entry fails the whole load:
// a partially applied registry is worse than a loud startup error.
func Load(path string) ([]*domain.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset registry: %w", err)
	}
	return Parse(data)
}

// Parse converts raw registry YAML into validated domain assets.
func Parse(data []byte) ([]*domain.Asset, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse asset registry: %w", err)
	}
	if len(file.Assets) == 0 {
		return nil, fmt.Errorf("asset registry has no assets")
	}

	seen := make(map[string]struct{}, len(file.Assets))
	assets := make([]*domain.Asset, 0, len(file.Assets))
	for i, entry := range file.Assets {
		asset, err := entry.toAsset()
		if err != nil {
			return nil, fmt.Errorf("asset entry %d: %w", i, err)
		}
		if _, dup := seen[asset.ID]; dup {
			return nil, fmt.Errorf("asset entry %d: duplicate id %q", i, asset.ID)
		}
		seen[asset.ID] = struct{}{}
		assets = append(assets, asset)
	}
	return assets, nil
}

// Sync upserts every asset into the store. Existing rows are fully
// replaced by id; the registry file is the source of truth for config.
func Sync(ctx context.Context, store storage.AssetStore, assets []*domain.Asset) error {
	for _, asset := range assets {
		if err := store.Upsert(ctx, asset); err != nil {
			return fmt.Errorf("upsert asset %s: %w", asset.ID, err)
		}
	}
	return nil
}

func (e Entry) toAsset() (*domain.Asset, error) {
	launch, err := parseLaunchDate(e.LaunchDate)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", e.ID, err)
	}

	skip := make([]domain.Timeframe, 0, len(e.SkipTimeframes))
	for _, tf := range e.SkipTimeframes {
		skip = append(skip, domain.Timeframe(tf))
	}

	// Enabled defaults to true when omitted.
	enabled := true
	if e.Enabled != nil {
		enabled = *e.Enabled
	}

	asset := &domain.Asset{
		ID:             e.ID,
		Name:           e.Name,
		Founder:        e.Founder,
		Network:        e.Network,
		PoolAddress:    e.PoolAddress,
		ListedID:       e.ListedID,
		PriceSource:    domain.PriceSource(e.PriceSource),
		LaunchDate:     launch,
		Enabled:        enabled,
		Color:          e.Color,
		SkipTimeframes: skip,
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	return asset, nil
}

// parseLaunchDate accepts RFC3339 or a bare UTC date.
func parseLaunchDate(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("launch_date is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("launch_date %q: want RFC3339 or YYYY-MM-DD", s)
}
