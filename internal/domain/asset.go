package domain

import "fmt"

// PriceSource identifies where candles for an asset come from.
type PriceSource string

const (
	// SourcePoolAggregator tracks a DEX pool by address.
	SourcePoolAggregator PriceSource = "pool_aggregator"
	// SourceListedAggregator tracks a listed token by aggregator id.
	SourceListedAggregator PriceSource = "listed_aggregator"
)

// Asset is one tracked token with its founder account and launch date.
// Corresponds to the assets table.
type Asset struct {
	ID          string      // unique, immutable identifier
	Name        string      // display name
	Founder     string      // founder social handle (without @)
	Network     string      // chain the token lives on
	PoolAddress string      // DEX pool address, set iff SourcePoolAggregator
	ListedID    string      // aggregator token id, set iff SourceListedAggregator
	PriceSource PriceSource
	LaunchDate  int64 // Unix seconds, immutable once set
	Enabled     bool
	Color       string // display only

	// Timeframes excluded from fetching and validation regardless of age.
	SkipTimeframes []Timeframe
}

// Validate checks the asset invariants: non-empty identity, a known
// price source, and exactly one of pool address / listed id set,
// consistent with that source.
func (a *Asset) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("asset id is required")
	}
	if a.Founder == "" {
		return fmt.Errorf("asset %s: founder handle is required", a.ID)
	}
	if a.LaunchDate <= 0 {
		return fmt.Errorf("asset %s: launch date is required", a.ID)
	}
	switch a.PriceSource {
	case SourcePoolAggregator:
		if a.PoolAddress == "" {
			return fmt.Errorf("asset %s: pool_aggregator source requires pool address", a.ID)
		}
		if a.ListedID != "" {
			return fmt.Errorf("asset %s: pool_aggregator source must not set listed id", a.ID)
		}
	case SourceListedAggregator:
		if a.ListedID == "" {
			return fmt.Errorf("asset %s: listed_aggregator source requires listed id", a.ID)
		}
		if a.PoolAddress != "" {
			return fmt.Errorf("asset %s: listed_aggregator source must not set pool address", a.ID)
		}
	default:
		return fmt.Errorf("asset %s: unknown price source %q", a.ID, a.PriceSource)
	}
	for _, tf := range a.SkipTimeframes {
		if !tf.Valid() {
			return fmt.Errorf("asset %s: unknown skip timeframe %q", a.ID, tf)
		}
	}
	return nil
}
