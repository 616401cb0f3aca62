// Package validate audits candle store completeness against the count
// expected from each asset's launch date. It encodes the correctness
// contract ingestion must satisfy: every timeframe interval since
// launch should have produced exactly one candle.
package validate

import (
	"context"
	"fmt"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// Coverage thresholds. Below the minimum is a failure; above the
// maximum suggests duplicate data.
const (
	MinCoverageRatio = 0.95
	MaxCoverageRatio = 1.05
)

// Status classifies one timeframe's coverage.
type Status string

const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
)

// Gap is a run of missing candles between two stored neighbors.
type Gap struct {
	FromTimestamp int64 `json:"from_timestamp"` // last candle before the gap
	ToTimestamp   int64 `json:"to_timestamp"`   // first candle after the gap
	Missing       int   `json:"missing"`        // candles expected in between
}

// TimeframeReport is the coverage verdict for one (asset, timeframe),
// including the stored series bounds.
type TimeframeReport struct {
	Timeframe      domain.Timeframe `json:"timeframe"`
	Status         Status           `json:"status"`
	Expected       int64            `json:"expected"`
	Actual         int              `json:"actual"`
	FirstTimestamp int64            `json:"first_timestamp"`
	LastTimestamp  int64            `json:"last_timestamp"`
	CoverageRatio  float64          `json:"coverage_ratio"`
	Gaps           []Gap            `json:"gaps,omitempty"`
	Issues         []string         `json:"issues,omitempty"`
}

// AssetReport aggregates the per-timeframe verdicts of one asset.
// Passed is true iff no timeframe reports FAIL; skipped timeframes are
// neutral and never affect it.
type AssetReport struct {
	AssetID    string            `json:"asset_id"`
	Timeframes []TimeframeReport `json:"timeframes"`
	Passed     bool              `json:"passed"`
}

// Validator checks coverage against the candle store. Read-only and
// safe to run concurrently with ingestion: it reports on whatever is
// committed at the time of the call.
type Validator struct {
	candles storage.CandleStore
}

// NewValidator creates a new Validator.
func NewValidator(candles storage.CandleStore) *Validator {
	return &Validator{candles: candles}
}

// ValidateAsset validates every timeframe of an asset at the given
// instant. Exempt timeframes (config or age) report SKIP.
func (v *Validator) ValidateAsset(ctx context.Context, asset *domain.Asset, now int64) (*AssetReport, error) {
	report := &AssetReport{AssetID: asset.ID, Passed: true}
	for _, tf := range domain.TimeframePreference {
		tr, err := v.ValidateTimeframe(ctx, asset, tf, now)
		if err != nil {
			return nil, err
		}
		if tr.Status == StatusFail {
			report.Passed = false
		}
		report.Timeframes = append(report.Timeframes, *tr)
	}
	return report, nil
}

// ValidateTimeframe computes the coverage verdict for one timeframe.
// Missing data is a reportable status, never an error; only store
// failures surface as errors.
func (v *Validator) ValidateTimeframe(ctx context.Context, asset *domain.Asset, tf domain.Timeframe, now int64) (*TimeframeReport, error) {
	report := &TimeframeReport{Timeframe: tf}

	if asset.SkipsTimeframe(tf, now) {
		report.Status = StatusSkip
		report.CoverageRatio = 1.0
		return report, nil
	}

	interval := tf.IntervalSeconds()
	if interval == 0 {
		return nil, fmt.Errorf("unknown timeframe %q", tf)
	}

	minTS, maxTS, count, err := v.candles.Range(ctx, asset.ID, tf)
	if err != nil {
		return nil, fmt.Errorf("range %s/%s: %w", asset.ID, tf, err)
	}

	report.Actual = count
	report.FirstTimestamp = minTS
	report.LastTimestamp = maxTS
	if elapsed := now - asset.LaunchDate; elapsed > 0 {
		report.Expected = elapsed / interval
	}
	if report.Expected > 0 {
		report.CoverageRatio = float64(report.Actual) / float64(report.Expected)
	} else {
		report.CoverageRatio = 1.0
	}

	switch {
	case report.CoverageRatio < MinCoverageRatio:
		report.Status = StatusFail
		report.Issues = append(report.Issues,
			fmt.Sprintf("coverage %.1f%% below %.0f%% threshold",
				report.CoverageRatio*100, MinCoverageRatio*100))
	case count > 0 && minTS < asset.LaunchDate:
		report.Status = StatusWarn
		report.Issues = append(report.Issues, "candles predate launch date")
	case report.CoverageRatio > MaxCoverageRatio:
		report.Status = StatusWarn
		report.Issues = append(report.Issues,
			fmt.Sprintf("coverage %.1f%% above expected, possible duplicate data",
				report.CoverageRatio*100))
	default:
		report.Status = StatusOK
	}

	if count > 0 {
		gaps, err := v.findGaps(ctx, asset.ID, tf, interval)
		if err != nil {
			return nil, err
		}
		report.Gaps = gaps
	}
	return report, nil
}

// findGaps walks the stored series in timestamp order and reports every
// neighbor pair further apart than twice the interval. Gaps are
// informational; only the aggregate ratio fails validation.
func (v *Validator) findGaps(ctx context.Context, assetID string, tf domain.Timeframe, interval int64) ([]Gap, error) {
	candles, err := v.candles.GetByAsset(ctx, assetID, tf)
	if err != nil {
		return nil, fmt.Errorf("load series %s/%s: %w", assetID, tf, err)
	}

	var gaps []Gap
	for i := 1; i < len(candles); i++ {
		delta := candles[i].Timestamp - candles[i-1].Timestamp
		if delta > 2*interval {
			gaps = append(gaps, Gap{
				FromTimestamp: candles[i-1].Timestamp,
				ToTimestamp:   candles[i].Timestamp,
				Missing:       int(delta/interval) - 1,
			})
		}
	}
	return gaps, nil
}
