// Package export writes compact static JSON snapshots of an asset's
// candle series and aligned events, for serving to a frontend without a
// query layer in between.
package export

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pulsetrack/internal/domain"
	"pulsetrack/internal/storage"
)

// candleJSON is the compact wire form: single-letter keys keep the
// files small enough to ship uncompressed.
type candleJSON struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

type pricesFile struct {
	Timeframe string       `json:"timeframe"`
	Count     int          `json:"count"`
	Start     int64        `json:"start"`
	End       int64        `json:"end"`
	Candles   []candleJSON `json:"candles"`
}

type eventJSON struct {
	PostID      string   `json:"post_id"`
	Timestamp   int64    `json:"timestamp"`
	Text        string   `json:"text"`
	Likes       int      `json:"likes"`
	Reposts     int      `json:"reposts"`
	Replies     int      `json:"replies"`
	Impressions int      `json:"impressions"`
	Timeframe   string   `json:"timeframe"`
	PriceAt     *float64 `json:"price_at_event"`
	PriceAfter1 *float64 `json:"price_after_1"`
	PriceAfter2 *float64 `json:"price_after_2"`
	Change1Pct  *float64 `json:"change_1_pct"`
	Change2Pct  *float64 `json:"change_2_pct"`
}

type eventsFile struct {
	GeneratedAt int64       `json:"generated_at"`
	AssetID     string      `json:"asset_id"`
	Count       int         `json:"count"`
	Events      []eventJSON `json:"events"`
}

// Exporter writes static snapshots under a base directory, one
// subdirectory per asset.
type Exporter struct {
	candles  storage.CandleStore
	baseDir  string
	compress bool
	now      func() int64
}

// NewExporter creates an Exporter rooted at baseDir. With compress set,
// price files are gzip-wrapped and suffixed .gz.
func NewExporter(candles storage.CandleStore, baseDir string, compress bool) *Exporter {
	return &Exporter{
		candles:  candles,
		baseDir:  baseDir,
		compress: compress,
		now:      func() int64 { return time.Now().Unix() },
	}
}

// ExportPrices writes prices_<timeframe>.json for one asset and returns
// the number of candles written. An empty series writes nothing.
func (e *Exporter) ExportPrices(ctx context.Context, asset *domain.Asset, tf domain.Timeframe) (int, error) {
	candles, err := e.candles.GetByAsset(ctx, asset.ID, tf)
	if err != nil {
		return 0, fmt.Errorf("load series %s/%s: %w", asset.ID, tf, err)
	}
	if len(candles) == 0 {
		return 0, nil
	}

	out := pricesFile{
		Timeframe: string(tf),
		Count:     len(candles),
		Start:     candles[0].Timestamp,
		End:       candles[len(candles)-1].Timestamp,
		Candles:   make([]candleJSON, 0, len(candles)),
	}
	for _, c := range candles {
		out.Candles = append(out.Candles, candleJSON{
			T: c.Timestamp, O: c.Open, H: c.High, L: c.Low, C: c.Close, V: c.Volume,
		})
	}

	name := fmt.Sprintf("prices_%s.json", tf)
	if err := e.writeJSON(asset.ID, name, out); err != nil {
		return 0, err
	}
	return len(candles), nil
}

// ExportEvents writes post_events.json for one asset from an already
// aligned event sequence.
func (e *Exporter) ExportEvents(asset *domain.Asset, events []*domain.AlignedEvent) error {
	out := eventsFile{
		GeneratedAt: e.now(),
		AssetID:     asset.ID,
		Count:       len(events),
		Events:      make([]eventJSON, 0, len(events)),
	}
	for _, ev := range events {
		out.Events = append(out.Events, eventJSON{
			PostID:      ev.PostID,
			Timestamp:   ev.Timestamp,
			Text:        ev.Text,
			Likes:       ev.Likes,
			Reposts:     ev.Reposts,
			Replies:     ev.Replies,
			Impressions: ev.Impressions,
			Timeframe:   string(ev.Timeframe),
			PriceAt:     ev.PriceAtEvent,
			PriceAfter1: ev.PriceAfter1,
			PriceAfter2: ev.PriceAfter2,
			Change1Pct:  ev.Change1Pct,
			Change2Pct:  ev.Change2Pct,
		})
	}
	return e.writeJSON(asset.ID, "post_events.json", out)
}

// writeJSON writes v to <base>/<assetID>/<name>, atomically via a
// temp-file rename so a reader never sees a half-written snapshot.
func (e *Exporter) writeJSON(assetID, name string, v any) error {
	dir := filepath.Join(e.baseDir, assetID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	if e.compress {
		name += ".gz"
	}
	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if e.compress {
		gw := gzip.NewWriter(tmp)
		if err := json.NewEncoder(gw).Encode(v); err != nil {
			tmp.Close()
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := gw.Close(); err != nil {
			tmp.Close()
			return fmt.Errorf("flush gzip %s: %w", name, err)
		}
	} else {
		if err := json.NewEncoder(tmp).Encode(v); err != nil {
			tmp.Close()
			return fmt.Errorf("encode %s: %w", name, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
