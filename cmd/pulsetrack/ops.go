package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pulsetrack/internal/align"
	"pulsetrack/internal/domain"
	"pulsetrack/internal/export"
	"pulsetrack/internal/stats"
	"pulsetrack/internal/validate"
)

func opContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) alignOptions() align.Options {
	return align.Options{
		Offset1: int64(a.cfg.Offset1.Seconds()),
		Offset2: int64(a.cfg.Offset2.Seconds()),
	}
}

type alignOutput struct {
	AssetID   string           `json:"asset_id"`
	Timeframe domain.Timeframe `json:"timeframe"`
	Count     int              `json:"count"`
	Events    []alignEventJSON `json:"events"`
}

type alignEventJSON struct {
	PostID       string   `json:"post_id"`
	Timestamp    int64    `json:"timestamp"`
	Text         string   `json:"text"`
	Likes        int      `json:"likes"`
	Reposts      int      `json:"reposts"`
	Replies      int      `json:"replies"`
	Impressions  int      `json:"impressions"`
	PriceAtEvent *float64 `json:"price_at_event"`
	PriceAfter1  *float64 `json:"price_after_1"`
	PriceAfter2  *float64 `json:"price_after_2"`
	Change1Pct   *float64 `json:"change_1_pct"`
	Change2Pct   *float64 `json:"change_2_pct"`
}

func runAlign(cmd *cobra.Command, args []string) error {
	ctx, stop := opContext()
	defer stop()

	app, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	engine := align.NewEngine(app.candles, app.posts)
	assets, err := app.selectAssets(ctx, args)
	if err != nil {
		return err
	}

	for _, asset := range assets {
		events, err := engine.Align(ctx, asset, app.alignOptions())
		if err != nil {
			return fmt.Errorf("align %s: %w", asset.ID, err)
		}
		out := alignOutput{AssetID: asset.ID, Count: len(events), Events: []alignEventJSON{}}
		for _, ev := range events {
			out.Timeframe = ev.Timeframe
			out.Events = append(out.Events, alignEventJSON{
				PostID:       ev.PostID,
				Timestamp:    ev.Timestamp,
				Text:         ev.Text,
				Likes:        ev.Likes,
				Reposts:      ev.Reposts,
				Replies:      ev.Replies,
				Impressions:  ev.Impressions,
				PriceAtEvent: ev.PriceAtEvent,
				PriceAfter1:  ev.PriceAfter1,
				PriceAfter2:  ev.PriceAfter2,
				Change1Pct:   ev.Change1Pct,
				Change2Pct:   ev.Change2Pct,
			})
		}
		if err := printJSON(out); err != nil {
			return err
		}
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, stop := opContext()
	defer stop()

	app, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	validator := validate.NewValidator(app.candles)
	assets, err := app.selectAssets(ctx, args)
	if err != nil {
		return err
	}

	now := nowUnix()
	failed := 0
	for _, asset := range assets {
		report, err := validator.ValidateAsset(ctx, asset, now)
		if err != nil {
			return fmt.Errorf("validate %s: %w", asset.ID, err)
		}
		if !report.Passed {
			failed++
		}
		if err := printJSON(report); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d assets failed coverage validation", failed, len(assets))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, stop := opContext()
	defer stop()

	app, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	engine := align.NewEngine(app.candles, app.posts)
	exporter := export.NewExporter(app.candles, app.cfg.ExportDir, app.cfg.ExportGzip)
	assets, err := app.selectAssets(ctx, args)
	if err != nil {
		return err
	}

	now := nowUnix()
	for _, asset := range assets {
		for _, tf := range asset.ActiveTimeframes(now) {
			count, err := exporter.ExportPrices(ctx, asset, tf)
			if err != nil {
				return fmt.Errorf("export prices %s %s: %w", asset.ID, tf, err)
			}
			app.logger.Info("prices exported",
				zap.String("asset", asset.ID),
				zap.String("timeframe", string(tf)),
				zap.Int("candles", count))
		}

		events, err := engine.Align(ctx, asset, app.alignOptions())
		if err != nil {
			return fmt.Errorf("align %s: %w", asset.ID, err)
		}
		if err := exporter.ExportEvents(asset, events); err != nil {
			return fmt.Errorf("export events %s: %w", asset.ID, err)
		}
		app.logger.Info("events exported",
			zap.String("asset", asset.ID), zap.Int("events", len(events)))
	}
	return nil
}

type statsOutput struct {
	AssetID      string              `json:"asset_id"`
	Daily        stats.DailyStats    `json:"daily"`
	QuietPeriods []stats.QuietPeriod `json:"quiet_periods"`
	Correlation  *stats.Correlation  `json:"correlation"`
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, stop := opContext()
	defer stop()

	app, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	engine := align.NewEngine(app.candles, app.posts)
	assets, err := app.selectAssets(ctx, args)
	if err != nil {
		return err
	}

	now := nowUnix()
	for _, asset := range assets {
		events, err := engine.Align(ctx, asset, app.alignOptions())
		if err != nil {
			return fmt.Errorf("align %s: %w", asset.ID, err)
		}
		daily, err := app.candles.GetByAsset(ctx, asset.ID, domain.Timeframe1d)
		if err != nil {
			return fmt.Errorf("daily candles %s: %w", asset.ID, err)
		}

		out := statsOutput{
			AssetID:      asset.ID,
			Daily:        stats.ComputeDailyStats(events, daily),
			QuietPeriods: stats.ComputeQuietPeriods(events, daily, app.cfg.QuietGapDays, now),
			Correlation:  stats.ComputeCorrelation(events, daily),
		}
		if err := printJSON(out); err != nil {
			return err
		}
	}
	return nil
}

// runInitDB applies migrations and exits; newApp already runs them on
// connect, so this is just the explicit form for provisioning.
func runInitDB(cmd *cobra.Command, _ []string) error {
	ctx, stop := opContext()
	defer stop()

	app, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	app.logger.Info("migrations applied",
		zap.Bool("clickhouse", app.ch != nil))
	return nil
}
