package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pulsetrack/internal/config"
	"pulsetrack/internal/domain"
	"pulsetrack/internal/registry"
	"pulsetrack/internal/storage"
	chstore "pulsetrack/internal/storage/clickhouse"
	"pulsetrack/internal/storage/migrations"
	"pulsetrack/internal/storage/postgres"
)

// app bundles the configured stores and logger behind one setup path
// shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	pool *postgres.Pool
	ch   *chstore.Conn // nil unless a ClickHouse DSN is configured

	assets  storage.AssetStore
	candles storage.CandleStore
	posts   storage.PostStore
	cursors storage.CursorStore
}

// newApp loads configuration, connects the backends and syncs the asset
// registry file into the asset store.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("pg-dsn is required")
	}
	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		assets:  postgres.NewAssetStore(pool),
		candles: postgres.NewCandleStore(pool),
		posts:   postgres.NewPostStore(pool),
		cursors: postgres.NewCursorStore(pool),
	}

	// ClickHouse, when configured, takes over the candle series; the
	// relational tables keep assets, posts and cursors.
	if cfg.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			conn.Close()
			a.Close()
			return nil, fmt.Errorf("apply clickhouse migrations: %w", err)
		}
		a.ch = conn
		a.candles = chstore.NewCandleStore(conn)
	}

	if err := a.syncRegistry(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// syncRegistry loads the asset file into the asset store. A missing
// file is fine as long as assets were synced on an earlier run.
func (a *app) syncRegistry(ctx context.Context) error {
	if _, err := os.Stat(a.cfg.AssetFile); os.IsNotExist(err) {
		a.logger.Debug("asset file not found, using stored assets",
			zap.String("path", a.cfg.AssetFile))
		return nil
	}
	assets, err := registry.Load(a.cfg.AssetFile)
	if err != nil {
		return err
	}
	if err := registry.Sync(ctx, a.assets, assets); err != nil {
		return err
	}
	a.logger.Info("asset registry synced", zap.Int("assets", len(assets)))
	return nil
}

// Close releases connections and flushes the logger.
func (a *app) Close() {
	if a.ch != nil {
		a.ch.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.logger.Sync()
}

func nowUnix() int64 { return time.Now().Unix() }

// selectAssets resolves positional asset ids, defaulting to every
// enabled asset.
func (a *app) selectAssets(ctx context.Context, ids []string) ([]*domain.Asset, error) {
	if len(ids) == 0 {
		return a.assets.ListEnabled(ctx)
	}
	out := make([]*domain.Asset, 0, len(ids))
	for _, id := range ids {
		asset, err := a.assets.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", id, err)
		}
		out = append(out, asset)
	}
	return out, nil
}
