package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pulsetrack/internal/ingestion"
	"pulsetrack/internal/observability"
)

func runPoll(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	metrics := observability.NewMetrics("")
	source := ingestion.NewFileSource(app.cfg.SourceDir, app.cfg.PageSize)

	manager := ingestion.NewManager(ingestion.ManagerOptions{
		PostSource:   source,
		CandleSource: source,
		PostStore:    app.posts,
		CandleStore:  app.candles,
		CursorStore:  app.cursors,
		Metrics:      metrics,
		Logger:       app.logger,
		MaxPages:     app.cfg.MaxPages,
	})
	scheduler := ingestion.NewScheduler(ingestion.SchedulerOptions{
		Manager:    manager,
		AssetStore: app.assets,
		Interval:   app.cfg.PollInterval,
		Metrics:    metrics,
		Logger:     app.logger,
	})

	once, _ := cmd.Flags().GetBool("once")
	if once {
		results, err := scheduler.PollOnce(ctx)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != nil {
				app.logger.Warn("asset poll failed",
					zap.String("asset", r.AssetID), zap.Error(r.Err))
			}
		}
		return nil
	}

	srv := &http.Server{Addr: app.cfg.MetricsAddr, Handler: metricsMux()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	app.logger.Info("poller starting",
		zap.Duration("interval", app.cfg.PollInterval),
		zap.String("metrics_addr", app.cfg.MetricsAddr))

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	app.logger.Info("poller stopped")
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.Handle("/healthz", observability.HealthHandler())
	return mux
}
