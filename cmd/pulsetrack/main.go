package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pulsetrack",
		Short:        "Founder post / price candle tracker",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	root.PersistentFlags().String("ch-dsn", "", "optional ClickHouse DSN for the candle backend")
	root.PersistentFlags().String("asset-file", "./assets.yaml", "asset registry file")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	pollCmd := &cobra.Command{
		Use:   "poll",
		Short: "Ingest posts and candles for all enabled assets",
		RunE:  runPoll,
	}
	pollCmd.Flags().Bool("once", false, "run a single poll cycle and exit")
	pollCmd.Flags().String("source-dir", "./data/incoming", "drop directory with upstream JSON pages")
	pollCmd.Flags().Duration("poll-interval", 5*time.Minute, "time between poll cycles")
	pollCmd.Flags().Int("max-pages", 50, "maximum upstream pages per feed per cycle")
	pollCmd.Flags().Int("page-size", 200, "records per upstream page")
	pollCmd.Flags().String("metrics-addr", ":9090", "metrics/health listen address (daemon mode)")
	root.AddCommand(pollCmd)

	alignCmd := &cobra.Command{
		Use:   "align [asset-id...]",
		Short: "Print aligned post/price events",
		RunE:  runAlign,
	}
	alignCmd.Flags().Duration("offset1", time.Hour, "first after-event offset")
	alignCmd.Flags().Duration("offset2", 24*time.Hour, "second after-event offset")
	root.AddCommand(alignCmd)

	validateCmd := &cobra.Command{
		Use:   "validate [asset-id...]",
		Short: "Audit candle coverage against launch dates",
		RunE:  runValidate,
	}
	root.AddCommand(validateCmd)

	exportCmd := &cobra.Command{
		Use:   "export [asset-id...]",
		Short: "Write static JSON snapshots of prices and aligned events",
		RunE:  runExport,
	}
	exportCmd.Flags().String("export-dir", "./data/public", "output directory")
	exportCmd.Flags().Bool("export-gzip", false, "gzip price files")
	exportCmd.Flags().Duration("offset1", time.Hour, "first after-event offset")
	exportCmd.Flags().Duration("offset2", 24*time.Hour, "second after-event offset")
	root.AddCommand(exportCmd)

	statsCmd := &cobra.Command{
		Use:   "stats [asset-id...]",
		Short: "Print post-day/quiet-day statistics",
		RunE:  runStats,
	}
	statsCmd.Flags().Float64("quiet-gap-days", 3.0, "minimum gap in days counted as a quiet period")
	root.AddCommand(statsCmd)

	initDBCmd := &cobra.Command{
		Use:   "init-db",
		Short: "Apply database migrations",
		RunE:  runInitDB,
	}
	root.AddCommand(initDBCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
