// Package config merges flags, environment variables (PULSETRACK_
// prefix) and an optional config file into one Config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	PostgresDSN   string
	ClickhouseDSN string // optional analytical candle backend
	AssetFile     string
	SourceDir     string // drop directory the file source reads from
	PollInterval  time.Duration
	MaxPages      int
	PageSize      int
	MetricsAddr   string
	ExportDir     string
	ExportGzip    bool
	Offset1       time.Duration
	Offset2       time.Duration
	QuietGapDays  float64
	LogLevel      string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PULSETRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("asset-file", "./assets.yaml")
	v.SetDefault("source-dir", "./data/incoming")
	v.SetDefault("poll-interval", 5*time.Minute)
	v.SetDefault("max-pages", 50)
	v.SetDefault("page-size", 200)
	v.SetDefault("metrics-addr", ":9090")
	v.SetDefault("export-dir", "./data/public")
	v.SetDefault("export-gzip", false)
	v.SetDefault("offset1", time.Hour)
	v.SetDefault("offset2", 24*time.Hour)
	v.SetDefault("quiet-gap-days", 3.0)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		PostgresDSN:   v.GetString("pg-dsn"),
		ClickhouseDSN: v.GetString("ch-dsn"),
		AssetFile:     v.GetString("asset-file"),
		SourceDir:     v.GetString("source-dir"),
		PollInterval:  v.GetDuration("poll-interval"),
		MaxPages:      v.GetInt("max-pages"),
		PageSize:      v.GetInt("page-size"),
		MetricsAddr:   v.GetString("metrics-addr"),
		ExportDir:     v.GetString("export-dir"),
		ExportGzip:    v.GetBool("export-gzip"),
		Offset1:       v.GetDuration("offset1"),
		Offset2:       v.GetDuration("offset2"),
		QuietGapDays:  v.GetFloat64("quiet-gap-days"),
		LogLevel:      v.GetString("log-level"),
	}

	return cfg, nil
}
