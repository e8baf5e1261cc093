// Package config parses and validates the command-line configuration for
// one averaging run.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all run settings, populated from CLI flags with environment
// fallbacks for the log settings.
type Config struct {
	DataDir string
	Network string
	Start   time.Time
	Stop    time.Time

	RigidityMin float64
	RigidityMax float64

	OriginalCadence time.Duration
	TargetCadence   time.Duration

	ExcludedStations []string
	MinPercentile    float64
	MaxPercentile    float64
	StrictAlignment  bool

	OutputCSV   string
	StationsCSV string
	ParquetPath string
	SQLitePath  string
	MetricsFile string

	LogLevel  string
	LogFormat string
}

// dateLayouts are accepted for -start/-stop, tried in order.
var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// Load parses configuration from the given argument list (without the
// program name), applying defaults and validating the result.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("neutronavg", flag.ContinueOnError)

	cfg := &Config{}
	var start, stop, excluded string

	fs.StringVar(&cfg.DataDir, "data-dir", "", "folder with station data files and the station_info.txt metadata table (required)")
	fs.StringVar(&cfg.Network, "network", "", "network identifier: COSMOS-UK, COSMOS-US, or NMDB (required)")
	fs.StringVar(&start, "start", "", "start of the averaged window, e.g. 2015-06-01 (required)")
	fs.StringVar(&stop, "stop", "", "end of the averaged window (required)")
	fs.Float64Var(&cfg.RigidityMin, "rigidity-min", 0, "minimum accepted cutoff rigidity in GV")
	fs.Float64Var(&cfg.RigidityMax, "rigidity-max", 20, "maximum accepted cutoff rigidity in GV")
	fs.DurationVar(&cfg.OriginalCadence, "original-cadence", time.Hour, "native sampling cadence of the station files")
	fs.DurationVar(&cfg.TargetCadence, "target-cadence", time.Hour, "output cadence; must be an integer multiple of the original")
	fs.StringVar(&excluded, "exclude", "", "comma-separated station identifiers to skip")
	fs.Float64Var(&cfg.MinPercentile, "min-percentile", 1, "lower percentile bound for outlier removal")
	fs.Float64Var(&cfg.MaxPercentile, "max-percentile", 97, "upper percentile bound for outlier removal")
	fs.BoolVar(&cfg.StrictAlignment, "strict-alignment", false, "reject stations whose timestamps differ from the first accepted station")
	fs.StringVar(&cfg.OutputCSV, "out", "averaged.csv", "output CSV path for the relative-change table")
	fs.StringVar(&cfg.StationsCSV, "stations-out", "contributing_stations.csv", "output CSV path for the contributing stations log")
	fs.StringVar(&cfg.ParquetPath, "parquet-out", "", "optional Parquet output path for the result table")
	fs.StringVar(&cfg.SQLitePath, "sqlite-out", "", "optional SQLite database path for the result tables")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "optional path for a Prometheus textfile-collector metrics dump")
	fs.StringVar(&cfg.LogLevel, "log-level", envOrDefault("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", envOrDefault("LOG_FORMAT", "text"), "log format: text or json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.DataDir == "" {
		return nil, errors.New("-data-dir is required")
	}
	if cfg.Network == "" {
		return nil, errors.New("-network is required")
	}
	var err error
	if cfg.Start, err = parseDate(start); err != nil {
		return nil, fmt.Errorf("-start: %w", err)
	}
	if cfg.Stop, err = parseDate(stop); err != nil {
		return nil, fmt.Errorf("-stop: %w", err)
	}
	if !cfg.Start.Before(cfg.Stop) {
		return nil, errors.New("-start must be before -stop")
	}
	if cfg.RigidityMin > cfg.RigidityMax {
		return nil, errors.New("-rigidity-min must not exceed -rigidity-max")
	}
	if cfg.OriginalCadence <= 0 || cfg.TargetCadence <= 0 {
		return nil, errors.New("cadences must be positive")
	}
	if cfg.MinPercentile < 0 || cfg.MaxPercentile > 100 || cfg.MinPercentile >= cfg.MaxPercentile {
		return nil, errors.New("percentile bounds must satisfy 0 <= min < max <= 100")
	}

	if excluded != "" {
		for _, name := range strings.Split(excluded, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.ExcludedStations = append(cfg.ExcludedStations, name)
			}
		}
	}

	return cfg, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
