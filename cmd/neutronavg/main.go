// Command neutronavg computes a network-averaged relative neutron count
// change table from a folder of per-station monitor files.
//
// Usage:
//
//	neutronavg -data-dir ./data/cosmos-uk -network COSMOS-UK \
//	  -start 2015-06-01 -stop 2015-07-01 \
//	  -rigidity-min 0 -rigidity-max 5 \
//	  -out averaged.csv -stations-out stations.csv
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glaciertide/neutronavg/internal/adapter/export"
	"github.com/glaciertide/neutronavg/internal/adapter/stationfile"
	"github.com/glaciertide/neutronavg/internal/config"
	"github.com/glaciertide/neutronavg/internal/observability"
	"github.com/glaciertide/neutronavg/internal/pipeline"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	importer := stationfile.NewImporter(logger)
	averager := pipeline.New(pipeline.Options{
		DataDir:          cfg.DataDir,
		Network:          cfg.Network,
		Start:            cfg.Start,
		Stop:             cfg.Stop,
		RigidityMin:      cfg.RigidityMin,
		RigidityMax:      cfg.RigidityMax,
		OriginalCadence:  cfg.OriginalCadence,
		TargetCadence:    cfg.TargetCadence,
		ExcludedStations: cfg.ExcludedStations,
		MinPercentile:    cfg.MinPercentile,
		MaxPercentile:    cfg.MaxPercentile,
		StrictAlignment:  cfg.StrictAlignment,
	}, importer, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := averager.Run(ctx)
	if err != nil {
		logger.Error("averaging run failed", "error", err)
		os.Exit(1)
	}

	if err := export.WriteResultCSV(cfg.OutputCSV, result); err != nil {
		logger.Error("write result csv failed", "error", err)
		os.Exit(1)
	}
	logger.Info("wrote result table", "path", cfg.OutputCSV)

	if err := export.WriteStationsCSV(cfg.StationsCSV, result); err != nil {
		logger.Error("write stations csv failed", "error", err)
		os.Exit(1)
	}
	logger.Info("wrote contributing stations", "path", cfg.StationsCSV, "stations", result.Stations.Len())

	if cfg.ParquetPath != "" {
		if err := export.WriteResultParquet(cfg.ParquetPath, result); err != nil {
			logger.Error("write parquet failed", "error", err)
			os.Exit(1)
		}
		logger.Info("wrote parquet table", "path", cfg.ParquetPath)
	}
	if cfg.SQLitePath != "" {
		if err := export.WriteSQLite(cfg.SQLitePath, result); err != nil {
			logger.Error("write sqlite failed", "error", err)
			os.Exit(1)
		}
		logger.Info("wrote sqlite database", "path", cfg.SQLitePath)
	}
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("write metrics failed", "error", err)
			os.Exit(1)
		}
	}
}
