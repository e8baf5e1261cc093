// Package pipeline orchestrates the station-averaging run: it drives the
// import, correction, quality-control and resampling stages per station,
// stacks the survivors into per-field ensembles, and produces the
// relative-change result table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/glaciertide/neutronavg/internal/adapter/stationfile"
	"github.com/glaciertide/neutronavg/internal/domain"
	"github.com/glaciertide/neutronavg/internal/network"
	"github.com/glaciertide/neutronavg/internal/observability"
)

// MetadataFileName is the station metadata table expected inside the data
// folder.
const MetadataFileName = "station_info.txt"

// Default percentile band for outlier removal.
const (
	DefaultMinPercentile = 1
	DefaultMaxPercentile = 97
)

// ErrNoContributingStations is returned when every candidate station was
// excluded, out of rigidity range, or failed import or alignment. The run
// produces no partial result.
var ErrNoContributingStations = errors.New("no stations contributed to the average")

// Options configure one averaging run.
type Options struct {
	// DataDir holds one data file per station plus the metadata table.
	DataDir string
	// Network is the archive network identifier (see the network package).
	Network string
	// Start and Stop bound the averaged window.
	Start time.Time
	Stop  time.Time
	// RigidityMin and RigidityMax gate stations by cutoff rigidity (GV).
	RigidityMin float64
	RigidityMax float64
	// OriginalCadence is the stations' native sampling cadence;
	// TargetCadence is the output cadence.
	OriginalCadence time.Duration
	TargetCadence   time.Duration
	// ExcludedStations are skipped by exact identifier match.
	ExcludedStations []string
	// Percentile band for outlier removal; zero values take the defaults.
	MinPercentile float64
	MaxPercentile float64
	// StrictAlignment rejects stations whose timestamps differ from the
	// canonical index even when the length matches. Off by default, which
	// reproduces the archive scripts' length-only check.
	StrictAlignment bool
}

// FieldResult is one averaged field of the output table: the
// relative-change percentage series and its normalized error series.
type FieldResult struct {
	Name         string
	ErrorName    string
	RelChangePct []float64
	ErrorPct     []float64
}

// Result is the outcome of a run: the canonical timestamp index, one
// FieldResult per data field in network order, and the log of contributing
// stations.
type Result struct {
	Network    string
	Index      []time.Time
	Fields     []FieldResult
	Stations   domain.ContributingStations
	StartedAt  time.Time
	FinishedAt time.Time
}

// Averager runs the averaging pipeline over a station folder.
type Averager struct {
	opts     Options
	importer *stationfile.Importer
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates an Averager.
func New(opts Options, importer *stationfile.Importer, logger *slog.Logger, metrics *observability.Metrics) *Averager {
	if opts.MinPercentile == 0 && opts.MaxPercentile == 0 {
		opts.MinPercentile = DefaultMinPercentile
		opts.MaxPercentile = DefaultMaxPercentile
	}
	return &Averager{
		opts:     opts,
		importer: importer,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run executes one batch run. Configuration errors (unknown network,
// unsupported resampling ratio, missing input paths) abort the run;
// per-station failures only shrink the contributing set.
func (a *Averager) Run(ctx context.Context) (*Result, error) {
	startedAt := clock.Now()

	cfg, err := network.Lookup(a.opts.Network)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(a.opts.DataDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", stationfile.ErrMissingPath, a.opts.DataDir)
	}

	stations, err := stationfile.LoadStations(filepath.Join(a.opts.DataDir, MetadataFileName), cfg)
	if err != nil {
		return nil, err
	}
	a.logger.Info("averaging run started",
		"network", cfg.Name,
		"stations", len(stations),
		"start", a.opts.Start,
		"stop", a.opts.Stop,
	)

	expected := cfg.ExpectedLength(a.opts.Start, a.opts.Stop, a.opts.TargetCadence)
	ensembles := make(map[string]*domain.Ensemble, len(cfg.DataFields))
	for _, field := range cfg.DataFields {
		ensembles[field] = domain.NewEnsemble(expected)
	}

	var contributing domain.ContributingStations
	var index []time.Time

	for _, station := range stations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		accepted, err := a.processStation(station, cfg, expected, index, ensembles)
		if err != nil {
			return nil, err
		}
		if accepted == nil {
			continue
		}
		if index == nil {
			// The first accepted station fixes the canonical output index.
			index = accepted.Index
		}
		contributing.Append(station.Name, station.CutoffRigidity)
	}

	a.metrics.StationsContributing.Set(float64(contributing.Len()))
	if contributing.Len() == 0 {
		return nil, ErrNoContributingStations
	}

	result := &Result{
		Network:   cfg.Name,
		Index:     index,
		Stations:  contributing,
		StartedAt: startedAt,
	}
	for i, field := range cfg.DataFields {
		avg := ensembles[field].Combine()
		result.Fields = append(result.Fields, FieldResult{
			Name:         field,
			ErrorName:    cfg.ErrorFields[i],
			RelChangePct: domain.RelativeChange(avg.Value),
			ErrorPct:     domain.NormalizeError(avg.ErrorPct, avg.Value),
		})
	}
	result.FinishedAt = clock.Now()
	a.metrics.RunDuration.Set(result.FinishedAt.Sub(startedAt).Seconds())

	a.logger.Info("averaging run finished",
		"contributing", contributing.Len(),
		"samples", len(index),
		"fields", len(result.Fields),
	)
	return result, nil
}

// processStation runs one station through the import-resample-QC-correct-
// outlier chain. It returns the accepted series, or nil when the station is
// skipped. Only configuration errors propagate.
func (a *Averager) processStation(station stationfile.Station, cfg network.Config, expected int, canonical []time.Time, ensembles map[string]*domain.Ensemble) (*domain.Series, error) {
	a.metrics.StationsConsidered.Inc()

	if slices.Contains(a.opts.ExcludedStations, station.Name) {
		a.skip(station.Name, "excluded")
		return nil, nil
	}
	if station.CutoffRigidity < a.opts.RigidityMin || station.CutoffRigidity > a.opts.RigidityMax {
		a.skip(station.Name, "rigidity_out_of_range")
		return nil, nil
	}

	path := a.stationPath(station.Name, cfg)
	window := &stationfile.Window{Start: a.opts.Start, Stop: a.opts.Stop}
	series, valid, err := a.importer.ImportStation(path, cfg, window)
	if err != nil {
		a.logger.Warn("station import failed", "station", station.Name, "error", err)
		a.skip(station.Name, "import_error")
		return nil, nil
	}
	if !valid || series.Empty() {
		a.skip(station.Name, "invalid")
		return nil, nil
	}

	series, err = domain.Resample(series, cfg, a.opts.OriginalCadence, a.opts.TargetCadence)
	if err != nil {
		// An unsupported cadence ratio is a configuration error for the
		// whole run, not a property of one station.
		return nil, err
	}
	if series.Len() != expected {
		a.skip(station.Name, "length_mismatch")
		return nil, nil
	}
	if a.opts.StrictAlignment && canonical != nil && !sameIndex(series.Index, canonical) {
		a.skip(station.Name, "misaligned")
		return nil, nil
	}

	if cfg.HasQC() {
		series = domain.MaskQCFlags(series, cfg.QCFlags)
	}
	series, err = domain.Correct(series, cfg, station.CutoffRigidity)
	if err != nil {
		a.logger.Warn("station correction failed", "station", station.Name, "error", err)
		a.skip(station.Name, "missing_fields")
		return nil, nil
	}
	series, filled := domain.RemoveOutliers(series, cfg.DataFields, a.opts.MinPercentile, a.opts.MaxPercentile)
	a.metrics.SamplesInterpolated.Add(float64(filled))

	for _, field := range cfg.DataFields {
		col, _ := series.Field(field)
		if err := ensembles[field].AddRow(col); err != nil {
			return nil, fmt.Errorf("station %s: %w", station.Name, err)
		}
	}
	a.logger.Debug("station accepted", "station", station.Name, "rigidity", station.CutoffRigidity)
	return &series, nil
}

// stationPath resolves a station's data file, preferring the plain file and
// falling back to a gzipped archive.
func (a *Averager) stationPath(name string, cfg network.Config) string {
	plain := filepath.Join(a.opts.DataDir, name+cfg.FileExtension)
	if _, err := os.Stat(plain); err == nil {
		return plain
	}
	gz := plain + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return gz
	}
	return plain
}

func (a *Averager) skip(station, reason string) {
	a.logger.Debug("station skipped", "station", station, "reason", reason)
	a.metrics.StationsSkipped.WithLabelValues(reason).Inc()
}

func sameIndex(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
