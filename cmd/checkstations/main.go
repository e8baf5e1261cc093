// Command checkstations performs pre-flight integrity checks on a station
// data folder before an averaging run: metadata readability, per-station file
// parseability, window coverage, and resampled length agreement. It reports
// pass/fail per phase and exits non-zero on any failure.
//
// Usage:
//
//	go run ./cmd/checkstations \
//	  -data-dir ./data/cosmos-uk -network COSMOS-UK \
//	  -start "2015-06-01 00:00:00" -stop "2015-07-01 00:00:00"
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glaciertide/neutronavg/internal/adapter/stationfile"
	"github.com/glaciertide/neutronavg/internal/domain"
	"github.com/glaciertide/neutronavg/internal/network"
	"github.com/glaciertide/neutronavg/internal/observability"
	"github.com/glaciertide/neutronavg/internal/pipeline"
)

// phase tracks pass/fail for a check phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "", "station data folder")
	netName := flag.String("network", "", "network identifier")
	startStr := flag.String("start", "", "window start (UTC, 2006-01-02 15:04:05)")
	stopStr := flag.String("stop", "", "window stop (UTC, 2006-01-02 15:04:05)")
	original := flag.Duration("original-cadence", time.Hour, "native sample cadence")
	target := flag.Duration("target-cadence", time.Hour, "resampled cadence")
	flag.Parse()

	if *dataDir == "" || *netName == "" || *startStr == "" || *stopStr == "" {
		flag.Usage()
		os.Exit(1)
	}

	start, err := time.ParseInLocation("2006-01-02 15:04:05", *startStr, time.UTC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse -start: %v\n", err)
		os.Exit(1)
	}
	stop, err := time.ParseInLocation("2006-01-02 15:04:05", *stopStr, time.UTC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse -stop: %v\n", err)
		os.Exit(1)
	}

	if code := run(*dataDir, *netName, start, stop, *original, *target); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir, netName string, start, stop time.Time, original, target time.Duration) int {
	cfg, err := network.Lookup(netName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Println("=== Station Folder Integrity Check ===")
	fmt.Println()

	stations, metaPhase := checkMetadata(dataDir, cfg)
	phases := []*phase{metaPhase}

	var parsed map[string]domain.Series
	if metaPhase.passed() {
		var parsePhase *phase
		parsed, parsePhase = checkStationFiles(dataDir, cfg, stations)
		phases = append(phases,
			parsePhase,
			checkCoverage(parsed, start, stop),
			checkLengths(parsed, cfg, start, stop, original, target),
		)
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Stations: %d listed, %d parseable\n", len(stations), len(parsed))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nCheck FAILED.")
	return 1
}

// ── Phase 1: Metadata ──
// Verifies the station metadata table loads and has usable rigidity values.

func checkMetadata(dataDir string, cfg network.Config) ([]stationfile.Station, *phase) {
	p := &phase{name: "Phase 1: Station Metadata"}

	stations, err := stationfile.LoadStations(filepath.Join(dataDir, pipeline.MetadataFileName), cfg)
	if err != nil {
		p.errorf("load %s: %v", pipeline.MetadataFileName, err)
		return nil, p
	}
	if len(stations) == 0 {
		p.errorf("%s lists no stations", pipeline.MetadataFileName)
	}
	seen := map[string]bool{}
	for _, s := range stations {
		if seen[s.Name] {
			p.errorf("duplicate station %q", s.Name)
		}
		seen[s.Name] = true
		if s.CutoffRigidity < 0 {
			p.errorf("station %q: negative cutoff rigidity %g", s.Name, s.CutoffRigidity)
		}
	}
	return stations, p
}

// ── Phase 2: Station Files ──
// Parses every listed station's data file.

func checkStationFiles(dataDir string, cfg network.Config, stations []stationfile.Station) (map[string]domain.Series, *phase) {
	p := &phase{name: "Phase 2: Station Files"}
	logger := observability.NewLogger("error", "text")
	importer := stationfile.NewImporter(logger)

	parsed := make(map[string]domain.Series, len(stations))
	for _, s := range stations {
		path := filepath.Join(dataDir, s.Name+cfg.FileExtension)
		if _, err := os.Stat(path); err != nil {
			path += ".gz"
		}
		series, _, err := importer.ImportStation(path, cfg, nil)
		if err != nil {
			p.errorf("station %q: %v", s.Name, err)
			continue
		}
		if series.Empty() {
			p.errorf("station %q: file parses to an empty table", s.Name)
			continue
		}
		for _, field := range cfg.DataFields {
			if _, ok := series.Field(field); !ok {
				p.errorf("station %q: missing data column %q", s.Name, field)
			}
		}
		parsed[s.Name] = series
	}
	return parsed, p
}

// ── Phase 3: Window Coverage ──
// Checks every parseable station spans the requested window.

func checkCoverage(parsed map[string]domain.Series, start, stop time.Time) *phase {
	p := &phase{name: "Phase 3: Window Coverage"}
	for name, series := range parsed {
		if !series.Covers(start, stop) {
			idx := series.Index
			p.errorf("station %q: data spans [%s, %s], window is [%s, %s]",
				name,
				idx[0].Format(time.RFC3339), idx[len(idx)-1].Format(time.RFC3339),
				start.Format(time.RFC3339), stop.Format(time.RFC3339))
		}
	}
	return p
}

// ── Phase 4: Resampled Length ──
// Resamples each covering station's window slice and compares against the
// length the averaging pipeline will demand.

func checkLengths(parsed map[string]domain.Series, cfg network.Config, start, stop time.Time, original, target time.Duration) *phase {
	p := &phase{name: "Phase 4: Resampled Length"}
	expected := cfg.ExpectedLength(start, stop, target)

	for name, series := range parsed {
		if !series.Covers(start, stop) {
			continue
		}
		sliced := series.SliceWindow(start, stop)
		resampled, err := domain.Resample(sliced, cfg, original, target)
		if err != nil {
			p.errorf("station %q: %v", name, err)
			continue
		}
		if resampled.Len() != expected {
			p.errorf("station %q: resampled to %d samples, pipeline expects %d", name, resampled.Len(), expected)
		}
	}
	return p
}
