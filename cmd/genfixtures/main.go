// Command genfixtures generates a synthetic station data folder for a chosen
// network: a station_info.txt metadata table plus one data file per station
// in that network's native layout. The output is accepted unchanged by the
// averaging pipeline, which makes it useful for tests and local runs without
// access to the real archives.
//
// Usage:
//
//	go run ./cmd/genfixtures \
//	  -out-dir testdata/cosmos-uk \
//	  -network COSMOS-UK \
//	  -stations 4 -start "2019-03-01 00:00:00" -hours 168
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/pgzip"

	"github.com/glaciertide/neutronavg/internal/network"
	"github.com/glaciertide/neutronavg/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "output directory for the fixture folder")
	netName := flag.String("network", network.CosmosUK, "network layout to generate")
	stations := flag.Int("stations", 4, "number of stations")
	startStr := flag.String("start", "2019-03-01 00:00:00", "series start (UTC)")
	hours := flag.Int("hours", 168, "number of hourly samples per station")
	gzipOut := flag.Bool("gzip", false, "gzip the station data files")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}

	cfg, err := network.Lookup(*netName)
	if err != nil {
		return err
	}
	start, err := time.ParseInLocation("2006-01-02 15:04:05", *startStr, time.UTC)
	if err != nil {
		return fmt.Errorf("parsing -start: %w", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))

	names := make([]string, *stations)
	for i := range names {
		names[i] = fmt.Sprintf("STN%02d", i+1)
	}

	if err := writeMetadata(*outDir, cfg, names, rng); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	log.Printf("wrote %s: %d stations", pipeline.MetadataFileName, len(names))

	for _, name := range names {
		path := filepath.Join(*outDir, name+cfg.FileExtension)
		if *gzipOut {
			path += ".gz"
		}
		if err := writeStation(path, cfg, start, *hours, *gzipOut, rng); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		log.Printf("wrote %s: %d samples", path, *hours)
	}
	return nil
}

// writeMetadata emits the station metadata table with a rigidity spread wide
// enough to exercise range filtering.
func writeMetadata(dir string, cfg network.Config, names []string, rng *rand.Rand) error {
	f, err := os.Create(filepath.Join(dir, pipeline.MetadataFileName))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = cfg.MetaSeparator
	if err := w.Write([]string{cfg.MetaNameColumn, cfg.MetaRigidityColumn, "Latitude", "Longitude"}); err != nil {
		return err
	}
	for _, name := range names {
		rigidity := 1.0 + rng.Float64()*9.0
		row := []string{
			name,
			strconv.FormatFloat(rigidity, 'f', 2, 64),
			strconv.FormatFloat(45+rng.Float64()*15, 'f', 4, 64),
			strconv.FormatFloat(-10+rng.Float64()*20, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeStation(path string, cfg network.Config, start time.Time, samples int, gz bool, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	if gz {
		zw := pgzip.NewWriter(f)
		defer zw.Close()
		w = zw
	}

	switch cfg.Name {
	case network.CosmosUS:
		return writeCosmosUS(w, start, samples, rng)
	case network.CosmosUK:
		return writeCosmosUK(w, cfg, start, samples, rng)
	case network.NMDB:
		return writeNMDB(w, cfg, start, samples, rng)
	}
	return fmt.Errorf("no generator for network %q", cfg.Name)
}

func writeCosmosUS(w io.Writer, start time.Time, samples int, rng *rand.Rand) error {
	if _, err := fmt.Fprintln(w, "Date Time MOD UNMO PRESS TEM RH BATT"); err != nil {
		return err
	}
	for i := 0; i < samples; i++ {
		// Real COSMOS-US loggers stamp mid-interval, never on the hour; an
		// on-the-hour series slices one sample long and is rejected.
		ts := start.Add(time.Duration(i)*time.Hour + 30*time.Minute)
		mod := counts(1800, rng)
		unmo := counts(900, rng)
		_, err := fmt.Fprintf(w, "%s %d %d %.1f %.1f %.1f %.2f\n",
			ts.Format("2006/01/02 15:04"),
			mod, unmo,
			880+rng.NormFloat64()*4,
			5+rng.NormFloat64()*6,
			60+rng.NormFloat64()*12,
			12.4+rng.NormFloat64()*0.2,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeCosmosUK(w io.Writer, cfg network.Config, start time.Time, samples int, rng *rand.Rand) error {
	cw := csv.NewWriter(w)
	cw.Comma = cfg.FileSeparator
	header := []string{
		"SITE_ID", "SITE_NAME", "DATE_TIME",
		"CTS_MOD", "CTS_MOD_QCFLAG",
		"CTS_MOD2", "CTS_MOD2_QCFLAG",
		"CTS_BARE", "CTS_BARE_QCFLAG",
		"PA", "PA_QCFLAG",
		"Q", "Q_QCFLAG",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < samples; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		// Roughly one sample in fifty carries a raised QC flag.
		qc := 0
		if rng.Intn(50) == 0 {
			qc = 1
		}
		row := []string{
			"SITE", "Fixture Site",
			ts.Format("2006-01-02 15:04:05"),
			strconv.Itoa(counts(1500, rng)), strconv.Itoa(qc),
			strconv.Itoa(counts(1500, rng)), "0",
			strconv.Itoa(counts(400, rng)), "0",
			strconv.FormatFloat(1010+rng.NormFloat64()*5, 'f', 1, 64), "0",
			strconv.FormatFloat(8+rng.NormFloat64()*1.5, 'f', 2, 64), "0",
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeNMDB(w io.Writer, cfg network.Config, start time.Time, samples int, rng *rand.Rand) error {
	cw := csv.NewWriter(w)
	cw.Comma = cfg.FileSeparator
	if err := cw.Write([]string{"DateTime", "counts"}); err != nil {
		return err
	}
	for i := 0; i < samples; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		row := []string{
			ts.Format("2006-01-02 15:04:05"),
			strconv.Itoa(counts(12000, rng)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// counts draws an integer count around base with Poisson-like spread.
func counts(base float64, rng *rand.Rand) int {
	return int(math.Round(base + rng.NormFloat64()*math.Sqrt(base)))
}
