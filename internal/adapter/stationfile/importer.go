// Package stationfile reads neutron monitor archives from the local
// filesystem: per-station data files, the station metadata table, and the
// SOHO satellite helper table. All reads are whole-file and synchronous;
// gzipped archives are decompressed transparently.
package stationfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/pgzip"

	"github.com/glaciertide/neutronavg/internal/domain"
	"github.com/glaciertide/neutronavg/internal/network"
)

// ErrMissingPath reports a configured input path that does not exist. It
// replaces the archive scripts' interactive re-prompt loop, which has no
// place at a library boundary.
var ErrMissingPath = errors.New("input path does not exist")

// Window restricts an import to a [Start, Stop] datetime range.
type Window struct {
	Start time.Time
	Stop  time.Time
}

// Importer parses station data files per network configuration.
type Importer struct {
	logger *slog.Logger
}

// NewImporter creates an Importer.
func NewImporter(logger *slog.Logger) *Importer {
	return &Importer{logger: logger}
}

// ImportStation reads one station's time series from path. The returned
// validity flag is false when the file parses to an empty table, when its
// timestamp range does not fully cover the requested window, or when the
// window slice is empty; the series is returned as parsed in every case.
// I/O and format errors are returned for the caller to treat as a station
// skip.
func (im *Importer) ImportStation(path string, cfg network.Config, window *Window) (domain.Series, bool, error) {
	rows, header, err := readTable(path, cfg)
	if err != nil {
		return domain.Series{}, false, err
	}

	series, err := tableToSeries(rows, header, cfg)
	if err != nil {
		return domain.Series{}, false, fmt.Errorf("parse %s: %w", path, err)
	}
	series = series.SortByTime()

	if series.Empty() {
		return series, false, nil
	}
	if window == nil {
		return series, true, nil
	}

	if !series.Covers(window.Start, window.Stop) {
		im.logger.Debug("station range does not cover window",
			"path", path, "start", window.Start, "stop", window.Stop)
		return series, false, nil
	}
	sliced := series.SliceWindow(window.Start, window.Stop)
	if sliced.Empty() {
		return series, false, nil
	}
	return sliced, true, nil
}

// readTable opens a file (decompressing .gz transparently) and splits it
// into header and data rows using the network's separator.
func readTable(path string, cfg network.Config) ([][]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingPath, path)
		}
		return nil, nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var rows [][]string
	if cfg.WhitespaceSeparated {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			rows = append(rows, strings.Fields(line))
		}
		if err := scanner.Err(); err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else {
		cr := csv.NewReader(r)
		cr.Comma = cfg.FileSeparator
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		all, err := cr.ReadAll()
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = all
	}

	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("read %s: empty file", path)
	}
	return rows[1:], rows[0], nil
}

// tableToSeries converts raw rows into a Series: the network's date columns
// become the timestamp index and every other column is parsed as float64,
// with unparseable cells stored as NaN.
func tableToSeries(rows [][]string, header []string, cfg network.Config) (domain.Series, error) {
	if err := checkDateHeader(header, cfg); err != nil {
		return domain.Series{}, err
	}

	dateCols := make(map[int]bool, len(cfg.DateColumns))
	maxDateCol := 0
	for _, c := range cfg.DateColumns {
		dateCols[c] = true
		if c > maxDateCol {
			maxDateCol = c
		}
	}

	index := make([]time.Time, 0, len(rows))
	fields := make(map[string][]float64, len(header))
	var fieldCols []int
	for i, name := range header {
		if dateCols[i] {
			continue
		}
		fields[name] = make([]float64, 0, len(rows))
		fieldCols = append(fieldCols, i)
	}

	for n, row := range rows {
		if len(row) <= maxDateCol {
			return domain.Series{}, fmt.Errorf("row %d has %d columns, need date column %d", n+2, len(row), maxDateCol)
		}
		ts, err := parseDate(row, cfg)
		if err != nil {
			return domain.Series{}, fmt.Errorf("row %d: %w", n+2, err)
		}
		index = append(index, ts)

		for _, i := range fieldCols {
			v := math.NaN()
			if i < len(row) {
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64); err == nil {
					v = parsed
				}
			}
			name := header[i]
			fields[name] = append(fields[name], v)
		}
	}

	return domain.NewSeries(index, fields)
}

// checkDateHeader verifies that the header cells over the network's date
// columns, joined with underscores, spell the network's DateKey. A mismatch
// means the file is not in this network's layout.
func checkDateHeader(header []string, cfg network.Config) error {
	if cfg.DateKey == "" {
		return nil
	}
	parts := make([]string, len(cfg.DateColumns))
	for i, c := range cfg.DateColumns {
		if c >= len(header) {
			return fmt.Errorf("header has %d columns, need date column %d", len(header), c)
		}
		parts[i] = strings.TrimSpace(header[c])
	}
	if got := strings.Join(parts, "_"); got != cfg.DateKey {
		return fmt.Errorf("date header %q, want %q", got, cfg.DateKey)
	}
	return nil
}

// parseDate joins the network's date columns with a space and parses the
// result in UTC.
func parseDate(row []string, cfg network.Config) (time.Time, error) {
	parts := make([]string, len(cfg.DateColumns))
	for i, c := range cfg.DateColumns {
		parts[i] = strings.TrimSpace(row[c])
	}
	raw := strings.Join(parts, " ")

	ts, err := time.ParseInLocation(cfg.DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", raw, err)
	}
	return ts, nil
}
