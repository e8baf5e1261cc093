package stationfile

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/glaciertide/neutronavg/internal/domain"
)

// ImportSOHO reads a SOHO/CELIAS proton monitor table: whitespace-separated
// columns where the timestamp is split across a two-digit year column "YY"
// and a combined "DOY:HH:MM:SS" day-of-year column. The redundant MON and
// DY columns are dropped; every remaining column is returned as a float
// field.
func ImportSOHO(path string) (domain.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Series{}, fmt.Errorf("%w: %s", ErrMissingPath, path)
		}
		return domain.Series{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var header []string
	var rows [][]string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cols := strings.Fields(line)
		if header == nil {
			header = cols
			continue
		}
		rows = append(rows, cols)
	}
	if err := scanner.Err(); err != nil {
		return domain.Series{}, fmt.Errorf("read %s: %w", path, err)
	}
	if header == nil {
		return domain.Series{}, fmt.Errorf("read %s: empty file", path)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[h] = i
	}
	yearCol, ok := colIdx["YY"]
	if !ok {
		return domain.Series{}, fmt.Errorf("read %s: missing YY column", path)
	}
	doyCol, ok := colIdx["DOY:HH:MM:SS"]
	if !ok {
		return domain.Series{}, fmt.Errorf("read %s: missing DOY:HH:MM:SS column", path)
	}
	dropped := map[int]bool{yearCol: true, doyCol: true}
	for _, name := range []string{"MON", "DY"} {
		if i, ok := colIdx[name]; ok {
			dropped[i] = true
		}
	}

	index := make([]time.Time, 0, len(rows))
	fields := make(map[string][]float64)
	for n, row := range rows {
		if len(row) != len(header) {
			return domain.Series{}, fmt.Errorf("read %s: row %d has %d columns, want %d", path, n+2, len(row), len(header))
		}
		ts, err := parseSOHOTime(row[yearCol], row[doyCol])
		if err != nil {
			return domain.Series{}, fmt.Errorf("read %s: row %d: %w", path, n+2, err)
		}
		index = append(index, ts)

		for i, cell := range row {
			if dropped[i] {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				v = math.NaN()
			}
			fields[header[i]] = append(fields[header[i]], v)
		}
	}

	return domain.NewSeries(index, fields)
}

// parseSOHOTime combines a two-digit year with a "DOY:HH:MM:SS" field.
// Two-digit years follow the usual 69-pivot convention (98 -> 1998,
// 04 -> 2004).
func parseSOHOTime(yy, doyClock string) (time.Time, error) {
	year, err := strconv.Atoi(yy)
	if err != nil {
		return time.Time{}, fmt.Errorf("year %q: %w", yy, err)
	}
	if year >= 69 {
		year += 1900
	} else {
		year += 2000
	}

	parts := strings.Split(doyClock, ":")
	if len(parts) != 4 {
		return time.Time{}, fmt.Errorf("timestamp %q: want DOY:HH:MM:SS", doyClock)
	}
	nums := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp %q: %w", doyClock, err)
		}
		nums[i] = n
	}

	jan1 := time.Date(year, time.January, 1, nums[1], nums[2], nums[3], 0, time.UTC)
	return jan1.AddDate(0, 0, nums[0]-1), nil
}
