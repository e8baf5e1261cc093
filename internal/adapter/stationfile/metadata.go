package stationfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/glaciertide/neutronavg/internal/network"
)

// Station is one row of the station metadata table: the station identifier
// and its geomagnetic cutoff rigidity in GV. Loaded once per run and never
// mutated.
type Station struct {
	Name           string
	CutoffRigidity float64
}

// LoadStations reads the network's station metadata table. Rows whose
// rigidity cell does not parse are rejected: a station with an unknown
// cutoff cannot be corrected or range-filtered.
func LoadStations(path string, cfg network.Config) ([]Station, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingPath, path)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = cfg.MetaSeparator
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("read %s: no station rows", path)
	}

	nameCol, rigidityCol := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case cfg.MetaNameColumn:
			nameCol = i
		case cfg.MetaRigidityColumn:
			rigidityCol = i
		}
	}
	if nameCol < 0 || rigidityCol < 0 {
		return nil, fmt.Errorf("read %s: missing column %q or %q", path, cfg.MetaNameColumn, cfg.MetaRigidityColumn)
	}

	stations := make([]Station, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if nameCol >= len(row) || rigidityCol >= len(row) {
			return nil, fmt.Errorf("read %s: row %d is short", path, n+2)
		}
		rigidity, err := strconv.ParseFloat(strings.TrimSpace(row[rigidityCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("read %s: row %d: rigidity %q: %w", path, n+2, row[rigidityCol], err)
		}
		stations = append(stations, Station{
			Name:           strings.TrimSpace(row[nameCol]),
			CutoffRigidity: rigidity,
		})
	}
	return stations, nil
}
