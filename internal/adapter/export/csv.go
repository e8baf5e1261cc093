// Package export writes the averaging result to its output sinks: CSV
// (always), and optionally Parquet, SQLite, or a Prometheus textfile dump.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/glaciertide/neutronavg/internal/pipeline"
)

// timeLayout is the timestamp format for CSV output.
const timeLayout = "2006-01-02 15:04:05"

// WriteResultCSV writes the relative-change table: a Time column followed
// by one value and one error column per averaged field.
func WriteResultCSV(path string, result *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"Time"}
	for _, field := range result.Fields {
		header = append(header, field.Name, field.ErrorName)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, t := range result.Index {
		row[0] = t.UTC().Format(timeLayout)
		for j, field := range result.Fields {
			row[1+2*j] = formatFloat(field.RelChangePct[i])
			row[2+2*j] = formatFloat(field.ErrorPct[i])
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteStationsCSV writes the contributing stations log.
func WriteStationsCSV(path string, result *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"station", "cutoff_rigidity_gv"}); err != nil {
		return err
	}
	for i, name := range result.Stations.Names {
		if err := w.Write([]string{name, formatFloat(result.Stations.Rigidities[i])}); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
