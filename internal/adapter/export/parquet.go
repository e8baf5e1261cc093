package export

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/glaciertide/neutronavg/internal/pipeline"
)

// averagedRow is the long-format Parquet schema for the result table: one
// row per (timestamp, field) pair. Long format keeps the schema fixed
// across networks with different field sets.
type averagedRow struct {
	Time         int64   `parquet:"time"` // Unix seconds, UTC
	Field        string  `parquet:"field"`
	RelChangePct float64 `parquet:"rel_change_pct"`
	ErrorPct     float64 `parquet:"error_pct"`
}

// stationRow is the Parquet schema for the contributing stations log.
type stationRow struct {
	Station          string  `parquet:"station"`
	CutoffRigidityGV float64 `parquet:"cutoff_rigidity_gv"`
}

func writeParquet[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return f.Close()
}

// WriteResultParquet writes the relative-change table in long format.
func WriteResultParquet(path string, result *pipeline.Result) error {
	rows := make([]averagedRow, 0, len(result.Index)*len(result.Fields))
	for i, t := range result.Index {
		for _, field := range result.Fields {
			rows = append(rows, averagedRow{
				Time:         t.UTC().Unix(),
				Field:        field.Name,
				RelChangePct: field.RelChangePct[i],
				ErrorPct:     field.ErrorPct[i],
			})
		}
	}
	return writeParquet(path, rows)
}

// WriteStationsParquet writes the contributing stations log.
func WriteStationsParquet(path string, result *pipeline.Result) error {
	rows := make([]stationRow, 0, result.Stations.Len())
	for i, name := range result.Stations.Names {
		rows = append(rows, stationRow{
			Station:          name,
			CutoffRigidityGV: result.Stations.Rigidities[i],
		})
	}
	return writeParquet(path, rows)
}
