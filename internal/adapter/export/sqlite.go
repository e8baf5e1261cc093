package export

import (
	"database/sql"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"github.com/glaciertide/neutronavg/internal/pipeline"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	network     TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS averaged_series (
	run_id         INTEGER NOT NULL REFERENCES runs(id),
	time           TEXT NOT NULL,
	field          TEXT NOT NULL,
	rel_change_pct REAL,
	error_pct      REAL,
	PRIMARY KEY (run_id, time, field)
);
CREATE TABLE IF NOT EXISTS contributing_stations (
	run_id              INTEGER NOT NULL REFERENCES runs(id),
	station             TEXT NOT NULL,
	cutoff_rigidity_gv  REAL NOT NULL,
	PRIMARY KEY (run_id, station)
);
`

// WriteSQLite stores the result in a single-file SQLite database: one runs
// row plus the averaged series and contributing stations keyed by it. The
// whole write is one transaction, so a failed run leaves no partial rows.
func WriteSQLite(path string, result *pipeline.Result) error {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO runs (network, started_at, finished_at) VALUES (?, ?, ?)",
		result.Network,
		result.StartedAt.UTC().Format(timeLayout),
		result.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite run id: %w", err)
	}

	seriesStmt, err := tx.Prepare(
		"INSERT INTO averaged_series (run_id, time, field, rel_change_pct, error_pct) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer seriesStmt.Close()

	for i, t := range result.Index {
		ts := t.UTC().Format(timeLayout)
		for _, field := range result.Fields {
			if _, err := seriesStmt.Exec(runID, ts, field.Name,
				nullableFloat(field.RelChangePct[i]), nullableFloat(field.ErrorPct[i])); err != nil {
				return fmt.Errorf("sqlite insert series: %w", err)
			}
		}
	}

	for i, name := range result.Stations.Names {
		if _, err := tx.Exec(
			"INSERT INTO contributing_stations (run_id, station, cutoff_rigidity_gv) VALUES (?, ?, ?)",
			runID, name, result.Stations.Rigidities[i]); err != nil {
			return fmt.Errorf("sqlite insert station: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return db.Close()
}

// nullableFloat maps non-finite values to NULL; SQLite has no NaN literal.
func nullableFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
