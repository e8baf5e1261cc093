// Package network holds the closed set of supported neutron monitoring
// network configurations. Every per-network convention (file layout, date
// format, field lists, resampling reducers, QC flag mapping) lives in one
// immutable Config record resolved through Lookup, so no other package
// branches on network identity.
package network

import (
	"fmt"
	"time"
)

// Known network identifiers. These match the operator strings used by the
// data archives themselves and are not user-extensible at runtime.
const (
	CosmosUK = "COSMOS-UK"
	CosmosUS = "COSMOS-US"
	NMDB     = "NMDB"
)

// Reducer selects how a field is aggregated when downsampling.
type Reducer int

const (
	// ReduceSum adds all samples in a bucket, skipping missing values.
	// Used for raw counts and QC flag tallies.
	ReduceSum Reducer = iota
	// ReduceMean averages the samples in a bucket, skipping missing values.
	// Used for environmental fields (pressure, humidity, temperature).
	ReduceMean
)

// Config describes one network's file and field conventions.
type Config struct {
	// Name is the canonical network identifier.
	Name string

	// Station metadata table conventions.
	MetaSeparator      rune
	MetaNameColumn     string
	MetaRigidityColumn string

	// LengthModifier adjusts the expected resampled series length for the
	// network's inclusive/exclusive window boundary convention:
	// expected = (stop-start)/cadence + LengthModifier.
	LengthModifier int

	// FileExtension is appended to the station name to form its data file.
	FileExtension string

	// DataFields are the measured count fields that are corrected, averaged
	// and reported. ErrorFields are the matching output error column names.
	DataFields  []string
	ErrorFields []string

	// Data file conventions. DateColumns are the zero-based columns combined
	// (space-joined) to form the timestamp, parsed with DateLayout. DateKey
	// is the underscore-joined header expected over those columns; the
	// importer rejects files whose header disagrees.
	// WhitespaceSeparated selects fields-split parsing instead of a single
	// FileSeparator rune.
	DateKey             string
	DateColumns         []int
	DateLayout          string
	FileSeparator       rune
	WhitespaceSeparated bool

	// Reducers maps every retained field to its downsampling reducer.
	Reducers map[string]Reducer

	// QCFlags maps a data field to its QC flag field for networks that
	// publish per-sample quality codes. Nil when the network has none.
	QCFlags map[string]string

	// Correction source fields. Empty when the network does not expose the
	// measurement; the corresponding correction factor is then unity.
	PressureField string
	HumidityField string
}

// HasQC reports whether the network publishes per-sample QC flags.
func (c Config) HasQC() bool { return len(c.QCFlags) > 0 }

// ExpectedLength returns the resampled series length required for a full
// [start, stop] window at the given cadence.
func (c Config) ExpectedLength(start, stop time.Time, cadence time.Duration) int {
	return int(stop.Sub(start)/cadence) + c.LengthModifier
}

// registry is the closed configuration set. Adding a network means adding
// one entry here and nowhere else.
var registry = map[string]Config{
	CosmosUS: {
		Name:                CosmosUS,
		MetaSeparator:       '\t',
		MetaNameColumn:      "SiteName",
		MetaRigidityColumn:  "CutoffRigidity",
		LengthModifier:      0,
		FileExtension:       ".txt",
		DataFields:          []string{"MOD", "UNMO"},
		ErrorFields:         []string{"E_MOD", "E_UNMO"},
		DateKey:             "Date_Time",
		DateColumns:         []int{0, 1},
		DateLayout:          "2006/01/02 15:04",
		WhitespaceSeparated: true,
		Reducers: map[string]Reducer{
			"MOD":   ReduceSum,
			"UNMO":  ReduceSum,
			"PRESS": ReduceMean,
			"TEM":   ReduceMean,
			"RH":    ReduceMean,
			"BATT":  ReduceMean,
		},
		PressureField: "PRESS",
	},
	CosmosUK: {
		Name:               CosmosUK,
		MetaSeparator:      ',',
		MetaNameColumn:     "SITE_ID",
		MetaRigidityColumn: "CutoffRigidity",
		LengthModifier:     1,
		FileExtension:      ".csv",
		DataFields:         []string{"CTS_MOD"},
		ErrorFields:        []string{"E_CTS_MOD"},
		DateKey:            "DATE_TIME",
		DateColumns:        []int{2},
		DateLayout:         "2006-01-02 15:04:05",
		FileSeparator:      ',',
		Reducers: map[string]Reducer{
			"CTS_MOD":         ReduceSum,
			"CTS_MOD2":        ReduceSum,
			"CTS_BARE":        ReduceSum,
			"PA":              ReduceMean,
			"Q":               ReduceMean,
			"CTS_MOD_QCFLAG":  ReduceSum,
			"CTS_MOD2_QCFLAG": ReduceSum,
			"CTS_BARE_QCFLAG": ReduceSum,
			"PA_QCFLAG":       ReduceSum,
			"Q_QCFLAG":        ReduceSum,
		},
		QCFlags: map[string]string{
			"CTS_MOD":  "CTS_MOD_QCFLAG",
			"CTS_MOD2": "CTS_MOD2_QCFLAG",
			"CTS_BARE": "CTS_BARE_QCFLAG",
			"PA":       "PA_QCFLAG",
			"Q":        "Q_QCFLAG",
		},
		PressureField: "PA",
		HumidityField: "Q",
	},
	NMDB: {
		Name:               NMDB,
		MetaSeparator:      ';',
		MetaNameColumn:     "Station",
		MetaRigidityColumn: "CutoffRigidity",
		LengthModifier:     1,
		FileExtension:      ".txt",
		DataFields:         []string{"counts"},
		ErrorFields:        []string{"E_counts"},
		DateKey:            "DateTime",
		DateColumns:        []int{0},
		DateLayout:         "2006-01-02 15:04:05",
		FileSeparator:      ';',
		Reducers: map[string]Reducer{
			"counts": ReduceSum,
		},
		// NMDB publishes station-corrected counts without the raw pressure
		// or humidity series, so both correction factors stay at unity.
	},
}

// UnknownNetworkError is the fatal configuration error returned when a
// network identifier is not in the registry.
type UnknownNetworkError struct {
	Name string
}

func (e *UnknownNetworkError) Error() string {
	return fmt.Sprintf("%q is not a valid network: must be one of %q, %q, or %q",
		e.Name, CosmosUK, CosmosUS, NMDB)
}

// Lookup resolves a network identifier to its configuration.
func Lookup(name string) (Config, error) {
	cfg, ok := registry[name]
	if !ok {
		return Config{}, &UnknownNetworkError{Name: name}
	}
	return cfg, nil
}

// Names returns the known network identifiers.
func Names() []string {
	return []string{CosmosUK, CosmosUS, NMDB}
}
