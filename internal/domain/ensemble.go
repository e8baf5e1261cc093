package domain

import (
	"fmt"
	"math"
)

// Ensemble stacks one field's corrected, aligned series from every
// contributing station: rows are stations, columns are timestamps. Rows
// that do not match the column count are rejected before joining, never
// truncated.
type Ensemble struct {
	columns int
	rows    [][]float64
}

// NewEnsemble creates an ensemble with a fixed column count.
func NewEnsemble(columns int) *Ensemble {
	return &Ensemble{columns: columns}
}

// AddRow appends one station's series to the ensemble.
func (e *Ensemble) AddRow(values []float64) error {
	if len(values) != e.columns {
		return fmt.Errorf("ensemble row has %d samples, want %d", len(values), e.columns)
	}
	e.rows = append(e.rows, append([]float64(nil), values...))
	return nil
}

// Rows returns the number of contributing stations.
func (e *Ensemble) Rows() int { return len(e.rows) }

// AveragedSeries is the cross-station combination of one field: the
// ensemble mean and the Poisson percentage error, aligned to the shared
// timestamp index. Derived once; never mutated.
type AveragedSeries struct {
	Value    []float64
	ErrorPct []float64
}

// Combine sums across station rows ignoring missing values, counts the
// live stations per timestamp, and derives the mean and the Poisson
// percentage error sqrt(sum)/sum*100. The error is defined on the summed
// counts, not the averaged ones: the ensemble total is the Poisson
// variable, so adding a station to the network tightens the error.
func (e *Ensemble) Combine() AveragedSeries {
	sums := make([]float64, e.columns)
	counts := make([]float64, e.columns)
	for _, row := range e.rows {
		for i, v := range row {
			if math.IsNaN(v) {
				continue
			}
			sums[i] += v
			counts[i]++
		}
	}

	value := make([]float64, e.columns)
	errPct := make([]float64, e.columns)
	for i := range sums {
		value[i] = sums[i] / counts[i]
		errPct[i] = math.Sqrt(sums[i]) / sums[i] * 100
	}
	return AveragedSeries{Value: value, ErrorPct: errPct}
}

// ContributingStations records which stations passed every filter, in
// acceptance order. The two lists are parallel-indexed and append-only
// during a run.
type ContributingStations struct {
	Names      []string
	Rigidities []float64
}

// Append records one accepted station.
func (c *ContributingStations) Append(name string, rigidity float64) {
	c.Names = append(c.Names, name)
	c.Rigidities = append(c.Rigidities, rigidity)
}

// Len returns the number of contributing stations.
func (c *ContributingStations) Len() int { return len(c.Names) }
