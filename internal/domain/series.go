package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Series is an ordered time series: a shared timestamp index plus named
// float64 columns of equal length. Missing samples are NaN. Transform
// functions in this package never mutate their input; they return a new
// Series with replaced columns so each pipeline stage stays independently
// testable.
type Series struct {
	Index  []time.Time
	Fields map[string][]float64
}

// NewSeries builds a Series, verifying every column matches the index length.
func NewSeries(index []time.Time, fields map[string][]float64) (Series, error) {
	for name, col := range fields {
		if len(col) != len(index) {
			return Series{}, fmt.Errorf("column %q has %d values for %d timestamps", name, len(col), len(index))
		}
	}
	return Series{Index: index, Fields: fields}, nil
}

// Len returns the number of samples in the series.
func (s Series) Len() int { return len(s.Index) }

// Empty reports whether the series holds no samples.
func (s Series) Empty() bool { return len(s.Index) == 0 }

// Field returns the named column, or false when absent.
func (s Series) Field(name string) ([]float64, bool) {
	col, ok := s.Fields[name]
	return col, ok
}

// FieldNames returns the column names in sorted order.
func (s Series) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithField returns a copy of the series with one column replaced.
func (s Series) WithField(name string, values []float64) Series {
	fields := make(map[string][]float64, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}
	fields[name] = values
	return Series{Index: s.Index, Fields: fields}
}

// SortByTime returns the series reordered by ascending timestamp. The sort
// is stable so duplicate timestamps keep their file order.
func (s Series) SortByTime() Series {
	order := make([]int, s.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Index[order[a]].Before(s.Index[order[b]])
	})

	index := make([]time.Time, s.Len())
	for i, j := range order {
		index[i] = s.Index[j]
	}
	fields := make(map[string][]float64, len(s.Fields))
	for name, col := range s.Fields {
		sorted := make([]float64, len(col))
		for i, j := range order {
			sorted[i] = col[j]
		}
		fields[name] = sorted
	}
	return Series{Index: index, Fields: fields}
}

// Covers reports whether the series' timestamp range fully spans
// [start, stop].
func (s Series) Covers(start, stop time.Time) bool {
	if s.Empty() {
		return false
	}
	return !s.Index[0].After(start) && !s.Index[s.Len()-1].Before(stop)
}

// SliceWindow returns the samples with start <= t <= stop. Both endpoints
// are inclusive, matching the archive slicing convention; the per-network
// length modifier accounts for the boundary sample.
func (s Series) SliceWindow(start, stop time.Time) Series {
	lo := sort.Search(s.Len(), func(i int) bool { return !s.Index[i].Before(start) })
	hi := sort.Search(s.Len(), func(i int) bool { return s.Index[i].After(stop) })
	if lo >= hi {
		return Series{Fields: map[string][]float64{}}
	}

	index := append([]time.Time(nil), s.Index[lo:hi]...)
	fields := make(map[string][]float64, len(s.Fields))
	for name, col := range s.Fields {
		fields[name] = append([]float64(nil), col[lo:hi]...)
	}
	return Series{Index: index, Fields: fields}
}

// nanMean returns the mean of the finite values, or NaN when there are none.
func nanMean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
