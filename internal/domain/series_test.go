package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlyIndex(start time.Time, n int) []time.Time {
	index := make([]time.Time, n)
	for i := range index {
		index[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return index
}

func TestNewSeries(t *testing.T) {
	start := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("matching lengths", func(t *testing.T) {
		s, err := NewSeries(hourlyIndex(start, 3), map[string][]float64{
			"counts": {1, 2, 3},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, s.Len())
		assert.False(t, s.Empty())
	})

	t.Run("short column rejected", func(t *testing.T) {
		_, err := NewSeries(hourlyIndex(start, 3), map[string][]float64{
			"counts": {1, 2},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "counts")
	})
}

func TestSortByTime(t *testing.T) {
	start := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	s := Series{
		Index: []time.Time{start.Add(2 * time.Hour), start, start.Add(time.Hour)},
		Fields: map[string][]float64{
			"counts": {30, 10, 20},
		},
	}

	sorted := s.SortByTime()

	assert.Equal(t, []time.Time{start, start.Add(time.Hour), start.Add(2 * time.Hour)}, sorted.Index)
	col, ok := sorted.Field("counts")
	require.True(t, ok)
	assert.Equal(t, []float64{10, 20, 30}, col)

	// Input untouched.
	assert.Equal(t, []float64{30, 10, 20}, s.Fields["counts"])
}

func TestCovers(t *testing.T) {
	start := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	s := Series{Index: hourlyIndex(start, 24), Fields: map[string][]float64{}}

	tests := []struct {
		name     string
		from, to time.Time
		expected bool
	}{
		{"exact range", start, start.Add(23 * time.Hour), true},
		{"interior range", start.Add(2 * time.Hour), start.Add(10 * time.Hour), true},
		{"starts too early", start.Add(-time.Hour), start.Add(10 * time.Hour), false},
		{"ends too late", start, start.Add(24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Covers(tt.from, tt.to))
		})
	}

	t.Run("empty series covers nothing", func(t *testing.T) {
		empty := Series{}
		assert.False(t, empty.Covers(start, start))
	})
}

func TestSliceWindow(t *testing.T) {
	start := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	values := make([]float64, 24)
	for i := range values {
		values[i] = float64(i)
	}
	s := Series{Index: hourlyIndex(start, 24), Fields: map[string][]float64{"counts": values}}

	t.Run("both endpoints inclusive", func(t *testing.T) {
		sliced := s.SliceWindow(start.Add(2*time.Hour), start.Add(5*time.Hour))
		assert.Equal(t, 4, sliced.Len())
		col, _ := sliced.Field("counts")
		assert.Equal(t, []float64{2, 3, 4, 5}, col)
	})

	t.Run("endpoints between samples", func(t *testing.T) {
		sliced := s.SliceWindow(start.Add(90*time.Minute), start.Add(210*time.Minute))
		assert.Equal(t, 2, sliced.Len())
		col, _ := sliced.Field("counts")
		assert.Equal(t, []float64{2, 3}, col)
	})

	t.Run("window outside data", func(t *testing.T) {
		sliced := s.SliceWindow(start.Add(48*time.Hour), start.Add(72*time.Hour))
		assert.True(t, sliced.Empty())
	})
}

func TestWithField(t *testing.T) {
	start := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	s := Series{Index: hourlyIndex(start, 2), Fields: map[string][]float64{"counts": {1, 2}}}

	replaced := s.WithField("counts", []float64{10, 20})

	col, _ := replaced.Field("counts")
	assert.Equal(t, []float64{10, 20}, col)
	assert.Equal(t, []float64{1, 2}, s.Fields["counts"])
}

func TestFieldNames(t *testing.T) {
	s := Series{Fields: map[string][]float64{"b": nil, "a": nil, "c": nil}}
	assert.Equal(t, []string{"a", "b", "c"}, s.FieldNames())
}

func TestNanMean(t *testing.T) {
	assert.Equal(t, 2.0, nanMean([]float64{1, 2, 3}))
	assert.Equal(t, 2.0, nanMean([]float64{1, math.NaN(), 3}))
	assert.True(t, math.IsNaN(nanMean([]float64{math.NaN(), math.NaN()})))
	assert.True(t, math.IsNaN(nanMean(nil)))
}
