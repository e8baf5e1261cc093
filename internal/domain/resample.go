package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/glaciertide/neutronavg/internal/network"
)

// ResampleRatioError is the fatal configuration error for cadence pairs the
// resampler does not support.
type ResampleRatioError struct {
	Original time.Duration
	Target   time.Duration
}

func (e *ResampleRatioError) Error() string {
	return fmt.Sprintf("target cadence %s must be n * original cadence %s for integer n >= 1",
		e.Target, e.Original)
}

// Resample aligns a station's native cadence to the target cadence. Equal
// cadences snap each sample to the nearest point of the regular target
// grid; a target that is an exact integer multiple of the original
// aggregates each bucket with the network's per-field reducer. Anything
// else is a configuration error.
func Resample(s Series, cfg network.Config, original, target time.Duration) (Series, error) {
	switch {
	case original == target:
		return snapToGrid(s, target), nil
	case target > original && target%original == 0:
		return aggregate(s, cfg, target), nil
	default:
		return Series{}, &ResampleRatioError{Original: original, Target: target}
	}
}

// snapToGrid assigns each regular grid point the value of the nearest
// original sample. The grid spans floor(first) to floor(last) inclusive.
func snapToGrid(s Series, cadence time.Duration) Series {
	if s.Empty() {
		return s
	}

	first := s.Index[0].Truncate(cadence)
	last := s.Index[s.Len()-1].Truncate(cadence)
	n := int(last.Sub(first)/cadence) + 1

	index := make([]time.Time, n)
	nearest := make([]int, n)
	src := 0
	for i := 0; i < n; i++ {
		t := first.Add(time.Duration(i) * cadence)
		index[i] = t
		// Advance while the next sample is closer to t.
		for src+1 < s.Len() && absDuration(s.Index[src+1].Sub(t)) <= absDuration(s.Index[src].Sub(t)) {
			src++
		}
		nearest[i] = src
	}

	fields := make(map[string][]float64, len(s.Fields))
	for name, col := range s.Fields {
		snapped := make([]float64, n)
		for i, j := range nearest {
			snapped[i] = col[j]
		}
		fields[name] = snapped
	}
	return Series{Index: index, Fields: fields}
}

// aggregate buckets samples into [t, t+cadence) windows and reduces each
// bucket per field. Missing values are skipped; an empty sum bucket is 0
// and an empty mean bucket is NaN.
func aggregate(s Series, cfg network.Config, cadence time.Duration) Series {
	if s.Empty() {
		return s
	}

	first := s.Index[0].Truncate(cadence)
	last := s.Index[s.Len()-1].Truncate(cadence)
	n := int(last.Sub(first)/cadence) + 1

	index := make([]time.Time, n)
	for i := range index {
		index[i] = first.Add(time.Duration(i) * cadence)
	}
	bucket := make([]int, s.Len())
	for i, t := range s.Index {
		bucket[i] = int(t.Truncate(cadence).Sub(first) / cadence)
	}

	fields := make(map[string][]float64, len(s.Fields))
	for name, col := range s.Fields {
		reducer, ok := cfg.Reducers[name]
		if !ok {
			// Fields without a reducer are dropped, mirroring the archive
			// aggregation maps which enumerate every retained column.
			continue
		}
		sums := make([]float64, n)
		counts := make([]int, n)
		for i, v := range col {
			if math.IsNaN(v) {
				continue
			}
			sums[bucket[i]] += v
			counts[bucket[i]]++
		}
		reduced := make([]float64, n)
		for i := range reduced {
			switch {
			case reducer == network.ReduceMean && counts[i] == 0:
				reduced[i] = math.NaN()
			case reducer == network.ReduceMean:
				reduced[i] = sums[i] / float64(counts[i])
			default:
				reduced[i] = sums[i]
			}
		}
		fields[name] = reduced
	}
	return Series{Index: index, Fields: fields}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
