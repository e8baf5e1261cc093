package domain

import (
	"math"
	"sort"
)

// MaskQCFlags nulls out every sample whose QC flag is positive. flags maps
// a data field to its flag field; fields without a flag column in the
// series are left untouched.
func MaskQCFlags(s Series, flags map[string]string) Series {
	out := s
	for field, flagField := range flags {
		col, ok := out.Field(field)
		if !ok {
			continue
		}
		flagCol, ok := out.Field(flagField)
		if !ok {
			continue
		}
		masked := append([]float64(nil), col...)
		for i, f := range flagCol {
			if f > 0 {
				masked[i] = math.NaN()
			}
		}
		out = out.WithField(field, masked)
	}
	return out
}

// Percentile returns the value at percentile p (0-100) of the finite
// samples, using linear interpolation between closest ranks. NaN samples
// are ignored; an all-NaN input yields NaN.
func Percentile(values []float64, p float64) float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	sort.Float64s(finite)

	rank := p / 100 * float64(len(finite)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return finite[lo]
	}
	frac := rank - float64(lo)
	return finite[lo]*(1-frac) + finite[hi]*frac
}

// RemoveOutliers nulls out samples outside the [minPct, maxPct] percentile
// band for each target field, then fills every missing value by linear
// interpolation against sample position. The second return is the number of
// samples filled in, summed over the fields.
func RemoveOutliers(s Series, fields []string, minPct, maxPct float64) (Series, int) {
	out := s
	filled := 0
	for _, field := range fields {
		col, ok := out.Field(field)
		if !ok {
			continue
		}
		masked := outliersToNaN(col, minPct, maxPct)
		interpolated := InterpolateGaps(masked)
		for i := range masked {
			if math.IsNaN(masked[i]) && !math.IsNaN(interpolated[i]) {
				filled++
			}
		}
		out = out.WithField(field, interpolated)
	}
	return out, filled
}

// outliersToNaN returns a copy of values with samples outside the
// percentile band set to NaN.
func outliersToNaN(values []float64, minPct, maxPct float64) []float64 {
	minValue := Percentile(values, minPct)
	maxValue := Percentile(values, maxPct)

	masked := append([]float64(nil), values...)
	for i, v := range masked {
		if v > maxValue || v < minValue {
			masked[i] = math.NaN()
		}
	}
	return masked
}

// InterpolateGaps returns a copy of values with every NaN replaced by
// linear interpolation between its nearest finite neighbours, indexed by
// sample position. Leading and trailing gaps take the nearest finite value
// rather than staying NaN. A series with no finite value is returned
// unchanged.
func InterpolateGaps(values []float64) []float64 {
	out := append([]float64(nil), values...)

	prev := -1 // index of the last finite value seen
	for i := 0; i < len(out); i++ {
		if math.IsNaN(out[i]) {
			continue
		}
		if prev == -1 && i > 0 {
			// Leading gap: clamp to the first finite value.
			for j := 0; j < i; j++ {
				out[j] = out[i]
			}
		} else if prev >= 0 && i-prev > 1 {
			step := (out[i] - out[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				out[j] = out[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	if prev >= 0 {
		// Trailing gap: clamp to the last finite value.
		for j := prev + 1; j < len(out); j++ {
			out[j] = out[prev]
		}
	}
	return out
}
