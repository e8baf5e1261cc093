package domain

// BaselineWindow is the number of leading samples averaged to form the
// relative-change baseline. At the hourly cadence the networks publish,
// 48 samples is the first two days of the window.
const BaselineWindow = 48

// RelativeChange rebases a series to the mean of its first BaselineWindow
// samples, expressing every value as a percentage deviation from that
// baseline. A zero or all-missing baseline yields non-finite values, which
// propagate as-is.
func RelativeChange(values []float64) []float64 {
	window := values
	if len(window) > BaselineWindow {
		window = window[:BaselineWindow]
	}
	baseline := nanMean(window)

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - baseline) / baseline * 100
	}
	return out
}

// NormalizeError expresses a Poisson error series as a percentage of the
// original averaged values. The denominator is the averaged value, not the
// relative-change value, so the error stays meaningful around the zero
// crossings of the rebased series.
func NormalizeError(errPct, values []float64) []float64 {
	out := make([]float64, len(errPct))
	for i := range errPct {
		out[i] = errPct[i] / values[i] * 100
	}
	return out
}
