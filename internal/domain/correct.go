package domain

import (
	"fmt"
	"math"

	"github.com/glaciertide/neutronavg/internal/network"
)

// Attenuation-length polynomial coefficients from Desilets & Zreda 2003,
// Earth & Planetary Science Letters 206. Fixed empirical constants; the
// regression tests pin the evaluated polynomial against them.
const (
	atten0 = 5.4196e-3
	atten1 = 2.2082e-4
	atten2 = -5.1952e-7
	atten3 = 7.2062e-6
	atten4 = -1.9702e-6
	atten5 = -9.8334e-9
	atten6 = 3.4201e-9
	atten7 = 4.9898e-12
	atten8 = -1.7192e-12
)

// AttenuationCoefficient evaluates the Desilets & Zreda mass attenuation
// polynomial beta for a reference pressure (hPa) and cutoff rigidity (GV).
// Atmospheric depth is pressure * 0.981 g cm^-2.
func AttenuationCoefficient(pressure, rigidity float64) float64 {
	depth := pressure * 0.981
	return atten0 +
		atten1*rigidity +
		atten2*rigidity*rigidity +
		(atten3+atten4*rigidity)*depth +
		(atten5+atten6*rigidity)*depth*depth +
		(atten7+atten8*rigidity)*depth*depth*depth
}

// PressureFactors returns the per-sample pressure correction factor
// exp((P - P0) * beta(P0, rigidity)), where P0 is the series mean pressure.
// A flat pressure series therefore yields a factor of exactly 1 everywhere.
func PressureFactors(pressure []float64, rigidity float64) []float64 {
	p0 := nanMean(pressure)
	beta := AttenuationCoefficient(p0, rigidity)

	factors := make([]float64, len(pressure))
	for i, p := range pressure {
		factors[i] = math.Exp((p - p0) * beta)
	}
	return factors
}

// HumidityFactors returns the per-sample humidity correction factor
// 1 + 0.0054*(H - mean(H)).
func HumidityFactors(humidity []float64) []float64 {
	mean := nanMean(humidity)

	factors := make([]float64, len(humidity))
	for i, h := range humidity {
		factors[i] = 1 + 0.0054*(h-mean)
	}
	return factors
}

// Correct applies the network's pressure and humidity corrections to the
// configured data fields, multiplying each sample by both factors. Networks
// without a pressure or humidity field get a unit factor for that term.
func Correct(s Series, cfg network.Config, rigidity float64) (Series, error) {
	pFactors, err := correctionFactors(s, cfg.PressureField, func(col []float64) []float64 {
		return PressureFactors(col, rigidity)
	})
	if err != nil {
		return Series{}, err
	}
	hFactors, err := correctionFactors(s, cfg.HumidityField, HumidityFactors)
	if err != nil {
		return Series{}, err
	}

	out := s
	for _, field := range cfg.DataFields {
		col, ok := out.Field(field)
		if !ok {
			return Series{}, fmt.Errorf("correct: series has no field %q", field)
		}
		corrected := make([]float64, len(col))
		for i, v := range col {
			corrected[i] = v * pFactors[i] * hFactors[i]
		}
		out = out.WithField(field, corrected)
	}
	return out, nil
}

// correctionFactors computes factors from the named source field, or an
// all-ones slice when the network has no such field.
func correctionFactors(s Series, field string, fn func([]float64) []float64) ([]float64, error) {
	if field == "" {
		ones := make([]float64, s.Len())
		for i := range ones {
			ones[i] = 1
		}
		return ones, nil
	}
	col, ok := s.Field(field)
	if !ok {
		return nil, fmt.Errorf("correct: series has no field %q", field)
	}
	return fn(col), nil
}
