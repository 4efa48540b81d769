package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the magnitude of each non-negative frequency bin of
// the mean-removed series. Bin i corresponds to i/len(data) cycles per sample.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	mean := stat.Mean(data, nil)
	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	fft := fourier.NewFFT(len(data))
	coeffs := fft.Coefficients(nil, centered)
	ps := make([]float64, len(coeffs))
	for i, c := range coeffs {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantPeriod returns the period, in the units of spacing, of the
// strongest non-constant component of data. ok is false when the series is
// too short or flat.
func DominantPeriod(data []float64, spacing float64) (period float64, ok bool) {
	ps := PowerSpectrum(data)
	if len(ps) < 2 {
		return 0, false
	}
	best := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	if best == 0 || ps[best] == 0 {
		return 0, false
	}
	fft := fourier.NewFFT(len(data))
	return spacing / fft.Freq(best), true
}

// Crossings returns the interpolated positions where values rises through
// threshold. x holds the abscissa of each value.
func Crossings(x, values []float64, threshold float64) []float64 {
	var out []float64
	for i := 1; i < len(values) && i < len(x); i++ {
		prev, curr := values[i-1], values[i]
		if prev < threshold && curr >= threshold {
			frac := (threshold - prev) / (curr - prev)
			out = append(out, x[i-1]+frac*(x[i]-x[i-1]))
		}
	}
	return out
}
