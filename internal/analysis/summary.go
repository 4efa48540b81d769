package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes one metric series. SettleIndex is the first index from
// which every later value stays within the settling band around Final, or -1
// for an empty series.
type Summary struct {
	Count       int
	Mean        float64
	StdDev      float64
	Min         float64
	Max         float64
	Final       float64
	SettleIndex int
}

// Summarize computes a Summary. tolerance is the half width of the
// settling band as a fraction of the series range.
func Summarize(values []float64, tolerance float64) Summary {
	s := Summary{Count: len(values), SettleIndex: -1}
	if len(values) == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		s.StdDev = 0
	}
	s.Min, s.Max = floats.Min(values), floats.Max(values)
	s.Final = values[len(values)-1]

	band := tolerance * (s.Max - s.Min)
	s.SettleIndex = len(values) - 1
	for i := len(values) - 1; i >= 0; i-- {
		if math.Abs(values[i]-s.Final) > band {
			break
		}
		s.SettleIndex = i
	}
	return s
}
