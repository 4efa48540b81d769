package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// VecIsFinite reports whether every component of v is neither NaN nor Inf.
func VecIsFinite(v r3.Vec) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ClampLength scales v down so that |v| <= limit. Vectors already within
// the limit are returned unchanged.
func ClampLength(v r3.Vec, limit float64) r3.Vec {
	n2 := r3.Norm2(v)
	if n2 <= limit*limit || n2 == 0 {
		return v
	}
	return r3.Scale(limit/math.Sqrt(n2), v)
}
