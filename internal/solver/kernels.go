package solver

import (
	"github.com/san-kum/sphsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// minPairDistance below which a pair is treated as coincident and skipped
// by the force pass. The direction of d is undefined there.
const minPairDistance = 1e-12

// poly6Term returns (h^2 - r2)^3, or 0 outside the support.
func poly6Term(r2, h2 float64) float64 {
	if r2 >= h2 {
		return 0
	}
	c := h2 - r2
	return c * c * c
}

func pressure(density float64, fl *fluid.LocalParameters) float64 {
	return max(0, (density-fl.RestDensity)*fl.Stiffness)
}

// pairForce is the contribution of particle j to the acceleration of
// particle i, before multiplying by particle mass. d is x_i - x_j at
// simulation scale and r = |d|. Swapping i and j negates the result.
func pairForce(fg *fluid.GlobalParameters, visc float64, d r3.Vec, r, pi, pj, rhoi, rhoj float64, vi, vj r3.Vec) r3.Vec {
	c := fg.SmoothRadius() - r
	pterm := -0.5 * c * fg.SpikyKern() * (pi + pj) / r
	vterm := fg.LapKern() * visc
	dterm := c / (rhoi * rhoj)

	f := r3.Add(r3.Scale(pterm, d), r3.Scale(vterm, r3.Sub(vj, vi)))
	return r3.Scale(dterm, f)
}
