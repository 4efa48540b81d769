package solver

import (
	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

const integrateChunk = 256

// integrate advances velocities and positions with a leapfrog scheme.
//
// The eval velocity is the mean of the old and new velocity and is taken
// before the boundary response. Particles that end up outside the volume
// are clamped onto it and lose the outward component of both velocities.
// The external acceleration accumulator is cleared afterwards.
func integrate(fg *fluid.GlobalParameters, f *fluid.Sph) {
	p := f.Particles()
	fl := f.LocalParameters()
	dt := fg.TimeStep
	posScale := dt / fg.SimulationScale
	gravity := fg.PlaneGravity
	usePoint := fg.PointGravity > 0

	dynamo.ParallelFor(p.Len(), integrateChunk, func(start, end int) {
		for i := start; i < end; i++ {
			accel := r3.Add(r3.Add(p.SphAccel[i], p.ExternalAccel[i]), gravity)
			if usePoint {
				toCenter := r3.Sub(p.Pos[i], fg.PointGravityPosition)
				if r3.Norm2(toCenter) > 0 {
					accel = r3.Sub(accel, r3.Scale(fg.PointGravity, r3.Unit(toCenter)))
				}
			}

			vel := p.Vel[i]
			next := dynamo.ClampLength(r3.Add(vel, r3.Scale(dt, accel)), fg.SpeedLimit)
			eval := r3.Scale(0.5, r3.Add(vel, next))
			pos := r3.Add(p.Pos[i], r3.Scale(posScale, next))

			pos.X, next.X, eval.X = clampAxis(pos.X, next.X, eval.X, fl.VolumeMin.X, fl.VolumeMax.X)
			pos.Y, next.Y, eval.Y = clampAxis(pos.Y, next.Y, eval.Y, fl.VolumeMin.Y, fl.VolumeMax.Y)
			pos.Z, next.Z, eval.Z = clampAxis(pos.Z, next.Z, eval.Z, fl.VolumeMin.Z, fl.VolumeMax.Z)

			p.Pos[i] = pos
			p.Vel[i] = next
			p.VelEval[i] = eval
			p.ExternalAccel[i] = r3.Vec{}
		}
	})
}

// clampAxis keeps x within [lo, hi] and zeroes velocity components that
// point out of the volume at a wall.
func clampAxis(x, v, ve, lo, hi float64) (float64, float64, float64) {
	switch {
	case x < lo:
		x = lo
		if v < 0 {
			v = 0
		}
		if ve < 0 {
			ve = 0
		}
	case x > hi:
		x = hi
		if v > 0 {
			v = 0
		}
		if ve > 0 {
			ve = 0
		}
	}
	return x, v, ve
}
