package fluid

import (
	"math"
	"math/rand"

	"github.com/san-kum/sphsim/internal/grid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Emitter injects particles at a point with an initial velocity. Angles are
// in degrees; pitch is measured from the +Y axis and yaw around it.
type Emitter struct {
	Position    r3.Vec  // world scale
	Speed       float64 // simulation scale; m/s
	Yaw         float64
	Pitch       float64
	YawSpread   float64
	PitchSpread float64
}

// Direction returns the emission velocity for the given angular offsets.
func (e *Emitter) Direction(yawOffset, pitchOffset float64) r3.Vec {
	yaw := (e.Yaw + yawOffset) * math.Pi / 180
	pitch := (e.Pitch + pitchOffset) * math.Pi / 180
	return r3.Vec{
		X: math.Cos(yaw) * math.Sin(pitch) * e.Speed,
		Y: math.Cos(pitch) * e.Speed,
		Z: math.Sin(yaw) * math.Sin(pitch) * e.Speed,
	}
}

// Emit adds n particles in a square patch spacing apart in the XY plane,
// each with a velocity jittered within the spread. rng may be nil when both
// spreads are zero.
func (e *Emitter) Emit(f *Sph, n int, spacing float64, rng *rand.Rand) int {
	if n <= 0 {
		return 0
	}
	side := max(int(math.Sqrt(float64(n))), 1)

	added := 0
	for i := 0; i < n; i++ {
		var dy, dp float64
		if rng != nil {
			dy = (rng.Float64()*2 - 1) * e.YawSpread
			dp = (rng.Float64()*2 - 1) * e.PitchSpread
		}
		pos := r3.Add(e.Position, r3.Vec{
			X: spacing * float64(i/side),
			Y: spacing * float64(i%side),
		})
		idx := f.AddParticle(pos)
		if idx == grid.InvalidIndex {
			break
		}
		f.SetVelocity(idx, e.Direction(dy, dp))
		added++
	}
	return added
}

// AddVolume fills [min, max] with particles on a lattice with the given
// world-scale spacing, stopping early if the fluid is full. Returns the
// number of particles added.
func AddVolume(f *Sph, min, max r3.Vec, spacing float64) int {
	if !(spacing > 0) {
		return 0
	}
	added := 0
	for z := min.Z; z <= max.Z; z += spacing {
		for y := min.Y; y <= max.Y; y += spacing {
			for x := min.X; x <= max.X; x += spacing {
				if f.NumParticles() >= f.MaxParticles() {
					return added
				}
				f.AddParticle(r3.Vec{X: x, Y: y, Z: z})
				added++
			}
		}
	}
	return added
}
