package contact

import (
	"github.com/san-kum/sphsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultEpsilon is the world-scale overlap below which a contact is
// treated as touching rather than penetrating.
const DefaultEpsilon = 1e-6

// Resolver applies spring-damper penalty accelerations to fluid particles
// that overlap host objects.
type Resolver struct {
	// ApplyReaction pushes the opposite force onto dynamic objects that
	// implement ForceReceiver. Off by default.
	ApplyReaction bool
	Epsilon       float64
}

func NewResolver() *Resolver {
	return &Resolver{Epsilon: DefaultEpsilon}
}

// Resolve applies every contact to f and returns how many produced an
// acceleration. Contacts referring to particles that no longer exist are
// skipped.
func (r *Resolver) Resolve(fg *fluid.GlobalParameters, f *fluid.Sph, contacts []Contact) int {
	fl := f.LocalParameters()
	n := 0
	for i := range contacts {
		c := &contacts[i]
		if c.ParticleIndex < 0 || c.ParticleIndex >= f.NumParticles() {
			continue
		}
		accel, ok := r.Acceleration(fg, &fl, f.EvalVelocity(c.ParticleIndex), c)
		if !ok {
			continue
		}
		if r.ApplyReaction && c.Object != nil && c.Object.InverseMass() != 0 {
			if recv, ok := c.Object.(ForceReceiver); ok {
				force := r3.Scale(-fl.ParticleMass/fg.SimulationScale, accel)
				recv.ApplyForce(force, r3.Sub(c.HitPoint, c.Object.Origin()))
			}
		}
		f.ApplyAcceleration(c.ParticleIndex, accel)
		n++
	}
	return n
}

// Acceleration computes the simulation-scale penalty acceleration for one
// contact given the particle's eval velocity. It reports false when the
// contact does not penetrate by more than Epsilon.
func (r *Resolver) Acceleration(fg *fluid.GlobalParameters, fl *fluid.LocalParameters, evalVel r3.Vec, c *Contact) (r3.Vec, bool) {
	if c.Distance >= -r.Epsilon {
		return r3.Vec{}, false
	}

	var rigidVel r3.Vec
	if c.Object != nil && c.Object.InverseMass() != 0 {
		rel := r3.Sub(c.HitPoint, c.Object.Origin())
		rigidVel = r3.Scale(fg.SimulationScale, c.Object.VelocityAtPoint(rel))
	}

	relVel := r3.Sub(evalVel, rigidVel)
	relNormal := r3.Dot(c.Normal, relVel)
	depth := -c.Distance * fg.SimulationScale

	accel := r3.Scale(fl.BoundaryStiff*depth-fl.BoundaryDamp*relNormal, c.Normal)

	if fl.BoundaryFriction != 0 {
		tangential := r3.Sub(relVel, r3.Scale(relNormal, c.Normal))
		accel = r3.Sub(accel, r3.Scale(fl.BoundaryFriction/fg.TimeStep, tangential))
	}
	return accel, true
}
