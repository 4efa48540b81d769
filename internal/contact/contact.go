// Package contact turns fluid-rigid contacts into penalty accelerations.
//
// Contacts are produced by a collision host once per step, after the fluid
// grid is rebuilt and before the SPH passes. The resolver holds no
// per-contact state.
package contact

import (
	"github.com/san-kum/sphsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// CollisionObject is the read-only view of a host object the resolver
// needs. Static and kinematic objects report an inverse mass of zero.
type CollisionObject interface {
	InverseMass() float64
	// Origin is the world-scale position of the object's transform.
	Origin() r3.Vec
	// VelocityAtPoint returns the world-scale velocity of the point at
	// rel, relative to Origin.
	VelocityAtPoint(rel r3.Vec) r3.Vec
}

// ForceReceiver is implemented by objects that accept reaction forces.
// Forces are in host units and rel is relative to Origin.
type ForceReceiver interface {
	ApplyForce(force, rel r3.Vec)
}

// Contact between one fluid particle and one host object.
type Contact struct {
	ParticleIndex int
	Object        CollisionObject
	Normal        r3.Vec  // unit, pointing from the object into the fluid
	HitPoint      r3.Vec  // world scale, on the object surface
	Distance      float64 // world scale; negative when overlapping
}

// Source produces contacts for a fluid whose grid is current. Contacts are
// appended to dst.
type Source interface {
	Contacts(fg *fluid.GlobalParameters, f *fluid.Sph, dst []Contact) []Contact
}
