package rigid

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// Handle identifies a body in a Scene. It implements contact.CollisionObject
// and contact.ForceReceiver. Handles of removed bodies report a static body
// at the origin.
type Handle struct {
	scene  *Scene
	entity ecs.Entity
}

// Alive reports whether the body still exists.
func (h Handle) Alive() bool {
	return h.scene != nil && h.scene.world.Alive(h.entity)
}

func (h Handle) InverseMass() float64 {
	if !h.Alive() {
		return 0
	}
	return h.scene.bodies.Get(h.entity).InvMass
}

func (h Handle) Origin() r3.Vec {
	if !h.Alive() {
		return r3.Vec{}
	}
	return h.scene.transforms.Get(h.entity).Position
}

// Velocity returns the linear velocity in world units per second.
func (h Handle) Velocity() r3.Vec {
	if !h.Alive() {
		return r3.Vec{}
	}
	return h.scene.bodies.Get(h.entity).LinVel
}

// Kind returns the collision shape of the body.
func (h Handle) Kind() ShapeKind {
	if !h.Alive() {
		return ShapePlane
	}
	return h.scene.shapes.Get(h.entity).Kind
}

// VelocityAtPoint returns v + w x rel.
func (h Handle) VelocityAtPoint(rel r3.Vec) r3.Vec {
	if !h.Alive() {
		return r3.Vec{}
	}
	b := h.scene.bodies.Get(h.entity)
	return r3.Add(b.LinVel, r3.Cross(b.AngVel, rel))
}

// ApplyForce accumulates a force acting at rel until the next Step. Static
// bodies ignore it.
func (h Handle) ApplyForce(force, rel r3.Vec) {
	if !h.Alive() {
		return
	}
	b := h.scene.bodies.Get(h.entity)
	if b.InvMass == 0 {
		return
	}
	b.Force = r3.Add(b.Force, force)
	if b.InvInertia != 0 {
		b.Torque = r3.Add(b.Torque, r3.Cross(rel, force))
	}
}
