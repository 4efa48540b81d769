// Package rigid is a minimal rigid-body host for fluid scenes. Bodies are
// entities in an ECS world carrying Transform, Body and Shape components.
// The scene generates fluid contacts, integrates dynamic bodies and accepts
// reaction forces from the fluid. Bodies do not collide with each other.
package rigid

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"github.com/san-kum/sphsim/internal/contact"
	"github.com/san-kum/sphsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Scene owns every rigid body of a simulation. All lengths are world
// scale.
type Scene struct {
	world  *ecs.World
	mapper *ecs.Map3[Transform, Body, Shape]
	filter *ecs.Filter3[Transform, Body, Shape]

	transforms *ecs.Map1[Transform]
	bodies     *ecs.Map1[Body]
	shapes     *ecs.Map1[Shape]

	bounds *r3.Box
	count  int
}

func NewScene() *Scene {
	world := ecs.NewWorld()
	return &Scene{
		world:      world,
		mapper:     ecs.NewMap3[Transform, Body, Shape](world),
		filter:     ecs.NewFilter3[Transform, Body, Shape](world),
		transforms: ecs.NewMap1[Transform](world),
		bodies:     ecs.NewMap1[Body](world),
		shapes:     ecs.NewMap1[Shape](world),
	}
}

// SetBounds keeps dynamic bodies inside b. Bodies reaching a side stop
// moving outward.
func (s *Scene) SetBounds(b r3.Box) {
	s.bounds = &b
}

// Len returns the number of bodies.
func (s *Scene) Len() int { return s.count }

func (s *Scene) add(t Transform, b Body, sh Shape) Handle {
	e := s.mapper.NewEntity(&t, &b, &sh)
	s.count++
	return Handle{scene: s, entity: e}
}

// AddPlane adds a static half-space whose surface passes through point.
// The normal points out of the solid side and is normalized.
func (s *Scene) AddPlane(point, normal r3.Vec) Handle {
	return s.add(Transform{Position: point}, Body{}, Shape{Kind: ShapePlane, Normal: r3.Unit(normal)})
}

// AddSphere adds a sphere. A mass of zero makes it static or, with a
// velocity, kinematic.
func (s *Scene) AddSphere(center r3.Vec, radius, mass float64, vel r3.Vec) Handle {
	b := Body{LinVel: vel}
	if mass > 0 {
		b.InvMass = 1 / mass
		b.InvInertia = 1 / (0.4 * mass * radius * radius)
	}
	return s.add(Transform{Position: center}, b, Shape{Kind: ShapeSphere, Radius: radius})
}

// AddBox adds an axis-aligned box. Boxes translate but never rotate.
func (s *Scene) AddBox(center, halfExtents r3.Vec, mass float64, vel r3.Vec) Handle {
	b := Body{LinVel: vel}
	if mass > 0 {
		b.InvMass = 1 / mass
	}
	return s.add(Transform{Position: center}, b, Shape{Kind: ShapeBox, HalfExtents: halfExtents})
}

// Remove deletes the body behind h. Removing twice is a no-op.
func (s *Scene) Remove(h Handle) {
	if !s.world.Alive(h.entity) {
		return
	}
	s.world.RemoveEntity(h.entity)
	s.count--
}

// BodyState is a snapshot of one body for rendering and logging.
type BodyState struct {
	Handle   Handle
	Kind     ShapeKind
	Position r3.Vec
	Velocity r3.Vec
	Bounds   r3.Box
	Shape    Shape
	Dynamic  bool
}

// Snapshot returns the state of every body.
func (s *Scene) Snapshot() []BodyState {
	out := make([]BodyState, 0, s.count)
	query := s.filter.Query()
	for query.Next() {
		t, b, sh := query.Get()
		out = append(out, BodyState{
			Handle:   Handle{scene: s, entity: query.Entity()},
			Kind:     sh.Kind,
			Position: t.Position,
			Velocity: b.LinVel,
			Bounds:   sh.aabb(t.Position),
			Shape:    *sh,
			Dynamic:  b.InvMass != 0,
		})
	}
	return out
}

// Contacts appends a contact for every particle of f within the particle
// radius of a body surface. Only particles in grid cells overlapping the
// body's bounds are tested, so the fluid grid must be current.
func (s *Scene) Contacts(fg *fluid.GlobalParameters, f *fluid.Sph, dst []contact.Contact) []contact.Contact {
	g := f.Grid()
	pos := f.Particles().Pos
	radius := fg.ParticleRadius / fg.SimulationScale
	pad := r3.Vec{X: radius, Y: radius, Z: radius}

	query := s.filter.Query()
	for query.Next() {
		t, _, sh := query.Get()
		obj := Handle{scene: s, entity: query.Entity()}
		center := t.Position
		box := sh.aabb(center)

		g.ForEachInAabb(r3.Sub(box.Min, pad), r3.Add(box.Max, pad), func(i int) {
			if i >= len(pos) {
				return
			}
			dist, normal, hit := sh.signedDistance(center, pos[i])
			dist -= radius
			if dist >= 0 {
				return
			}
			dst = append(dst, contact.Contact{
				ParticleIndex: i,
				Object:        obj,
				Normal:        normal,
				HitPoint:      hit,
				Distance:      dist,
			})
		})
	}
	return dst
}

// Step integrates dynamic and kinematic bodies over one fluid time step
// and clears accumulated forces. Dynamic bodies fall with the fluid's
// plane gravity converted to world scale.
func (s *Scene) Step(fg *fluid.GlobalParameters) {
	dt := fg.TimeStep
	gravity := r3.Scale(1/fg.SimulationScale, fg.PlaneGravity)

	query := s.filter.Query()
	for query.Next() {
		t, b, sh := query.Get()
		if b.InvMass != 0 {
			accel := r3.Add(r3.Scale(b.InvMass, b.Force), gravity)
			b.LinVel = r3.Add(b.LinVel, r3.Scale(dt, accel))
			b.AngVel = r3.Add(b.AngVel, r3.Scale(dt*b.InvInertia, b.Torque))
		}
		b.Force = r3.Vec{}
		b.Torque = r3.Vec{}

		if sh.Kind == ShapePlane {
			continue
		}
		t.Position = r3.Add(t.Position, r3.Scale(dt, b.LinVel))
		if s.bounds != nil && b.InvMass != 0 {
			s.confine(t, b, sh)
		}
	}
}

func (s *Scene) confine(t *Transform, b *Body, sh *Shape) {
	box := sh.aabb(t.Position)
	half := r3.Scale(0.5, r3.Sub(box.Max, box.Min))
	lo := r3.Add(s.bounds.Min, half)
	hi := r3.Sub(s.bounds.Max, half)

	t.Position.X, b.LinVel.X = confineAxis(t.Position.X, b.LinVel.X, lo.X, hi.X)
	t.Position.Y, b.LinVel.Y = confineAxis(t.Position.Y, b.LinVel.Y, lo.Y, hi.Y)
	t.Position.Z, b.LinVel.Z = confineAxis(t.Position.Z, b.LinVel.Z, lo.Z, hi.Z)
}

func confineAxis(x, v, lo, hi float64) (float64, float64) {
	if lo > hi {
		return (lo + hi) / 2, 0
	}
	if x < lo {
		return lo, math.Max(v, 0)
	}
	if x > hi {
		return hi, math.Min(v, 0)
	}
	return x, v
}
