package rigid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ShapeKind selects the collision shape of a body.
type ShapeKind uint8

const (
	ShapePlane ShapeKind = iota
	ShapeSphere
	ShapeBox
)

func (k ShapeKind) String() string {
	switch k {
	case ShapePlane:
		return "plane"
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	}
	return "unknown"
}

// Transform is the world-scale pose of a body. Shapes are axis-aligned, so
// only the position is tracked.
type Transform struct {
	Position r3.Vec
}

// Body holds the dynamic state. A zero InvMass makes the body static, or
// kinematic when LinVel is nonzero.
type Body struct {
	InvMass    float64
	InvInertia float64
	LinVel     r3.Vec
	AngVel     r3.Vec
	Force      r3.Vec
	Torque     r3.Vec
}

// Shape describes collision geometry relative to the transform.
type Shape struct {
	Kind        ShapeKind
	Normal      r3.Vec  // plane
	Radius      float64 // sphere
	HalfExtents r3.Vec  // box
}

var unbounded = r3.Box{
	Min: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	Max: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
}

// aabb returns the world-scale bounds of the shape at center.
func (s *Shape) aabb(center r3.Vec) r3.Box {
	switch s.Kind {
	case ShapeSphere:
		e := r3.Vec{X: s.Radius, Y: s.Radius, Z: s.Radius}
		return r3.Box{Min: r3.Sub(center, e), Max: r3.Add(center, e)}
	case ShapeBox:
		return r3.Box{Min: r3.Sub(center, s.HalfExtents), Max: r3.Add(center, s.HalfExtents)}
	}
	return unbounded
}

// signedDistance returns the distance from p to the surface, negative
// inside, along with the outward surface normal and the closest surface
// point.
func (s *Shape) signedDistance(center, p r3.Vec) (dist float64, normal, hit r3.Vec) {
	switch s.Kind {
	case ShapePlane:
		dist = r3.Dot(s.Normal, r3.Sub(p, center))
		return dist, s.Normal, r3.Sub(p, r3.Scale(dist, s.Normal))

	case ShapeSphere:
		v := r3.Sub(p, center)
		l := r3.Norm(v)
		normal = r3.Vec{Y: 1}
		if l > 0 {
			normal = r3.Scale(1/l, v)
		}
		return l - s.Radius, normal, r3.Add(center, r3.Scale(s.Radius, normal))

	case ShapeBox:
		return boxDistance(center, s.HalfExtents, p)
	}
	return math.Inf(1), r3.Vec{}, r3.Vec{}
}

func boxDistance(center, e, p r3.Vec) (float64, r3.Vec, r3.Vec) {
	q := r3.Sub(p, center)
	closest := r3.Vec{
		X: math.Max(-e.X, math.Min(e.X, q.X)),
		Y: math.Max(-e.Y, math.Min(e.Y, q.Y)),
		Z: math.Max(-e.Z, math.Min(e.Z, q.Z)),
	}
	diff := r3.Sub(q, closest)
	if d := r3.Norm(diff); d > 0 {
		return d, r3.Scale(1/d, diff), r3.Add(center, closest)
	}

	// Inside: push out through the nearest face.
	depths := [3]float64{e.X - math.Abs(q.X), e.Y - math.Abs(q.Y), e.Z - math.Abs(q.Z)}
	axis := 0
	for k := 1; k < 3; k++ {
		if depths[k] < depths[axis] {
			axis = k
		}
	}
	var normal r3.Vec
	hit := q
	switch axis {
	case 0:
		normal.X = math.Copysign(1, q.X)
		hit.X = normal.X * e.X
	case 1:
		normal.Y = math.Copysign(1, q.Y)
		hit.Y = normal.Y * e.Y
	case 2:
		normal.Z = math.Copysign(1, q.Z)
		hit.Z = normal.Z * e.Z
	}
	return -depths[axis], normal, r3.Add(center, hit)
}
