package viz

import (
	"fmt"
	"math"

	"github.com/san-kum/sphsim/internal/rigid"
	"gonum.org/v1/gonum/spatial/r3"
)

// View selects how the volume is projected onto the canvas.
type View int

const (
	ViewFront View = iota // X right, Y up
	ViewTop               // X right, -Z up
	ViewSide              // Z right, Y up
	ViewOrbit             // rotated by Yaw and Pitch
	numViews
)

func (v View) String() string {
	switch v {
	case ViewFront:
		return "front"
	case ViewTop:
		return "top"
	case ViewSide:
		return "side"
	case ViewOrbit:
		return "orbit"
	}
	return "unknown"
}

// Next cycles through the views.
func (v View) Next() View { return (v + 1) % numViews }

// ParseView returns the view whose String is name.
func ParseView(name string) (View, error) {
	for v := ViewFront; v < numViews; v++ {
		if v.String() == name {
			return v, nil
		}
	}
	return ViewFront, fmt.Errorf("unknown view: %s", name)
}

// Projector maps world-scale points inside Bounds to canvas dots with an
// orthographic projection that keeps the whole volume visible at any
// rotation.
type Projector struct {
	Bounds     r3.Box
	View       View
	Yaw, Pitch float64 // radians; orbit view only
	Zoom       float64
}

func NewProjector(bounds r3.Box) *Projector {
	return &Projector{Bounds: bounds, Yaw: math.Pi / 6, Pitch: math.Pi / 8, Zoom: 1}
}

func (p *Projector) RotateYaw(a float64)   { p.Yaw += a }
func (p *Projector) RotatePitch(a float64) { p.Pitch = math.Max(-math.Pi/2, math.Min(math.Pi/2, p.Pitch+a)) }
func (p *Projector) ZoomIn()               { p.Zoom = math.Min(10, p.Zoom*1.2) }
func (p *Projector) ZoomOut()              { p.Zoom = math.Max(0.1, p.Zoom/1.2) }

// viewCoords returns screen-right, screen-up and depth (larger is nearer)
// for a point relative to the volume center.
func (p *Projector) viewCoords(rel r3.Vec) (u, v, depth float64) {
	switch p.View {
	case ViewTop:
		return rel.X, -rel.Z, rel.Y
	case ViewSide:
		return rel.Z, rel.Y, -rel.X
	case ViewOrbit:
		rel = r3.NewRotation(-p.Yaw, r3.Vec{Y: 1}).Rotate(rel)
		rel = r3.NewRotation(p.Pitch, r3.Vec{X: 1}).Rotate(rel)
		return rel.X, rel.Y, rel.Z
	}
	return rel.X, rel.Y, rel.Z
}

// Project returns the dot coordinates of a world-scale point on a canvas of
// w x h dots. ok is false when the point falls off the canvas.
func (p *Projector) Project(pt r3.Vec, w, h int) (x, y int, depth float64, ok bool) {
	center := r3.Scale(0.5, r3.Add(p.Bounds.Min, p.Bounds.Max))
	radius := 0.5 * r3.Norm(r3.Sub(p.Bounds.Max, p.Bounds.Min))
	if !(radius > 0) {
		radius = 1
	}
	scale := p.Zoom * float64(min(w, h)) / (2 * radius)

	u, v, depth := p.viewCoords(r3.Sub(pt, center))
	x = w/2 + int(math.Round(u*scale))
	y = h/2 - int(math.Round(v*scale))
	return x, y, depth, x >= 0 && x < w && y >= 0 && y < h
}

// Renderer draws world geometry onto a canvas.
type Renderer struct {
	Canvas    *Canvas
	Projector *Projector
}

func (r *Renderer) project(pt r3.Vec) (int, int, bool) {
	w, h := r.Canvas.PixelSize()
	x, y, _, ok := r.Projector.Project(pt, w, h)
	return x, y, ok
}

func (r *Renderer) line(a, b r3.Vec) {
	x0, y0, _ := r.project(a)
	x1, y1, _ := r.project(b)
	r.Canvas.DrawLine(x0, y0, x1, y1)
}

var boxEdges = [12][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}

func boxCorners(b r3.Box) [8]r3.Vec {
	lo, hi := b.Min, b.Max
	return [8]r3.Vec{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: hi.Y, Z: lo.Z}, {X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: hi.Y, Z: hi.Z}, {X: lo.X, Y: hi.Y, Z: hi.Z},
	}
}

// DrawBox draws the wireframe of an axis-aligned box.
func (r *Renderer) DrawBox(b r3.Box) {
	v := boxCorners(b)
	for _, e := range boxEdges {
		r.line(v[e[0]], v[e[1]])
	}
}

// DrawParticles lights one dot per particle and returns how many landed on
// the canvas.
func (r *Renderer) DrawParticles(pos []r3.Vec) int {
	n := 0
	for _, p := range pos {
		if x, y, ok := r.project(p); ok {
			r.Canvas.Set(x, y)
			n++
		}
	}
	return n
}

const circleSegments = 24

// DrawBody outlines a rigid body: three great circles for a sphere, the
// wireframe for a box and the part of a plane inside the projector bounds.
func (r *Renderer) DrawBody(b rigid.BodyState) {
	switch b.Kind {
	case rigid.ShapeSphere:
		axes := [3][2]r3.Vec{
			{{X: 1}, {Y: 1}},
			{{X: 1}, {Z: 1}},
			{{Y: 1}, {Z: 1}},
		}
		rad := b.Shape.Radius
		for _, ax := range axes {
			prev := r3.Add(b.Position, r3.Scale(rad, ax[0]))
			for i := 1; i <= circleSegments; i++ {
				a := 2 * math.Pi * float64(i) / circleSegments
				next := r3.Add(b.Position, r3.Add(r3.Scale(rad*math.Cos(a), ax[0]), r3.Scale(rad*math.Sin(a), ax[1])))
				r.line(prev, next)
				prev = next
			}
		}
	case rigid.ShapeBox:
		r.DrawBox(b.Bounds)
	case rigid.ShapePlane:
		r.drawPlane(b.Position, b.Shape.Normal)
	}
}

const planeSamples = 32

func (r *Renderer) drawPlane(point, normal r3.Vec) {
	n := r3.Unit(normal)
	ref := r3.Vec{Y: 1}
	if math.Abs(n.Y) > 0.9 {
		ref = r3.Vec{X: 1}
	}
	t1 := r3.Unit(r3.Cross(n, ref))
	t2 := r3.Cross(n, t1)

	bounds := r.Projector.Bounds
	extent := r3.Norm(r3.Sub(bounds.Max, bounds.Min))
	for i := 0; i <= planeSamples; i++ {
		for j := 0; j <= planeSamples; j++ {
			a := extent * (float64(i)/planeSamples - 0.5) * 2
			b := extent * (float64(j)/planeSamples - 0.5) * 2
			p := r3.Add(point, r3.Add(r3.Scale(a, t1), r3.Scale(b, t2)))
			if !inside(bounds, p) {
				continue
			}
			if x, y, ok := r.project(p); ok {
				r.Canvas.Set(x, y)
			}
		}
	}
}

func inside(b r3.Box, p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}
