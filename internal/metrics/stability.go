package metrics

import (
	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/world"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Containment is the fraction of observations in which every particle was
// finite and inside its fluid volume, within tolerance world units.
type Containment struct {
	name       string
	tolerance  float64
	violations int
	samples    int
}

func NewContainment(tolerance float64) *Containment {
	return &Containment{
		name:      "containment",
		tolerance: tolerance,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(w *world.World) {
	c.samples++
	ok := true
	forEachFluid(w, func(f *fluid.Sph, p *fluid.Particles) {
		fl := f.LocalParameters()
		lo := r3.Sub(fl.VolumeMin, r3.Vec{X: c.tolerance, Y: c.tolerance, Z: c.tolerance})
		hi := r3.Add(fl.VolumeMax, r3.Vec{X: c.tolerance, Y: c.tolerance, Z: c.tolerance})
		for _, x := range p.Pos {
			if !dynamo.VecIsFinite(x) ||
				x.X < lo.X || x.Y < lo.Y || x.Z < lo.Z ||
				x.X > hi.X || x.Y > hi.Y || x.Z > hi.Z {
				ok = false
				return
			}
		}
	})
	if !ok {
		c.violations++
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}

// MaxSpeed is the largest simulation-scale particle speed of the last
// observation, in m/s.
type MaxSpeed struct {
	name   string
	value  float64
	speeds []float64
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{name: "max_speed"}
}

func (m *MaxSpeed) Name() string { return m.name }

func (m *MaxSpeed) Observe(w *world.World) {
	m.speeds = m.speeds[:0]
	forEachFluid(w, func(_ *fluid.Sph, p *fluid.Particles) {
		for _, v := range p.Vel {
			m.speeds = append(m.speeds, r3.Norm(v))
		}
	})
	m.value = 0
	if len(m.speeds) > 0 {
		m.value = floats.Max(m.speeds)
	}
}

func (m *MaxSpeed) Value() float64 { return m.value }
func (m *MaxSpeed) Reset()         { m.value = 0 }
