package fluid

import "gonum.org/v1/gonum/spatial/r3"

// Particles is a structure-of-arrays particle store. All slices share the
// same length, NumParticles, and a particle is identified by its index.
// Indices are stable within a step but may be reassigned by the next
// removal pass.
type Particles struct {
	Pos           []r3.Vec // world scale
	Vel           []r3.Vec // simulation scale
	VelEval       []r3.Vec // time-centered velocity used by the viscosity term
	ExternalAccel []r3.Vec // cleared after each integration
	SphAccel      []r3.Vec // written by the force pass
	Density       []float64
	Pressure      []float64

	max       int
	overwrite int
}

func newParticles(max int) *Particles {
	p := &Particles{max: max}
	p.reserve(max)
	return p
}

func (p *Particles) reserve(n int) {
	if n <= cap(p.Pos) {
		return
	}
	grow := func(s []r3.Vec) []r3.Vec {
		out := make([]r3.Vec, len(s), n)
		copy(out, s)
		return out
	}
	growf := func(s []float64) []float64 {
		out := make([]float64, len(s), n)
		copy(out, s)
		return out
	}
	p.Pos = grow(p.Pos)
	p.Vel = grow(p.Vel)
	p.VelEval = grow(p.VelEval)
	p.ExternalAccel = grow(p.ExternalAccel)
	p.SphAccel = grow(p.SphAccel)
	p.Density = growf(p.Density)
	p.Pressure = growf(p.Pressure)
}

// Len returns the number of live particles.
func (p *Particles) Len() int { return len(p.Pos) }

// add appends a particle at rest, or overwrites an existing slot in
// round-robin order when the store is full.
func (p *Particles) add(pos r3.Vec) int {
	n := len(p.Pos)
	if n < p.max {
		p.Pos = append(p.Pos, pos)
		p.Vel = append(p.Vel, r3.Vec{})
		p.VelEval = append(p.VelEval, r3.Vec{})
		p.ExternalAccel = append(p.ExternalAccel, r3.Vec{})
		p.SphAccel = append(p.SphAccel, r3.Vec{})
		p.Density = append(p.Density, 0)
		p.Pressure = append(p.Pressure, 0)
		return n
	}

	i := p.overwrite % n
	p.overwrite = (i + 1) % n
	p.Pos[i] = pos
	p.Vel[i] = r3.Vec{}
	p.VelEval[i] = r3.Vec{}
	p.ExternalAccel[i] = r3.Vec{}
	p.SphAccel[i] = r3.Vec{}
	p.Density[i] = 0
	p.Pressure[i] = 0
	return i
}

// moveFromTail copies the last particle into slot i and shrinks the store
// by one.
func (p *Particles) moveFromTail(i int) {
	last := len(p.Pos) - 1
	if i != last {
		p.Pos[i] = p.Pos[last]
		p.Vel[i] = p.Vel[last]
		p.VelEval[i] = p.VelEval[last]
		p.ExternalAccel[i] = p.ExternalAccel[last]
		p.SphAccel[i] = p.SphAccel[last]
		p.Density[i] = p.Density[last]
		p.Pressure[i] = p.Pressure[last]
	}
	p.truncate(last)
}

func (p *Particles) truncate(n int) {
	p.Pos = p.Pos[:n]
	p.Vel = p.Vel[:n]
	p.VelEval = p.VelEval[:n]
	p.ExternalAccel = p.ExternalAccel[:n]
	p.SphAccel = p.SphAccel[:n]
	p.Density = p.Density[:n]
	p.Pressure = p.Pressure[:n]
	if p.overwrite >= n {
		p.overwrite = 0
	}
}
