package metrics

import (
	"math"

	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/world"
	"gonum.org/v1/gonum/spatial/r3"
)

// KineticEnergy is the total kinetic energy of all particles in joules,
// from simulation-scale velocities.
type KineticEnergy struct {
	name  string
	value float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(w *world.World) {
	e.value = kinetic(w)
}

func (e *KineticEnergy) Value() float64 { return e.value }
func (e *KineticEnergy) Reset()         { e.value = 0 }

func kinetic(w *world.World) float64 {
	total := 0.0
	forEachFluid(w, func(f *fluid.Sph, p *fluid.Particles) {
		m := f.LocalParameters().ParticleMass
		for _, v := range p.Vel {
			total += 0.5 * m * r3.Norm2(v)
		}
	})
	return total
}

// potential is the energy of all particles in the plane gravity field,
// relative to the world origin.
func potential(w *world.World) float64 {
	fg := w.Global()
	total := 0.0
	forEachFluid(w, func(f *fluid.Sph, p *fluid.Particles) {
		m := f.LocalParameters().ParticleMass
		for _, x := range p.Pos {
			total -= m * r3.Dot(fg.PlaneGravity, r3.Scale(fg.SimulationScale, x))
		}
	})
	return total
}

// EnergyDrift tracks the largest relative change of total mechanical
// energy from the first observation. A settling fluid loses energy to
// damping, so a growing value on a resting scene points to instability.
type EnergyDrift struct {
	name     string
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(w *world.World) {
	energy := kinetic(w) + potential(w)
	if e.samples == 0 {
		e.initial = energy
	}
	e.current = energy
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.current = 0
	e.maxDrift = 0
	e.samples = 0
}
