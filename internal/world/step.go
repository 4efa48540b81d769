package world

import (
	"fmt"

	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/fluid"
)

// Step advances the world by one time step:
//
//  1. remove particles marked during the previous step
//  2. run emitters
//  3. rebuild every fluid grid
//  4. mark particles inside absorbers
//  5. collect host contacts and apply penalty accelerations
//  6. pressure pass on every fluid, then force pass, then integration
//  7. step the host
//
// The only error is a SimulationError wrapping dynamo.ErrInvalidState,
// returned when state validation is enabled and a particle has a
// non-finite position or velocity.
func (w *World) Step() error {
	fg := &w.global
	var stats StepStats

	for _, f := range w.fluids {
		stats.Removed += f.RemoveMarkedParticles()
	}
	for i := range w.emitters {
		b := &w.emitters[i]
		stats.Emitted += b.emitter.Emit(b.fluid, b.perStep, b.spacing, w.rng)
	}
	for _, f := range w.fluids {
		f.InsertParticlesIntoGrid()
	}
	for i := range w.absorbers {
		b := &w.absorbers[i]
		stats.Absorbed += b.absorber.Absorb(b.fluid)
	}

	if w.host != nil {
		for _, f := range w.fluids {
			w.contacts = w.host.Contacts(fg, f, w.contacts[:0])
			stats.Contacts += len(w.contacts)
			stats.Resolved += w.resolver.Resolve(fg, f, w.contacts)
		}
	}

	for _, f := range w.fluids {
		w.solver.ComputePressure(fg, f)
	}
	for _, f := range w.fluids {
		w.solver.ComputeForce(fg, f)
	}
	for _, f := range w.fluids {
		w.solver.Integrate(fg, f)
	}

	if w.host != nil {
		w.host.Step(fg)
	}

	w.step++
	w.time += fg.TimeStep
	w.stats = stats

	w.logger.Debug("step",
		"step", w.step,
		"particles", w.NumParticles(),
		"removed", stats.Removed,
		"emitted", stats.Emitted,
		"contacts", stats.Contacts,
		"resolved", stats.Resolved,
	)

	if w.validate {
		if err := w.checkState(); err != nil {
			w.logger.Warn("invalid particle state", "error", err)
			return err
		}
	}
	return nil
}

func (w *World) checkState() error {
	for k, f := range w.fluids {
		p := f.Particles()
		for i := 0; i < p.Len(); i++ {
			if !dynamo.VecIsFinite(p.Pos[i]) || !dynamo.VecIsFinite(p.Vel[i]) {
				return &dynamo.SimulationError{
					Step:     w.step,
					Time:     w.time,
					Particle: i,
					Wrapped:  fmt.Errorf("%w: fluid %d", dynamo.ErrInvalidState, k),
				}
			}
		}
	}
	return nil
}

// StepN runs n steps, stopping at the first error.
func (w *World) StepN(n int) error {
	for i := 0; i < n; i++ {
		if err := w.Step(); err != nil {
			return err
		}
	}
	return nil
}

// NewFluid creates a fluid in the world's parameter space and adds it.
func (w *World) NewFluid(fl fluid.LocalParameters, maxParticles int) (*fluid.Sph, error) {
	f, err := fluid.NewSph(&w.global, fl.VolumeMin, fl.VolumeMax, maxParticles)
	if err != nil {
		return nil, err
	}
	if err := f.SetLocalParameters(fl); err != nil {
		return nil, err
	}
	w.AddFluid(f)
	return f, nil
}
