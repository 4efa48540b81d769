// Package solver implements the SPH pressure, force and integration passes.
//
// A [Solver] is a strategy selected by name at configuration time. Both
// strategies produce the same physics; they differ only in how neighbor
// pairs are enumerated. Every pass expects the fluid's grid to have been
// rebuilt with InsertParticlesIntoGrid after the last position change.
package solver

import (
	"fmt"
	"sort"

	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/fluid"
)

// Solver advances fluids one step. ComputePressure must complete for a
// fluid before ComputeForce reads its pressures, and ComputeForce before
// Integrate.
type Solver interface {
	Name() string
	ComputePressure(fg *fluid.GlobalParameters, f *fluid.Sph)
	ComputeForce(fg *fluid.GlobalParameters, f *fluid.Sph)
	Integrate(fg *fluid.GlobalParameters, f *fluid.Sph)
}

// Step runs the three passes over every fluid. Contacts must be resolved
// by the caller before Step if they are to affect this step.
func Step(s Solver, fg *fluid.GlobalParameters, fluids []*fluid.Sph) {
	for _, f := range fluids {
		s.ComputePressure(fg, f)
	}
	for _, f := range fluids {
		s.ComputeForce(fg, f)
	}
	for _, f := range fluids {
		s.Integrate(fg, f)
	}
}

var registry = map[string]func() Solver{
	"grid":    func() Solver { return NewGridNeighbor() },
	"reduced": func() Solver { return NewReducedGridNeighbor() },
}

// New returns the solver registered under name.
func New(name string) (Solver, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", dynamo.ErrUnknownSolver, name, Names())
	}
	return ctor(), nil
}

// Names lists registered solver names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
