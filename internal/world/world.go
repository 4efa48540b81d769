// Package world drives fluid simulation steps. A World owns the global
// parameters, its fluids, the solver strategy and an optional rigid-body
// host that supplies contacts.
package world

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/san-kum/sphsim/internal/contact"
	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/solver"
)

// Host is the rigid-body side of a scene. Contacts is called once per fluid
// per step with a current grid; Step advances the host after the fluids.
type Host interface {
	contact.Source
	Step(fg *fluid.GlobalParameters)
}

// StepStats summarizes the most recent Step.
type StepStats struct {
	Removed  int
	Emitted  int
	Absorbed int
	Contacts int
	Resolved int
}

type emitterBinding struct {
	fluid   *fluid.Sph
	emitter fluid.Emitter
	perStep int
	spacing float64
}

type absorberBinding struct {
	fluid    *fluid.Sph
	absorber fluid.Absorber
}

type World struct {
	global   fluid.GlobalParameters
	fluids   []*fluid.Sph
	solver   solver.Solver
	resolver *contact.Resolver
	host     Host

	emitters  []emitterBinding
	absorbers []absorberBinding
	rng       *rand.Rand

	validate bool
	step     int
	time     float64
	contacts []contact.Contact
	stats    StepStats
	logger   *slog.Logger
}

// New creates an empty world. fg is copied.
func New(fg fluid.GlobalParameters, s solver.Solver) (*World, error) {
	if err := fg.Validate(); err != nil {
		return nil, fmt.Errorf("global parameters: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: nil solver", dynamo.ErrUnknownSolver)
	}
	return &World{
		global:   fg,
		solver:   s,
		resolver: contact.NewResolver(),
		rng:      rand.New(rand.NewSource(1)),
		logger:   slog.Default(),
	}, nil
}

// Global returns the world's parameters. Callers may modify them between
// steps; kernel coefficients change only through SetSmoothRadius.
func (w *World) Global() *fluid.GlobalParameters { return &w.global }

func (w *World) Solver() solver.Solver        { return w.solver }
func (w *World) Resolver() *contact.Resolver  { return w.resolver }
func (w *World) Fluids() []*fluid.Sph         { return w.fluids }
func (w *World) Host() Host                   { return w.host }
func (w *World) StepCount() int               { return w.step }
func (w *World) Time() float64                { return w.time }
func (w *World) LastStats() StepStats         { return w.stats }
func (w *World) Contacts() []contact.Contact  { return w.contacts }
func (w *World) SetHost(h Host)               { w.host = h }
func (w *World) SetSolver(s solver.Solver)    { w.solver = s }
func (w *World) SetValidateState(enable bool) { w.validate = enable }

// SetLogger replaces the logger. nil restores slog.Default().
func (w *World) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	w.logger = l
}

// Seed reseeds the generator used for emitter spread.
func (w *World) Seed(seed int64) {
	w.rng = rand.New(rand.NewSource(seed))
}

// AddFluid adds f to the world. Adding the same fluid twice is a no-op.
func (w *World) AddFluid(f *fluid.Sph) {
	for _, existing := range w.fluids {
		if existing == f {
			return
		}
	}
	w.fluids = append(w.fluids, f)
}

// RemoveFluid detaches f along with its emitters and absorbers.
func (w *World) RemoveFluid(f *fluid.Sph) {
	for i, existing := range w.fluids {
		if existing == f {
			w.fluids = append(w.fluids[:i], w.fluids[i+1:]...)
			break
		}
	}
	emitters := w.emitters[:0]
	for _, b := range w.emitters {
		if b.fluid != f {
			emitters = append(emitters, b)
		}
	}
	w.emitters = emitters
	absorbers := w.absorbers[:0]
	for _, b := range w.absorbers {
		if b.fluid != f {
			absorbers = append(absorbers, b)
		}
	}
	w.absorbers = absorbers
	if g, ok := w.solver.(*solver.GridNeighbor); ok {
		g.Forget(f)
	}
}

// AddEmitter emits perStep particles into f at the start of every step.
// A non-positive spacing uses the fluid's rest spacing.
func (w *World) AddEmitter(f *fluid.Sph, e fluid.Emitter, perStep int, spacing float64) {
	if spacing <= 0 {
		spacing = f.EmitterSpacing(&w.global)
	}
	w.emitters = append(w.emitters, emitterBinding{fluid: f, emitter: e, perStep: perStep, spacing: spacing})
}

// AddAbsorber removes particles of f that enter a.
func (w *World) AddAbsorber(f *fluid.Sph, a fluid.Absorber) {
	w.absorbers = append(w.absorbers, absorberBinding{fluid: f, absorber: a})
}

// NumParticles returns the particle count across all fluids.
func (w *World) NumParticles() int {
	n := 0
	for _, f := range w.fluids {
		n += f.NumParticles()
	}
	return n
}
