package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/sphsim/internal/config"
	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/rigid"
	"github.com/san-kum/sphsim/internal/sim"
	"github.com/san-kum/sphsim/internal/world"
	"gonum.org/v1/gonum/spatial/r3"
)

// Experiment is a world assembled from a scene configuration.
type Experiment struct {
	cfg       *config.Config
	world     *world.World
	fluid     *fluid.Sph
	scene     *rigid.Scene
	bodies    []rigid.Handle
	simulator *sim.Simulator
}

// New builds the world, fluid and rigid scene described by cfg and attaches
// the registry's default metrics.
func New(cfg *config.Config) (*Experiment, error) {
	return NewWithRegistry(cfg, NewRegistry())
}

func NewWithRegistry(cfg *config.Config, reg *Registry) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fg, err := cfg.GlobalParameters()
	if err != nil {
		return nil, err
	}
	s, err := reg.GetSolver(cfg.Run.Solver)
	if err != nil {
		return nil, err
	}
	w, err := world.New(fg, s)
	if err != nil {
		return nil, err
	}
	w.Seed(cfg.Run.Seed)
	w.SetValidateState(cfg.Run.Validate)
	w.Resolver().ApplyReaction = cfg.Contacts.ApplyReaction
	if cfg.Contacts.Epsilon > 0 {
		w.Resolver().Epsilon = cfg.Contacts.Epsilon
	}

	f, err := w.NewFluid(cfg.LocalParameters(), cfg.Fluid.MaxParticles)
	if err != nil {
		return nil, err
	}

	e := &Experiment{cfg: cfg, world: w, fluid: f, scene: rigid.NewScene()}
	e.scene.SetBounds(r3.Box{Min: cfg.Fluid.VolumeMin.R3(), Max: cfg.Fluid.VolumeMax.R3()})
	w.SetHost(e.scene)

	rest := f.EmitterSpacing(w.Global())
	for _, box := range cfg.Fill {
		spacing := box.Spacing
		if spacing <= 0 {
			spacing = rest
		}
		fluid.AddVolume(f, box.Min.R3(), box.Max.R3(), spacing)
	}
	for _, ec := range cfg.Emitters {
		w.AddEmitter(f, fluid.Emitter{
			Position:    ec.Position.R3(),
			Speed:       ec.Speed,
			Yaw:         ec.Yaw,
			Pitch:       ec.Pitch,
			YawSpread:   ec.YawSpread,
			PitchSpread: ec.PitchSpread,
		}, ec.PerStep, ec.Spacing)
	}
	for _, ac := range cfg.Absorbers {
		w.AddAbsorber(f, fluid.Absorber{Min: ac.Min.R3(), Max: ac.Max.R3()})
	}
	for i, bc := range cfg.Bodies {
		h, err := addBody(e.scene, bc)
		if err != nil {
			return nil, fmt.Errorf("bodies[%d]: %w", i, err)
		}
		e.bodies = append(e.bodies, h)
	}

	e.simulator = sim.New(w)
	for _, m := range reg.DefaultMetrics() {
		e.simulator.AddMetric(m)
	}
	return e, nil
}

func addBody(scene *rigid.Scene, bc config.BodyConfig) (rigid.Handle, error) {
	switch bc.Shape {
	case "plane":
		return scene.AddPlane(bc.Position.R3(), bc.Normal.R3()), nil
	case "sphere":
		return scene.AddSphere(bc.Position.R3(), bc.Radius, bc.Mass, bc.Velocity.R3()), nil
	case "box":
		return scene.AddBox(bc.Position.R3(), bc.HalfExtents.R3(), bc.Mass, bc.Velocity.R3()), nil
	}
	return rigid.Handle{}, fmt.Errorf("unknown shape %q", bc.Shape)
}

// SimConfig returns the run section as a sim.Config.
func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Steps:         e.cfg.Run.Steps,
		SampleEvery:   e.cfg.Run.SampleEvery,
		FrameEvery:    e.cfg.Run.FrameEvery,
		Seed:          e.cfg.Run.Seed,
		ValidateState: e.cfg.Run.Validate,
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.simulator.Run(ctx, e.SimConfig())
}

func (e *Experiment) Config() *config.Config       { return e.cfg }
func (e *Experiment) World() *world.World          { return e.world }
func (e *Experiment) Fluid() *fluid.Sph            { return e.fluid }
func (e *Experiment) Scene() *rigid.Scene          { return e.scene }
func (e *Experiment) Bodies() []rigid.Handle       { return e.bodies }
func (e *Experiment) GetSimulator() *sim.Simulator { return e.simulator }

// Builder returns a sim.Builder that rebuilds cfg with each ensemble seed.
func Builder(cfg *config.Config) sim.Builder {
	return func(seed int64) (*sim.Simulator, error) {
		c := cfg.Clone()
		c.Run.Seed = seed
		e, err := New(c)
		if err != nil {
			return nil, err
		}
		return e.GetSimulator(), nil
	}
}
