package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/san-kum/sphsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSolver       = "grid"
	DefaultSteps        = 1000
	DefaultSampleEvery  = 10
	DefaultMaxParticles = 4096
	DefaultVolumeHalf   = 12.0
)

// Vec3 is written as a YAML flow sequence, [x, y, z].
type Vec3 [3]float64

func V(x, y, z float64) Vec3 { return Vec3{x, y, z} }

func (v Vec3) R3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func (v Vec3) IsZero() bool { return v == Vec3{} }

func (v Vec3) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, c := range v {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(c, 'g', -1, 64),
		})
	}
	return node, nil
}

type Config struct {
	Name      string          `yaml:"name,omitempty"`
	Run       RunConfig       `yaml:"run"`
	Global    GlobalConfig    `yaml:"global"`
	Fluid     FluidConfig     `yaml:"fluid"`
	Fill      []BoxConfig     `yaml:"fill,omitempty"`
	Emitters  []EmitterConfig `yaml:"emitters,omitempty"`
	Absorbers []BoxConfig     `yaml:"absorbers,omitempty"`
	Bodies    []BodyConfig    `yaml:"bodies,omitempty"`
	Contacts  ContactConfig   `yaml:"contacts"`
}

type RunConfig struct {
	Solver      string `yaml:"solver"`
	Steps       int    `yaml:"steps"`
	SampleEvery int    `yaml:"sample_every"`
	FrameEvery  int    `yaml:"frame_every"`
	Seed        int64  `yaml:"seed"`
	Validate    bool   `yaml:"validate"`
}

// GlobalConfig mirrors fluid.GlobalParameters.
type GlobalConfig struct {
	Gravity              Vec3    `yaml:"gravity"`
	PointGravity         float64 `yaml:"point_gravity"`
	PointGravityPosition Vec3    `yaml:"point_gravity_position"`
	TimeStep             float64 `yaml:"time_step"`
	SimulationScale      float64 `yaml:"simulation_scale"`
	ParticleRadius       float64 `yaml:"particle_radius"`
	SpeedLimit           float64 `yaml:"speed_limit"`
	SmoothRadius         float64 `yaml:"smooth_radius"`
}

// FluidConfig mirrors fluid.LocalParameters plus capacity.
type FluidConfig struct {
	MaxParticles      int     `yaml:"max_particles"`
	VolumeMin         Vec3    `yaml:"volume_min"`
	VolumeMax         Vec3    `yaml:"volume_max"`
	Viscosity         float64 `yaml:"viscosity"`
	RestDensity       float64 `yaml:"rest_density"`
	ParticleMass      float64 `yaml:"particle_mass"`
	Stiffness         float64 `yaml:"stiffness"`
	BoundaryStiffness float64 `yaml:"boundary_stiffness"`
	BoundaryDamping   float64 `yaml:"boundary_damping"`
	BoundaryFriction  float64 `yaml:"boundary_friction"`
}

// BoxConfig is a fill volume or an absorber. Spacing applies to fills; zero
// uses the fluid's rest spacing.
type BoxConfig struct {
	Min     Vec3    `yaml:"min"`
	Max     Vec3    `yaml:"max"`
	Spacing float64 `yaml:"spacing,omitempty"`
}

type EmitterConfig struct {
	Position    Vec3    `yaml:"position"`
	Speed       float64 `yaml:"speed"`
	Yaw         float64 `yaml:"yaw"`
	Pitch       float64 `yaml:"pitch"`
	YawSpread   float64 `yaml:"yaw_spread"`
	PitchSpread float64 `yaml:"pitch_spread"`
	PerStep     int     `yaml:"per_step"`
	Spacing     float64 `yaml:"spacing,omitempty"`
}

// BodyConfig describes a rigid body. Shape is plane, sphere or box; mass
// zero makes the body static, or kinematic with a velocity.
type BodyConfig struct {
	Shape       string  `yaml:"shape"`
	Position    Vec3    `yaml:"position"`
	Normal      Vec3    `yaml:"normal,omitempty"`
	Radius      float64 `yaml:"radius,omitempty"`
	HalfExtents Vec3    `yaml:"half_extents,omitempty"`
	Mass        float64 `yaml:"mass,omitempty"`
	Velocity    Vec3    `yaml:"velocity,omitempty"`
}

type ContactConfig struct {
	ApplyReaction bool    `yaml:"apply_reaction"`
	Epsilon       float64 `yaml:"epsilon"`
}

func DefaultConfig() *Config {
	fg := fluid.DefaultGlobalParameters()
	fl := fluid.DefaultLocalParameters()
	h := DefaultVolumeHalf
	return &Config{
		Run: RunConfig{
			Solver:      DefaultSolver,
			Steps:       DefaultSteps,
			SampleEvery: DefaultSampleEvery,
		},
		Global: GlobalConfig{
			Gravity:         V(fg.PlaneGravity.X, fg.PlaneGravity.Y, fg.PlaneGravity.Z),
			TimeStep:        fg.TimeStep,
			SimulationScale: fg.SimulationScale,
			ParticleRadius:  fg.ParticleRadius,
			SpeedLimit:      fg.SpeedLimit,
			SmoothRadius:    fg.SmoothRadius(),
		},
		Fluid: FluidConfig{
			MaxParticles:      DefaultMaxParticles,
			VolumeMin:         V(-h, -h, -h),
			VolumeMax:         V(h, h, h),
			Viscosity:         fl.Viscosity,
			RestDensity:       fl.RestDensity,
			ParticleMass:      fl.ParticleMass,
			Stiffness:         fl.Stiffness,
			BoundaryStiffness: fl.BoundaryStiff,
			BoundaryDamping:   fl.BoundaryDamp,
			BoundaryFriction:  fl.BoundaryFriction,
		},
		Contacts: ContactConfig{Epsilon: 1e-6},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GlobalParameters converts the global section, validating it.
func (c *Config) GlobalParameters() (fluid.GlobalParameters, error) {
	fg := fluid.DefaultGlobalParameters()
	fg.PlaneGravity = c.Global.Gravity.R3()
	fg.PointGravity = c.Global.PointGravity
	fg.PointGravityPosition = c.Global.PointGravityPosition.R3()
	fg.TimeStep = c.Global.TimeStep
	fg.SimulationScale = c.Global.SimulationScale
	fg.ParticleRadius = c.Global.ParticleRadius
	fg.SpeedLimit = c.Global.SpeedLimit
	if err := fg.SetSmoothRadius(c.Global.SmoothRadius); err != nil {
		return fg, fmt.Errorf("global: %w", err)
	}
	if err := fg.Validate(); err != nil {
		return fg, fmt.Errorf("global: %w", err)
	}
	return fg, nil
}

// LocalParameters converts the fluid section without validating it.
func (c *Config) LocalParameters() fluid.LocalParameters {
	return fluid.LocalParameters{
		VolumeMin:        c.Fluid.VolumeMin.R3(),
		VolumeMax:        c.Fluid.VolumeMax.R3(),
		Viscosity:        c.Fluid.Viscosity,
		RestDensity:      c.Fluid.RestDensity,
		ParticleMass:     c.Fluid.ParticleMass,
		Stiffness:        c.Fluid.Stiffness,
		BoundaryStiff:    c.Fluid.BoundaryStiffness,
		BoundaryDamp:     c.Fluid.BoundaryDamping,
		BoundaryFriction: c.Fluid.BoundaryFriction,
	}
}

// Validate rejects configurations that would fail or divide by zero once
// the simulation starts.
func (c *Config) Validate() error {
	if _, err := c.GlobalParameters(); err != nil {
		return err
	}
	fl := c.LocalParameters()
	if err := fl.Validate(); err != nil {
		return fmt.Errorf("fluid: %w", err)
	}
	if c.Fluid.MaxParticles < 0 {
		return fmt.Errorf("fluid: max_particles must not be negative, got %d", c.Fluid.MaxParticles)
	}
	if c.Run.Steps < 0 || c.Run.SampleEvery < 0 || c.Run.FrameEvery < 0 {
		return fmt.Errorf("run: steps and intervals must not be negative")
	}
	for i, b := range c.Bodies {
		switch b.Shape {
		case "plane":
			if b.Normal == (Vec3{}) {
				return fmt.Errorf("bodies[%d]: plane needs a normal", i)
			}
		case "sphere":
			if b.Radius <= 0 {
				return fmt.Errorf("bodies[%d]: sphere radius must be positive", i)
			}
		case "box":
			if b.HalfExtents[0] <= 0 || b.HalfExtents[1] <= 0 || b.HalfExtents[2] <= 0 {
				return fmt.Errorf("bodies[%d]: box half extents must be positive", i)
			}
		default:
			return fmt.Errorf("bodies[%d]: unknown shape %q", i, b.Shape)
		}
		if b.Mass < 0 {
			return fmt.Errorf("bodies[%d]: mass must not be negative", i)
		}
	}
	for i, e := range c.Emitters {
		if e.PerStep < 0 {
			return fmt.Errorf("emitters[%d]: per_step must not be negative", i)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Fill = append([]BoxConfig(nil), c.Fill...)
	out.Emitters = append([]EmitterConfig(nil), c.Emitters...)
	out.Absorbers = append([]BoxConfig(nil), c.Absorbers...)
	out.Bodies = append([]BodyConfig(nil), c.Bodies...)
	return &out
}
