package config

import (
	"fmt"

	"github.com/san-kum/sphsim/internal/dynamo"
)

type param struct {
	name string
	ref  func(c *Config) *float64
}

// params are the scalar settings addressable by name from sweeps, searches
// and the interactive editor.
var params = []param{
	{"viscosity", func(c *Config) *float64 { return &c.Fluid.Viscosity }},
	{"stiffness", func(c *Config) *float64 { return &c.Fluid.Stiffness }},
	{"rest_density", func(c *Config) *float64 { return &c.Fluid.RestDensity }},
	{"particle_mass", func(c *Config) *float64 { return &c.Fluid.ParticleMass }},
	{"boundary_stiffness", func(c *Config) *float64 { return &c.Fluid.BoundaryStiffness }},
	{"boundary_damping", func(c *Config) *float64 { return &c.Fluid.BoundaryDamping }},
	{"gravity_y", func(c *Config) *float64 { return &c.Global.Gravity[1] }},
	{"time_step", func(c *Config) *float64 { return &c.Global.TimeStep }},
	{"smooth_radius", func(c *Config) *float64 { return &c.Global.SmoothRadius }},
	{"speed_limit", func(c *Config) *float64 { return &c.Global.SpeedLimit }},
}

// ParamNames lists the names accepted by Param, in editor order.
func ParamNames() []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.name
	}
	return names
}

// Param returns a pointer to the named scalar setting of c.
func (c *Config) Param(name string) (*float64, error) {
	for _, p := range params {
		if p.name == name {
			return p.ref(c), nil
		}
	}
	return nil, fmt.Errorf("%w: unknown parameter %q (available: %v)", dynamo.ErrInvalidState, name, ParamNames())
}

// SetParams applies values by name.
func (c *Config) SetParams(values map[string]float64) error {
	for name, v := range values {
		ref, err := c.Param(name)
		if err != nil {
			return err
		}
		*ref = v
	}
	return nil
}
