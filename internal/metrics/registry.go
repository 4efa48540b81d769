package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/sphsim/internal/world"
)

// Metric mirrors sim.Metric so this package does not import the run loop.
type Metric interface {
	Name() string
	Observe(w *world.World)
	Value() float64
	Reset()
}

var constructors = map[string]func() Metric{
	"kinetic_energy":     func() Metric { return NewKineticEnergy() },
	"energy_drift":       func() Metric { return NewEnergyDrift() },
	"density_mean":       func() Metric { return NewDensityStats() },
	"density_rel_stddev": func() Metric { return NewDensityDeviation() },
	"max_speed":          func() Metric { return NewMaxSpeed() },
	"containment":        func() Metric { return NewContainment(1e-6) },
	"contact_load":       func() Metric { return NewContactLoad() },
}

// New returns the metric registered under name.
func New(name string) (Metric, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return ctor(), nil
}

// Names lists every registered metric.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns one instance of every registered metric.
func Default() []Metric {
	out := make([]Metric, 0, len(constructors))
	for _, name := range Names() {
		m, _ := New(name)
		out = append(out, m)
	}
	return out
}
