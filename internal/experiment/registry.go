package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/sphsim/internal/config"
	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/metrics"
	"github.com/san-kum/sphsim/internal/sim"
	"github.com/san-kum/sphsim/internal/solver"
)

// Registry resolves solver, metric and preset names.
type Registry struct {
	solvers map[string]func() (solver.Solver, error)
	metrics []string
}

func NewRegistry() *Registry {
	r := &Registry{
		solvers: make(map[string]func() (solver.Solver, error)),
		metrics: metrics.Names(),
	}
	for _, name := range solver.Names() {
		r.solvers[name] = func() (solver.Solver, error) { return solver.New(name) }
	}
	return r
}

// RegisterSolver adds or replaces a solver constructor.
func (r *Registry) RegisterSolver(name string, fn func() (solver.Solver, error)) {
	r.solvers[name] = fn
}

// SetMetrics restricts DefaultMetrics to the named metrics.
func (r *Registry) SetMetrics(names []string) error {
	for _, name := range names {
		if _, err := metrics.New(name); err != nil {
			return err
		}
	}
	r.metrics = append([]string(nil), names...)
	return nil
}

func (r *Registry) GetSolver(name string) (solver.Solver, error) {
	fn, ok := r.solvers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownSolver, name)
	}
	return fn()
}

func (r *Registry) GetPreset(name string) (*config.Config, error) {
	cfg := config.GetPreset(name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s", name)
	}
	return cfg, nil
}

func (r *Registry) ListSolvers() []string {
	names := make([]string, 0, len(r.solvers))
	for name := range r.solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListMetrics() []string { return append([]string(nil), r.metrics...) }
func (r *Registry) ListPresets() []string { return config.ListPresets() }

// DefaultMetrics returns fresh instances of the selected metrics.
func (r *Registry) DefaultMetrics() []sim.Metric {
	out := make([]sim.Metric, 0, len(r.metrics))
	for _, name := range r.metrics {
		m, err := metrics.New(name)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}
