package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/san-kum/sphsim/internal/config"
	"github.com/san-kum/sphsim/internal/experiment"
	"github.com/san-kum/sphsim/internal/sim"
	"github.com/san-kum/sphsim/internal/store"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of scene runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario. Config, when set, is a scene
// file and takes precedence over Preset.
type ScenarioStep struct {
	Preset string             `yaml:"preset"`
	Config string             `yaml:"config"`
	Solver string             `yaml:"solver"`
	Steps  int                `yaml:"steps"`
	Seed   int64              `yaml:"seed"`
	Params map[string]float64 `yaml:"params"`
	SaveAs string             `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}

	return &scenario, nil
}

// StepConfig resolves the scene of a step and applies its overrides.
func StepConfig(step ScenarioStep) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case step.Config != "":
		c, err := config.Load(step.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	case step.Preset != "":
		cfg = config.GetPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", step.Preset)
		}
	default:
		return nil, fmt.Errorf("step needs a preset or a config file")
	}

	if step.Solver != "" {
		cfg.Run.Solver = step.Solver
	}
	if step.Steps > 0 {
		cfg.Run.Steps = step.Steps
	}
	if step.Seed != 0 {
		cfg.Run.Seed = step.Seed
	}
	if step.SaveAs != "" {
		cfg.Name = step.SaveAs
	}
	if err := cfg.SetParams(step.Params); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in a scenario. When st is non-nil every
// finished run is saved to it.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, st *store.Store) ([]*sim.Result, error) {
	results := make([]*sim.Result, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := StepConfig(step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		slog.Info("scenario step", "step", i+1, "of", len(scenario.Steps), "scene", cfg.Name, "solver", cfg.Run.Solver)

		exp, err := experiment.NewWithRegistry(cfg, registry)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, result)

		if st != nil {
			if _, err := st.Save(cfg, result); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
	}

	return results, nil
}

// ParameterSweep runs a scene across evenly spaced values of one parameter
type ParameterSweep struct {
	Base   *config.Config
	Param  string
	Min    float64
	Max    float64
	Points int
}

// SweepResult holds the final metrics of one sweep point
type SweepResult struct {
	Value   float64
	Metrics map[string]float64
	Stable  bool
	Err     error
}

// Values returns the parameter values the sweep visits.
func (s *ParameterSweep) Values() []float64 {
	if s.Points <= 1 {
		return []float64{s.Min}
	}
	step := (s.Max - s.Min) / float64(s.Points-1)
	values := make([]float64, s.Points)
	for i := range values {
		values[i] = s.Min + float64(i)*step
	}
	return values
}

// RunSweep executes a parameter sweep. A point whose run fails is reported
// as unstable rather than aborting the sweep.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.Base == nil {
		return nil, fmt.Errorf("sweep has no base scene")
	}
	if _, err := sweep.Base.Clone().Param(sweep.Param); err != nil {
		return nil, err
	}

	values := sweep.Values()
	results := make([]SweepResult, 0, len(values))
	for i, v := range values {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		cfg := sweep.Base.Clone()
		ref, _ := cfg.Param(sweep.Param)
		*ref = v

		res := SweepResult{Value: v}
		res.Metrics, res.Err = runOnce(ctx, cfg, registry)
		res.Stable = res.Err == nil && bounded(res.Metrics)
		results = append(results, res)

		slog.Info("sweep point", "index", i+1, "of", len(values), sweep.Param, v, "stable", res.Stable)
	}

	return results, nil
}

func runOnce(ctx context.Context, cfg *config.Config, registry *experiment.Registry) (map[string]float64, error) {
	exp, err := experiment.NewWithRegistry(cfg, registry)
	if err != nil {
		return nil, err
	}
	result, err := exp.Run(ctx)
	if result == nil {
		return nil, err
	}
	return result.Metrics, err
}

func bounded(metrics map[string]float64) bool {
	for _, v := range metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MonteCarloConfig defines Monte Carlo simulation parameters
type MonteCarloConfig struct {
	Base         *config.Config
	Params       []string
	Perturbation float64 // relative, each parameter is scaled by 1±Perturbation
	NumTrials    int
	Seed         int64
}

// MonteCarloResult holds the outcome of one perturbed run
type MonteCarloResult struct {
	TrialID int
	Params  map[string]float64
	Metrics map[string]float64
	Stable  bool
}

// RunMonteCarlo executes multiple trials with random parameter perturbations
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry) ([]MonteCarloResult, error) {
	if cfg.Base == nil {
		return nil, fmt.Errorf("monte carlo has no base scene")
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < cfg.NumTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		sc := cfg.Base.Clone()
		params := make(map[string]float64, len(cfg.Params))
		for _, name := range cfg.Params {
			ref, err := sc.Param(name)
			if err != nil {
				return nil, err
			}
			*ref *= 1 + (rng.Float64()-0.5)*2*cfg.Perturbation
			params[name] = *ref
		}

		var metrics map[string]float64
		err := sc.Validate()
		if err == nil {
			metrics, err = runOnce(ctx, sc, registry)
		}

		results = append(results, MonteCarloResult{
			TrialID: trial,
			Params:  params,
			Metrics: metrics,
			Stable:  err == nil && bounded(metrics),
		})

		if (trial+1)%10 == 0 {
			slog.Info("monte carlo", "complete", trial+1, "trials", cfg.NumTrials)
		}
	}

	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
