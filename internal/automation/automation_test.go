package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/sphsim/internal/config"
	"github.com/san-kum/sphsim/internal/experiment"
	"github.com/san-kum/sphsim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallScene() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Name = "cube"
	cfg.Run.Steps = 4
	cfg.Run.SampleEvery = 2
	cfg.Fill = []config.BoxConfig{{Min: config.V(0, 0, 0), Max: config.V(1, 1, 1), Spacing: 0.5}}
	return cfg
}

func TestScenario(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "cube.yaml")
	require.NoError(t, config.Save(scenePath, smallScene()))

	script := `name: check
steps:
  - config: ` + scenePath + `
    steps: 3
    params:
      viscosity: 0.3
    save_as: viscous
  - config: ` + scenePath + `
    solver: reduced
`
	scriptPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0644))

	sc, err := LoadScenario(scriptPath)
	require.NoError(t, err)
	require.Len(t, sc.Steps, 2)

	cfg, err := StepConfig(sc.Steps[0])
	require.NoError(t, err)
	assert.Equal(t, "viscous", cfg.Name)
	assert.Equal(t, 3, cfg.Run.Steps)
	assert.InDelta(t, 0.3, cfg.Fluid.Viscosity, 1e-12)

	st := store.New(filepath.Join(dir, "runs"))
	require.NoError(t, st.Init())
	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), st)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0].StepsTaken)
	assert.Equal(t, 4, results[1].StepsTaken)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestScenarioErrors(t *testing.T) {
	_, err := StepConfig(ScenarioStep{})
	assert.Error(t, err)

	_, err = StepConfig(ScenarioStep{Preset: "nope"})
	assert.Error(t, err)

	_, err = StepConfig(ScenarioStep{Preset: "drop", Params: map[string]float64{"bogus": 1}})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: empty\n"), 0644))
	_, err = LoadScenario(path)
	assert.Error(t, err)
}

func TestSweepValues(t *testing.T) {
	s := &ParameterSweep{Min: 1, Max: 2, Points: 5}
	assert.InDeltaSlice(t, []float64{1, 1.25, 1.5, 1.75, 2}, s.Values(), 1e-12)

	s.Points = 1
	assert.Equal(t, []float64{1}, s.Values())
}

func TestRunSweep(t *testing.T) {
	sweep := &ParameterSweep{Base: smallScene(), Param: "stiffness", Min: 1, Max: 2, Points: 2}
	results, err := RunSweep(context.Background(), sweep, experiment.NewRegistry())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.True(t, r.Stable)
		assert.Contains(t, r.Metrics, "kinetic_energy")
	}
	assert.Equal(t, 2.0, results[1].Value)

	sweep.Param = "bogus"
	_, err = RunSweep(context.Background(), sweep, experiment.NewRegistry())
	assert.Error(t, err)
}

func TestMonteCarlo(t *testing.T) {
	mc := &MonteCarloConfig{
		Base:         smallScene(),
		Params:       []string{"viscosity", "stiffness"},
		Perturbation: 0.1,
		NumTrials:    3,
		Seed:         7,
	}
	results, err := RunMonteCarlo(context.Background(), mc, experiment.NewRegistry())
	require.NoError(t, err)
	require.Len(t, results, 3)

	base := smallScene()
	for _, r := range results {
		assert.InDelta(t, base.Fluid.Viscosity, r.Params["viscosity"], 0.1*base.Fluid.Viscosity+1e-12)
	}

	stable, unstable := MonteCarloStats(results)
	assert.Equal(t, 3, stable+unstable)
	assert.Equal(t, 3, stable)
}
