package optim

import (
	"context"
	"testing"

	"github.com/san-kum/sphsim/internal/config"
	"github.com/san-kum/sphsim/internal/experiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cube() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Run.Steps = 3
	cfg.Run.SampleEvery = 0
	cfg.Fill = []config.BoxConfig{{Min: config.V(0, 0, 0), Max: config.V(1, 1, 1), Spacing: 0.5}}
	return cfg
}

func TestGridSearch(t *testing.T) {
	base := cube()
	g := NewGridSearch([]string{"time_step", "viscosity"}, [][]float64{
		{base.Global.TimeStep * 0.5, base.Global.TimeStep},
		{base.Fluid.Viscosity},
	})

	params, best, err := g.Search(context.Background(), SceneBuilder(base, experiment.NewRegistry()), "max_speed")
	require.NoError(t, err)

	total, failed := g.Evaluated()
	assert.Equal(t, 2, total)
	assert.Zero(t, failed)
	// Falling particles gain less speed in fewer simulated seconds.
	assert.Equal(t, base.Global.TimeStep*0.5, params["time_step"])
	assert.Equal(t, base.Fluid.Viscosity, params["viscosity"])
	assert.GreaterOrEqual(t, best, 0.0)
}

func TestGridSearchFailures(t *testing.T) {
	g := NewGridSearch([]string{"bogus"}, [][]float64{{1, 2}})
	_, _, err := g.Search(context.Background(), SceneBuilder(cube(), experiment.NewRegistry()), "max_speed")
	assert.Error(t, err)
	total, failed := g.Evaluated()
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, failed)

	g = NewGridSearch([]string{"viscosity"}, nil)
	_, _, err = g.Search(context.Background(), SceneBuilder(cube(), experiment.NewRegistry()), "max_speed")
	assert.Error(t, err)
}
