package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/sphsim/internal/config"
	"github.com/san-kum/sphsim/internal/experiment"
)

// BuildFunc turns one point of the search space into a runnable experiment.
type BuildFunc func(params map[string]float64) (*experiment.Experiment, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	evaluated  int
	failed     int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// SceneBuilder builds experiments from copies of base with the point's
// parameters applied.
func SceneBuilder(base *config.Config, reg *experiment.Registry) BuildFunc {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		if err := cfg.SetParams(params); err != nil {
			return nil, err
		}
		return experiment.NewWithRegistry(cfg, reg)
	}
}

// Search runs every combination of the parameter ranges and returns the one
// with the smallest final value of metricName. Points that fail to build or
// run are skipped.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, metricName string) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("grid search: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	g.evaluated, g.failed = 0, 0

	best := math.Inf(1)
	var bestParams map[string]float64

	g.searchRecursive(ctx, 0, make(map[string]float64), build, metricName, &best, &bestParams)

	if err := ctx.Err(); err != nil {
		return bestParams, best, err
	}
	if bestParams == nil {
		return nil, best, fmt.Errorf("grid search: none of %d points produced %s", g.evaluated, metricName)
	}
	return bestParams, best, nil
}

// Evaluated reports how many points the last search ran and how many failed.
func (g *GridSearch) Evaluated() (total, failed int) { return g.evaluated, g.failed }

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build BuildFunc,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) {
	if ctx.Err() != nil {
		return
	}
	if depth == len(g.paramNames) {
		g.evaluated++
		exp, err := build(current)
		if err != nil {
			g.failed++
			return
		}

		result, err := exp.Run(ctx)
		if err != nil {
			g.failed++
			return
		}

		val, ok := result.Metrics[metricName]
		if !ok || math.IsNaN(val) {
			g.failed++
			return
		}
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(ctx, depth+1, newParams, build, metricName, best, bestParams)
	}
}
