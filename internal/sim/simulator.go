package sim

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/world"
)

type Simulator struct {
	world     *world.World
	metrics   []Metric
	observers []Observer
}

func New(w *world.World) *Simulator {
	return &Simulator{
		world:     w,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) World() *world.World    { return s.world }

// Run advances the world cfg.Steps times. A step that fails ends the run;
// the partial result is returned along with the error.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	w := s.world
	w.SetValidateState(cfg.ValidateState)
	w.Seed(cfg.Seed)

	result := &Result{
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}
	if cfg.SampleEvery > 0 {
		result.Samples = make([]Sample, 0, cfg.Steps/cfg.SampleEvery+1)
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	start := time.Now()
	s.observe()
	s.record(result, cfg)

	var runErr error
	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			runErr = fmt.Errorf("%w after %d steps: %w", dynamo.ErrContextCanceled, i, ctx.Err())
		default:
		}
		if runErr != nil {
			break
		}

		if err := w.Step(); err != nil {
			result.Errors = append(result.Errors, err)
			runErr = err
			break
		}
		result.StepsTaken++

		s.observe()
		for _, obs := range s.observers {
			obs.OnStep(w)
		}
		s.record(result, cfg)
	}

	result.Wall = time.Since(start)
	result.Time = w.Time()
	result.Particles = w.NumParticles()
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, runErr
}

// RunWithCallback steps until cfg.Steps is reached or callback returns
// false. Metrics and frames are not recorded.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(w *world.World) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}
	w := s.world
	w.SetValidateState(cfg.ValidateState)
	w.Seed(cfg.Seed)

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}
		if err := w.Step(); err != nil {
			return err
		}
		if !callback(w) {
			return nil
		}
	}
	return nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if s.world == nil {
		return fmt.Errorf("simulator has no world")
	}
	if cfg.Steps <= 0 {
		return dynamo.Boundsf("steps must be positive, got %d", cfg.Steps)
	}
	if cfg.SampleEvery < 0 {
		return dynamo.Boundsf("sample interval must not be negative, got %d", cfg.SampleEvery)
	}
	if cfg.FrameEvery < 0 {
		return dynamo.Boundsf("frame interval must not be negative, got %d", cfg.FrameEvery)
	}
	return nil
}

func (s *Simulator) observe() {
	for _, m := range s.metrics {
		m.Observe(s.world)
	}
}

func (s *Simulator) record(result *Result, cfg Config) {
	w := s.world
	step := w.StepCount()

	if cfg.SampleEvery > 0 && step%cfg.SampleEvery == 0 {
		values := make(map[string]float64, len(s.metrics))
		for _, m := range s.metrics {
			values[m.Name()] = m.Value()
		}
		result.Samples = append(result.Samples, Sample{Step: step, Time: w.Time(), Values: values})
	}

	if cfg.FrameEvery > 0 && step%cfg.FrameEvery == 0 {
		for k, f := range w.Fluids() {
			result.Frames = append(result.Frames, Frame{
				Step:      step,
				Time:      w.Time(),
				Fluid:     k,
				Positions: slices.Clone(f.Particles().Pos),
			})
		}
	}
}
