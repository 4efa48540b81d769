package sim

import (
	"time"

	"github.com/san-kum/sphsim/internal/world"
	"gonum.org/v1/gonum/spatial/r3"
)

type Metric interface {
	Name() string
	Observe(w *world.World)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(w *world.World)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(w *world.World)

func (f ObserverFunc) OnStep(w *world.World) { f(w) }

type Config struct {
	Steps         int
	SampleEvery   int // record metric values every n steps; 0 disables
	FrameEvery    int // record particle positions every n steps; 0 disables
	Seed          int64
	ValidateState bool
}

// Sample is one row of the metric time series.
type Sample struct {
	Step   int
	Time   float64
	Values map[string]float64
}

// Frame is a copy of every particle position of one fluid at one step.
type Frame struct {
	Step      int
	Time      float64
	Fluid     int
	Positions []r3.Vec
}

type Result struct {
	StepsTaken int
	Time       float64
	Particles  int
	Samples    []Sample
	Frames     []Frame
	Metrics    map[string]float64
	Errors     []error
	Wall       time.Duration
}

// Series returns the values of one metric across all samples.
func (r *Result) Series(name string) []float64 {
	out := make([]float64, 0, len(r.Samples))
	for _, s := range r.Samples {
		if v, ok := s.Values[name]; ok {
			out = append(out, v)
		}
	}
	return out
}
