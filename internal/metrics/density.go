package metrics

import (
	"math"

	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/world"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DensityStats observes particle densities across all fluids. Its Value is
// the mean; StdDev and Compression are available for reporting.
type DensityStats struct {
	name        string
	mean        float64
	stdDev      float64
	compression float64
	buf         []float64
}

func NewDensityStats() *DensityStats {
	return &DensityStats{name: "density_mean"}
}

func (d *DensityStats) Name() string { return d.name }

func (d *DensityStats) Observe(w *world.World) {
	d.buf = d.buf[:0]
	restSum := 0.0
	forEachFluid(w, func(f *fluid.Sph, p *fluid.Particles) {
		d.buf = append(d.buf, p.Density...)
		restSum += f.LocalParameters().RestDensity * float64(p.Len())
	})
	if len(d.buf) == 0 {
		d.mean, d.stdDev, d.compression = 0, 0, 0
		return
	}
	d.mean, d.stdDev = stat.MeanStdDev(d.buf, nil)
	if len(d.buf) == 1 {
		d.stdDev = 0
	}
	rest := restSum / float64(len(d.buf))
	d.compression = (floats.Max(d.buf) - rest) / rest
}

func (d *DensityStats) Value() float64 { return d.mean }

// StdDev returns the sample standard deviation of the last observation.
func (d *DensityStats) StdDev() float64 { return d.stdDev }

// Compression returns (max density - rest density) / rest density for the
// last observation. Positive values mean the densest particle is
// compressed.
func (d *DensityStats) Compression() float64 { return d.compression }

func (d *DensityStats) Reset() {
	d.mean, d.stdDev, d.compression = 0, 0, 0
	d.buf = d.buf[:0]
}

// DensityDeviation reports the relative density standard deviation as its
// own series.
type DensityDeviation struct {
	stats *DensityStats
}

func NewDensityDeviation() *DensityDeviation {
	return &DensityDeviation{stats: NewDensityStats()}
}

func (d *DensityDeviation) Name() string { return "density_rel_stddev" }

func (d *DensityDeviation) Observe(w *world.World) { d.stats.Observe(w) }

func (d *DensityDeviation) Value() float64 {
	if d.stats.mean == 0 || math.IsNaN(d.stats.stdDev) {
		return 0
	}
	return d.stats.stdDev / d.stats.mean
}

func (d *DensityDeviation) Reset() { d.stats.Reset() }
