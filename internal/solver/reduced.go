package solver

import (
	"math"

	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/grid"
	"gonum.org/v1/gonum/spatial/r3"
)

// ReducedGridNeighbor evaluates every pair once and applies the result to
// both particles. Particles are processed in cell-chain order and unlinked
// from their cell once done, so later particles never see them again. The
// cell heads are restored when the pass ends.
//
// Unlinking mutates the grid, so both passes run on one goroutine.
type ReducedGridNeighbor struct {
	heads []int
}

func NewReducedGridNeighbor() *ReducedGridNeighbor {
	return &ReducedGridNeighbor{}
}

func (s *ReducedGridNeighbor) Name() string { return "reduced" }

// forEachPair calls self for every particle and pair for every unordered
// pair of distinct particles in neighboring cells, with r2 at simulation
// scale.
func (s *ReducedGridNeighbor) forEachPair(fg *fluid.GlobalParameters, f *fluid.Sph, self func(i int), pair func(i, j int, r2 float64)) {
	p := f.Particles()
	g := f.Grid()
	ss := fg.SimulationScale

	s.heads = g.SaveHeads(s.heads)
	defer g.RestoreHeads(s.heads)

	var cells [grid.NeighborCells]int
	for c := 0; c < g.NumCells(); c++ {
		for i := g.Head(c); i != grid.InvalidIndex; i = g.Head(c) {
			self(i)
			pos := p.Pos[i]
			n := g.NeighborCells(pos, &cells)
			for _, nc := range cells[:n] {
				for j := g.Head(nc); j != grid.InvalidIndex; j = g.Next(j) {
					if j == i {
						continue
					}
					pair(i, j, r3.Norm2(r3.Scale(ss, r3.Sub(pos, p.Pos[j]))))
				}
			}
			g.RemoveHead(c)
		}
	}
}

func (s *ReducedGridNeighbor) ComputePressure(fg *fluid.GlobalParameters, f *fluid.Sph) {
	p := f.Particles()
	fl := f.LocalParameters()
	h2 := fg.R2()

	sums := p.Density
	for i := range sums {
		sums[i] = 0
	}
	selfTerm := poly6Term(0, h2)
	s.forEachPair(fg, f,
		func(i int) { sums[i] += selfTerm },
		func(i, j int, r2 float64) {
			if r2 < h2 {
				w := poly6Term(r2, h2)
				sums[i] += w
				sums[j] += w
			}
		})

	densityScale := fl.ParticleMass * fg.Poly6Kern()
	for i := range sums {
		p.Density[i] = sums[i] * densityScale
		p.Pressure[i] = pressure(p.Density[i], &fl)
	}
}

func (s *ReducedGridNeighbor) ComputeForce(fg *fluid.GlobalParameters, f *fluid.Sph) {
	p := f.Particles()
	fl := f.LocalParameters()
	h2 := fg.R2()
	ss := fg.SimulationScale

	accel := p.SphAccel
	for i := range accel {
		accel[i] = r3.Vec{}
	}
	s.forEachPair(fg, f,
		func(int) {},
		func(i, j int, r2 float64) {
			if r2 >= h2 {
				return
			}
			r := math.Sqrt(r2)
			if r < minPairDistance {
				return
			}
			d := r3.Scale(ss, r3.Sub(p.Pos[i], p.Pos[j]))
			a := pairForce(fg, fl.Viscosity, d, r,
				p.Pressure[i], p.Pressure[j], p.Density[i], p.Density[j],
				p.VelEval[i], p.VelEval[j])
			accel[i] = r3.Add(accel[i], a)
			accel[j] = r3.Sub(accel[j], a)
		})

	for i := range accel {
		accel[i] = r3.Scale(fl.ParticleMass, accel[i])
	}
}

func (s *ReducedGridNeighbor) Integrate(fg *fluid.GlobalParameters, f *fluid.Sph) {
	integrate(fg, f)
}
