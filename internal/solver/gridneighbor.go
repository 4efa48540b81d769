package solver

import (
	"math"
	"sync"

	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/grid"
	"gonum.org/v1/gonum/spatial/r3"
)

const passChunk = 64

type neighbor struct {
	index    int
	distance float64 // simulation scale
}

// GridNeighbor visits the 27 surrounding cells for every particle. The
// pressure pass records each particle's neighbors and the force pass reuses
// that table, so both passes see the same neighbor set. Both passes run in
// parallel over particle ranges.
type GridNeighbor struct {
	mu     sync.Mutex
	tables map[*fluid.Sph][][]neighbor
}

func NewGridNeighbor() *GridNeighbor {
	return &GridNeighbor{tables: make(map[*fluid.Sph][][]neighbor)}
}

func (s *GridNeighbor) Name() string { return "grid" }

func (s *GridNeighbor) table(f *fluid.Sph, n int) [][]neighbor {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[f]
	if cap(t) < n {
		grown := make([][]neighbor, n)
		copy(grown, t)
		t = grown
	}
	t = t[:n]
	s.tables[f] = t
	return t
}

// Forget drops the neighbor table kept for f.
func (s *GridNeighbor) Forget(f *fluid.Sph) {
	s.mu.Lock()
	delete(s.tables, f)
	s.mu.Unlock()
}

func (s *GridNeighbor) ComputePressure(fg *fluid.GlobalParameters, f *fluid.Sph) {
	p := f.Particles()
	fl := f.LocalParameters()
	g := f.Grid()
	n := p.Len()
	tab := s.table(f, n)

	ss := fg.SimulationScale
	h2 := fg.R2()
	densityScale := fl.ParticleMass * fg.Poly6Kern()

	dynamo.ParallelFor(n, passChunk, func(start, end int) {
		var cells [grid.NeighborCells]int
		for i := start; i < end; i++ {
			pos := p.Pos[i]
			nbs := tab[i][:0]
			sum := 0.0

			nc := g.NeighborCells(pos, &cells)
			for _, c := range cells[:nc] {
				for j := g.Head(c); j != grid.InvalidIndex; j = g.Next(j) {
					r2 := r3.Norm2(r3.Scale(ss, r3.Sub(pos, p.Pos[j])))
					if r2 >= h2 {
						continue
					}
					sum += poly6Term(r2, h2)
					if j != i {
						nbs = append(nbs, neighbor{index: j, distance: math.Sqrt(r2)})
					}
				}
			}

			tab[i] = nbs
			p.Density[i] = sum * densityScale
			p.Pressure[i] = pressure(p.Density[i], &fl)
		}
	})
}

// ComputeForce writes SphAccel from the neighbor table built by the last
// ComputePressure on f. If the particle count changed since then the
// pressure pass is rerun first.
func (s *GridNeighbor) ComputeForce(fg *fluid.GlobalParameters, f *fluid.Sph) {
	p := f.Particles()
	n := p.Len()

	s.mu.Lock()
	tab, ok := s.tables[f]
	s.mu.Unlock()
	if !ok || len(tab) != n {
		s.ComputePressure(fg, f)
		tab = s.table(f, n)
	}

	fl := f.LocalParameters()
	ss := fg.SimulationScale

	dynamo.ParallelFor(n, passChunk, func(start, end int) {
		for i := start; i < end; i++ {
			var accel r3.Vec
			for _, nb := range tab[i] {
				if nb.distance < minPairDistance {
					continue
				}
				j := nb.index
				d := r3.Scale(ss, r3.Sub(p.Pos[i], p.Pos[j]))
				accel = r3.Add(accel, pairForce(fg, fl.Viscosity, d, nb.distance,
					p.Pressure[i], p.Pressure[j], p.Density[i], p.Density[j],
					p.VelEval[i], p.VelEval[j]))
			}
			p.SphAccel[i] = r3.Scale(fl.ParticleMass, accel)
		}
	})
}

func (s *GridNeighbor) Integrate(fg *fluid.GlobalParameters, f *fluid.Sph) {
	integrate(fg, f)
}
