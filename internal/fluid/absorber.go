package fluid

import "gonum.org/v1/gonum/spatial/r3"

// Absorber removes particles that enter an axis-aligned box.
type Absorber struct {
	Min r3.Vec
	Max r3.Vec
}

// Contains reports whether p lies inside the box, boundary included.
func (a *Absorber) Contains(p r3.Vec) bool {
	return p.X >= a.Min.X && p.X <= a.Max.X &&
		p.Y >= a.Min.Y && p.Y <= a.Max.Y &&
		p.Z >= a.Min.Z && p.Z <= a.Max.Z
}

// Absorb marks every particle inside the box for removal and returns how
// many were marked. The grid must be current; only the cells overlapping
// the box are visited.
func (a *Absorber) Absorb(f *Sph) int {
	n := 0
	pos := f.particles.Pos
	f.grid.ForEachInAabb(a.Min, a.Max, func(i int) {
		if i < len(pos) && a.Contains(pos[i]) {
			f.MarkParticleForRemoval(i)
			n++
		}
	})
	return n
}
