package fluid

import (
	"slices"

	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/grid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sph is a single fluid body: its material parameters, particles and the
// grid used to sort them. Fluids in the same world do not interact.
type Sph struct {
	local     LocalParameters
	particles *Particles
	grid      *grid.Grid
	removed   []int
}

// NewSph creates an empty fluid confined to [volumeMin, volumeMax] with
// room for maxParticles particles. Material parameters start at
// DefaultLocalParameters.
func NewSph(fg *GlobalParameters, volumeMin, volumeMax r3.Vec, maxParticles int) (*Sph, error) {
	if maxParticles < 0 {
		return nil, dynamo.Boundsf("max particles must not be negative, got %d", maxParticles)
	}
	f := &Sph{
		local:     DefaultLocalParameters(),
		particles: newParticles(maxParticles),
		grid:      &grid.Grid{},
	}
	if err := f.ConfigureGridAndAabb(fg, volumeMin, volumeMax); err != nil {
		return nil, err
	}
	return f, nil
}

// ConfigureGridAndAabb sets the fluid volume and rebuilds the grid lattice
// with cells one smoothing radius wide. The grid contents are discarded;
// call InsertParticlesIntoGrid before querying it again.
func (f *Sph) ConfigureGridAndAabb(fg *GlobalParameters, volumeMin, volumeMax r3.Vec) error {
	if err := fg.Validate(); err != nil {
		return err
	}
	local := f.local
	local.VolumeMin = volumeMin
	local.VolumeMax = volumeMax
	if err := local.Validate(); err != nil {
		return err
	}
	if err := f.grid.Configure(volumeMin, volumeMax, fg.SmoothRadiusWorld()); err != nil {
		return err
	}
	f.local = local
	return nil
}

// CurrentAabb returns the bounding box of all live particles. An empty fluid
// returns a zero box.
func (f *Sph) CurrentAabb() r3.Box {
	pos := f.particles.Pos
	if len(pos) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: pos[0], Max: pos[0]}
	for _, p := range pos[1:] {
		b.Min = r3.Vec{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)}
	}
	return b
}

// LocalParameters returns a copy of the fluid's material parameters.
func (f *Sph) LocalParameters() LocalParameters { return f.local }

// SetLocalParameters replaces the material parameters. The volume bounds in
// fl are ignored; use ConfigureGridAndAabb to move the volume.
func (f *Sph) SetLocalParameters(fl LocalParameters) error {
	fl.VolumeMin = f.local.VolumeMin
	fl.VolumeMax = f.local.VolumeMax
	if err := fl.Validate(); err != nil {
		return err
	}
	f.local = fl
	return nil
}

// EmitterSpacing is the world-scale distance between particles packed at
// rest density.
func (f *Sph) EmitterSpacing(fg *GlobalParameters) float64 {
	return f.local.ParticleDist() / fg.SimulationScale
}

// NumParticles returns the number of live particles.
func (f *Sph) NumParticles() int { return f.particles.Len() }

// MaxParticles returns the capacity.
func (f *Sph) MaxParticles() int { return f.particles.max }

// SetMaxParticles changes the capacity, dropping particles from the tail if
// the fluid holds more than n. Negative values are treated as zero. Pending
// removals of surviving particles are kept.
func (f *Sph) SetMaxParticles(n int) {
	n = max(n, 0)
	if f.particles.Len() > n {
		f.particles.truncate(n)
		f.removed = slices.DeleteFunc(f.removed, func(i int) bool { return i >= n })
	}
	f.particles.max = n
	f.particles.reserve(n)
}

// AddParticle adds a particle at rest at the world-scale position pos and
// returns its index. When the fluid is full an existing particle is
// overwritten instead, so callers must tolerate index reuse. Returns
// grid.InvalidIndex only when the capacity is zero.
func (f *Sph) AddParticle(pos r3.Vec) int {
	if f.particles.max == 0 {
		return grid.InvalidIndex
	}
	return f.particles.add(pos)
}

// MarkParticleForRemoval schedules particle i for removal by the next
// RemoveMarkedParticles. Marking the same index twice is harmless.
func (f *Sph) MarkParticleForRemoval(i int) {
	f.removed = append(f.removed, i)
}

// RemoveAllParticles drops every particle and pending removal.
func (f *Sph) RemoveAllParticles() {
	f.particles.truncate(0)
	f.removed = f.removed[:0]
	f.grid.Clear()
}

// RemoveMarkedParticles compacts the store by moving tail particles into
// removed slots. Indices held from before the call are invalid afterwards,
// and the grid must be rebuilt before it is queried.
func (f *Sph) RemoveMarkedParticles() int {
	if len(f.removed) == 0 {
		return 0
	}
	slices.Sort(f.removed)
	f.removed = slices.Compact(f.removed)

	// Descending order: every slot above the current one is either already
	// removed or was kept, so the tail particle is never a marked one.
	n := 0
	for k := len(f.removed) - 1; k >= 0; k-- {
		i := f.removed[k]
		if i < 0 || i >= f.particles.Len() {
			continue
		}
		f.particles.moveFromTail(i)
		n++
	}
	f.removed = f.removed[:0]
	return n
}

// PendingRemovals returns the number of marks, duplicates included, that
// the next RemoveMarkedParticles will process.
func (f *Sph) PendingRemovals() int { return len(f.removed) }

// InsertParticlesIntoGrid rebuilds the grid from current positions.
func (f *Sph) InsertParticlesIntoGrid() {
	f.grid.Insert(f.particles.Pos)
}

// Grid returns the sorting grid. Its contents reflect the last
// InsertParticlesIntoGrid.
func (f *Sph) Grid() *grid.Grid { return f.grid }

// Particles exposes the particle arrays to solvers.
func (f *Sph) Particles() *Particles { return f.particles }

// Position returns the world-scale position of particle i.
func (f *Sph) Position(i int) r3.Vec { return f.particles.Pos[i] }

// Velocity returns the simulation-scale velocity of particle i.
func (f *Sph) Velocity(i int) r3.Vec { return f.particles.Vel[i] }

// EvalVelocity returns the averaged velocity used by the viscosity term.
func (f *Sph) EvalVelocity(i int) r3.Vec { return f.particles.VelEval[i] }

// Density returns the density from the last pressure pass.
func (f *Sph) Density(i int) float64 { return f.particles.Density[i] }

// Pressure returns the pressure from the last pressure pass.
func (f *Sph) Pressure(i int) float64 { return f.particles.Pressure[i] }

// SetPosition moves particle i to a world-scale position.
func (f *Sph) SetPosition(i int, pos r3.Vec) {
	f.particles.Pos[i] = pos
}

// SetVelocity sets both the velocity and the eval velocity of particle i at
// simulation scale.
func (f *Sph) SetVelocity(i int, vel r3.Vec) {
	f.particles.Vel[i] = vel
	f.particles.VelEval[i] = vel
}

// ApplyAcceleration adds a simulation-scale acceleration to particle i for
// the next integration.
func (f *Sph) ApplyAcceleration(i int, accel r3.Vec) {
	p := f.particles
	p.ExternalAccel[i] = r3.Add(p.ExternalAccel[i], accel)
}
