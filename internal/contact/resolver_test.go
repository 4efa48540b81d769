package contact

import (
	"math"
	"testing"

	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

type staticObject struct{ origin r3.Vec }

func (s staticObject) InverseMass() float64          { return 0 }
func (s staticObject) Origin() r3.Vec                { return s.origin }
func (s staticObject) VelocityAtPoint(r3.Vec) r3.Vec { return r3.Vec{X: 100} }

type movingObject struct {
	vel    r3.Vec
	forces []r3.Vec
	points []r3.Vec
}

func (m *movingObject) InverseMass() float64          { return 1 }
func (m *movingObject) Origin() r3.Vec                { return r3.Vec{} }
func (m *movingObject) VelocityAtPoint(r3.Vec) r3.Vec { return m.vel }
func (m *movingObject) ApplyForce(force, rel r3.Vec) {
	m.forces = append(m.forces, force)
	m.points = append(m.points, rel)
}

func setup(t *testing.T) (*fluid.GlobalParameters, *fluid.Sph) {
	t.Helper()
	fg := fluid.DefaultGlobalParameters()
	f, err := fluid.NewSph(&fg, r3.Vec{X: -5, Y: -5, Z: -5}, r3.Vec{X: 5, Y: 5, Z: 5}, 4)
	require.NoError(t, err)
	f.AddParticle(r3.Vec{})
	return &fg, f
}

func up() r3.Vec { return r3.Vec{Y: 1} }

func TestStaticPenetrationIsPureSpring(t *testing.T) {
	fg, f := setup(t)
	fl := f.LocalParameters()
	fl.BoundaryFriction = 0.5
	require.NoError(t, f.SetLocalParameters(fl))

	c := Contact{ParticleIndex: 0, Object: staticObject{}, Normal: up(), Distance: -0.25}
	n := NewResolver().Resolve(fg, f, []Contact{c})
	require.Equal(t, 1, n)

	depth := 0.25 * fg.SimulationScale
	accel := f.Particles().ExternalAccel[0]
	assert.Equal(t, fl.BoundaryStiff*depth, r3.Norm(accel))
	assert.Equal(t, r3.Vec{Y: fl.BoundaryStiff * depth}, accel)
}

func TestSimultaneousContactsSum(t *testing.T) {
	fg, f := setup(t)
	fl := f.LocalParameters()
	contacts := []Contact{
		{ParticleIndex: 0, Object: staticObject{}, Normal: up(), Distance: -0.1},
		{ParticleIndex: 0, Object: staticObject{}, Normal: r3.Vec{X: 1}, Distance: -0.2},
		{ParticleIndex: 0, Object: staticObject{}, Normal: up(), Distance: -0.1},
	}
	assert.Equal(t, 3, NewResolver().Resolve(fg, f, contacts))

	want := r3.Vec{
		X: fl.BoundaryStiff * 0.2 * fg.SimulationScale,
		Y: 2 * fl.BoundaryStiff * 0.1 * fg.SimulationScale,
	}
	got := f.Particles().ExternalAccel[0]
	assert.InDelta(t, want.X, got.X, 1e-12)
	assert.InDelta(t, want.Y, got.Y, 1e-12)
}

func TestTouchingContactIgnored(t *testing.T) {
	fg, f := setup(t)
	r := NewResolver()
	contacts := []Contact{
		{ParticleIndex: 0, Object: staticObject{}, Normal: up(), Distance: 0},
		{ParticleIndex: 0, Object: staticObject{}, Normal: up(), Distance: -r.Epsilon / 2},
		{ParticleIndex: 0, Object: staticObject{}, Normal: up(), Distance: 0.3},
		{ParticleIndex: 7, Object: staticObject{}, Normal: up(), Distance: -1},
	}
	assert.Equal(t, 0, r.Resolve(fg, f, contacts))
	assert.Equal(t, r3.Vec{}, f.Particles().ExternalAccel[0])
}

func TestDampingOpposesApproach(t *testing.T) {
	fg, f := setup(t)
	fl := f.LocalParameters()
	f.SetVelocity(0, r3.Vec{Y: -0.5})

	c := Contact{ParticleIndex: 0, Object: staticObject{}, Normal: up(), Distance: -0.1}
	accel, ok := NewResolver().Acceleration(fg, &fl, f.EvalVelocity(0), &c)
	require.True(t, ok)
	want := fl.BoundaryStiff*0.1*fg.SimulationScale + fl.BoundaryDamp*0.5
	assert.InDelta(t, want, accel.Y, 1e-9)
}

func TestFrictionRemovesTangentialVelocity(t *testing.T) {
	fg, _ := setup(t)
	fl := fluid.DefaultLocalParameters()
	fl.BoundaryFriction = 0.25
	c := Contact{ParticleIndex: 0, Object: staticObject{}, Normal: up(), Distance: -0.1}

	accel, ok := NewResolver().Acceleration(fg, &fl, r3.Vec{X: 2}, &c)
	require.True(t, ok)
	// One step of this acceleration removes a quarter of the sliding speed.
	assert.InDelta(t, -0.5, accel.X*fg.TimeStep, 1e-12)
}

func TestDynamicObjectVelocity(t *testing.T) {
	fg, _ := setup(t)
	fl := fluid.DefaultLocalParameters()
	obj := &movingObject{vel: r3.Vec{Y: 1}}
	c := Contact{ParticleIndex: 0, Object: obj, Normal: up(), Distance: -0.1}

	// A fluid particle moving with the body sees no damping.
	accel, _ := NewResolver().Acceleration(fg, &fl, r3.Vec{Y: fg.SimulationScale}, &c)
	assert.InDelta(t, fl.BoundaryStiff*0.1*fg.SimulationScale, accel.Y, 1e-12)
}

func TestReactionForceFlag(t *testing.T) {
	tests := []struct {
		name     string
		reaction bool
		want     int
	}{
		{"disabled", false, 0},
		{"enabled", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg, f := setup(t)
			fl := f.LocalParameters()
			obj := &movingObject{}
			hit := r3.Vec{X: 0.5, Y: -0.1}
			c := Contact{ParticleIndex: 0, Object: obj, Normal: up(), HitPoint: hit, Distance: -0.1}

			r := NewResolver()
			r.ApplyReaction = tt.reaction
			r.Resolve(fg, f, []Contact{c})

			require.Len(t, obj.forces, tt.want)
			accel := f.Particles().ExternalAccel[0]
			assert.Greater(t, accel.Y, 0.0, "fluid is pushed out either way")
			if tt.want == 0 {
				return
			}
			want := -accel.Y * fl.ParticleMass / fg.SimulationScale
			assert.InDelta(t, want, obj.forces[0].Y, math.Abs(want)*1e-12)
			assert.Equal(t, hit, obj.points[0])
		})
	}
}

func TestReactionSkipsStaticObjects(t *testing.T) {
	fg, f := setup(t)
	r := NewResolver()
	r.ApplyReaction = true
	c := Contact{ParticleIndex: 0, Object: staticObject{}, Normal: up(), Distance: -0.1}
	assert.Equal(t, 1, r.Resolve(fg, f, []Contact{c}))
}
