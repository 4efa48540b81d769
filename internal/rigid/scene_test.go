package rigid

import (
	"math"
	"testing"

	"github.com/san-kum/sphsim/internal/contact"
	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func fluidAt(t *testing.T, positions ...r3.Vec) (*fluid.GlobalParameters, *fluid.Sph) {
	t.Helper()
	fg := fluid.DefaultGlobalParameters()
	f, err := fluid.NewSph(&fg, r3.Vec{X: -20, Y: -20, Z: -20}, r3.Vec{X: 20, Y: 20, Z: 20}, len(positions))
	require.NoError(t, err)
	for _, p := range positions {
		f.AddParticle(p)
	}
	f.InsertParticlesIntoGrid()
	return &fg, f
}

var _ contact.CollisionObject = Handle{}
var _ contact.ForceReceiver = Handle{}
var _ contact.Source = (*Scene)(nil)

func TestPlaneContacts(t *testing.T) {
	fg, f := fluidAt(t,
		r3.Vec{Y: -0.5},
		r3.Vec{X: 3, Y: 0.5},
		r3.Vec{Y: 3},
	)
	s := NewScene()
	plane := s.AddPlane(r3.Vec{}, r3.Vec{Y: 2})

	contacts := s.Contacts(fg, f, nil)
	require.Len(t, contacts, 2)

	radius := fg.ParticleRadius / fg.SimulationScale
	byIndex := map[int]contact.Contact{}
	for _, c := range contacts {
		byIndex[c.ParticleIndex] = c
		assert.Equal(t, r3.Vec{Y: 1}, c.Normal)
		assert.Equal(t, plane, c.Object)
	}
	assert.InDelta(t, -0.5-radius, byIndex[0].Distance, 1e-12)
	assert.InDelta(t, 0.5-radius, byIndex[1].Distance, 1e-12)
	assert.Equal(t, r3.Vec{X: 3}, byIndex[1].HitPoint)
}

func TestSphereContact(t *testing.T) {
	fg, f := fluidAt(t, r3.Vec{X: 4.5}, r3.Vec{X: -9})
	s := NewScene()
	s.AddSphere(r3.Vec{X: 2}, 3, 0, r3.Vec{})

	contacts := s.Contacts(fg, f, nil)
	require.Len(t, contacts, 1)
	c := contacts[0]
	assert.Equal(t, 0, c.ParticleIndex)
	assert.InDelta(t, 1, c.Normal.X, 1e-12)
	assert.InDelta(t, 5, c.HitPoint.X, 1e-12)
	assert.InDelta(t, 2.5-3-1, c.Distance, 1e-12)
}

func TestBoxContactInsideUsesNearestFace(t *testing.T) {
	fg, f := fluidAt(t, r3.Vec{X: 0.2, Y: 1.8, Z: 0})
	s := NewScene()
	s.AddBox(r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 2}, 0, r3.Vec{})

	contacts := s.Contacts(fg, f, nil)
	require.Len(t, contacts, 1)
	c := contacts[0]
	assert.Equal(t, r3.Vec{Y: 1}, c.Normal)
	assert.InDelta(t, 2, c.HitPoint.Y, 1e-12)
	assert.InDelta(t, -0.2-1, c.Distance, 1e-12)
}

func TestBoxDistanceOutside(t *testing.T) {
	d, n, hit := boxDistance(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 4, Y: 5, Z: 0})
	assert.InDelta(t, 5, d, 1e-12)
	assert.InDelta(t, 0.6, n.X, 1e-12)
	assert.InDelta(t, 0.8, n.Y, 1e-12)
	assert.Equal(t, r3.Vec{X: 1, Y: 1}, hit)
}

func TestDynamicBodyFalls(t *testing.T) {
	fg := fluid.DefaultGlobalParameters()
	s := NewScene()
	ball := s.AddSphere(r3.Vec{Y: 5}, 1, 2, r3.Vec{})
	wall := s.AddPlane(r3.Vec{Y: -10}, r3.Vec{Y: 1})

	s.Step(&fg)

	wantVel := fg.PlaneGravity.Y / fg.SimulationScale * fg.TimeStep
	assert.InDelta(t, wantVel, ball.Velocity().Y, 1e-9)
	assert.InDelta(t, 5+wantVel*fg.TimeStep, ball.Origin().Y, 1e-9)
	assert.Equal(t, r3.Vec{Y: -10}, wall.Origin(), "static bodies stay put")
	assert.Equal(t, 0.5, ball.InverseMass())
	assert.Equal(t, 0.0, wall.InverseMass())
}

func TestKinematicBodyMoves(t *testing.T) {
	fg := fluid.DefaultGlobalParameters()
	s := NewScene()
	paddle := s.AddBox(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0, r3.Vec{X: 10})
	paddle.ApplyForce(r3.Vec{X: -1000}, r3.Vec{})

	s.Step(&fg)
	assert.InDelta(t, 10*fg.TimeStep, paddle.Origin().X, 1e-12)
	assert.Equal(t, r3.Vec{X: 10}, paddle.Velocity(), "kinematic bodies ignore forces and gravity")
}

func TestApplyForceAndTorque(t *testing.T) {
	fg := fluid.DefaultGlobalParameters()
	fg.PlaneGravity = r3.Vec{}
	s := NewScene()
	ball := s.AddSphere(r3.Vec{}, 1, 2, r3.Vec{})

	ball.ApplyForce(r3.Vec{X: 4}, r3.Vec{Y: 1})
	ball.ApplyForce(r3.Vec{X: 4}, r3.Vec{Y: 1})
	s.Step(&fg)

	assert.InDelta(t, 8*0.5*fg.TimeStep, ball.Velocity().X, 1e-12)
	// Torque r x F = (0,1,0) x (8,0,0) = (0,0,-8); I = 0.4 m r^2.
	spin := -8 / (0.4 * 2) * fg.TimeStep
	v := ball.VelocityAtPoint(r3.Vec{Y: 1})
	assert.InDelta(t, 8*0.5*fg.TimeStep-spin, v.X, 1e-12)

	// Forces are consumed by the step.
	s.Step(&fg)
	assert.InDelta(t, 8*0.5*fg.TimeStep, ball.Velocity().X, 1e-12)
}

func TestConfinedToBounds(t *testing.T) {
	fg := fluid.DefaultGlobalParameters()
	s := NewScene()
	s.SetBounds(r3.Box{Min: r3.Vec{X: -5, Y: -5, Z: -5}, Max: r3.Vec{X: 5, Y: 5, Z: 5}})
	ball := s.AddSphere(r3.Vec{Y: -3.99}, 1, 1, r3.Vec{Y: -100})

	s.Step(&fg)
	assert.InDelta(t, -4, ball.Origin().Y, 1e-12)
	assert.Equal(t, 0.0, ball.Velocity().Y)
}

func TestRemove(t *testing.T) {
	s := NewScene()
	a := s.AddSphere(r3.Vec{}, 1, 1, r3.Vec{X: 1})
	s.AddPlane(r3.Vec{}, r3.Vec{Y: 1})
	require.Equal(t, 2, s.Len())

	s.Remove(a)
	s.Remove(a)
	assert.Equal(t, 1, s.Len())
	assert.False(t, a.Alive())
	assert.Equal(t, 0.0, a.InverseMass())
	assert.Equal(t, r3.Vec{}, a.VelocityAtPoint(r3.Vec{X: 1}))
	a.ApplyForce(r3.Vec{X: 1}, r3.Vec{})

	states := s.Snapshot()
	require.Len(t, states, 1)
	assert.Equal(t, ShapePlane, states[0].Kind)
	assert.False(t, states[0].Dynamic)
	assert.True(t, math.IsInf(states[0].Bounds.Max.X, 1))
}

func TestReactionForceReachesBody(t *testing.T) {
	fg, f := fluidAt(t, r3.Vec{Y: 1.5})
	s := NewScene()
	ball := s.AddSphere(r3.Vec{}, 1, 1, r3.Vec{})

	r := contact.NewResolver()
	r.ApplyReaction = true
	n := r.Resolve(fg, f, s.Contacts(fg, f, nil))
	require.Equal(t, 1, n)

	fg.PlaneGravity = r3.Vec{}
	s.Step(fg)
	assert.Less(t, ball.Velocity().Y, 0.0, "fluid pushes the ball away")
	assert.Greater(t, f.Particles().ExternalAccel[0].Y, 0.0)
}
