package fluid

import (
	"math"

	"github.com/san-kum/sphsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// GlobalParameters are shared by every fluid in a world. They are passed
// explicitly to every pass that needs them.
type GlobalParameters struct {
	PlaneGravity         r3.Vec  // simulation scale; m/s^2
	PointGravityPosition r3.Vec  // world scale
	PointGravity         float64 // simulation scale; m/s^2; disabled when <= 0

	TimeStep        float64 // seconds
	SimulationScale float64 // world * SimulationScale = simulation
	ParticleRadius  float64 // simulation scale; meters
	SpeedLimit      float64 // simulation scale; m/s

	smoothRadius float64
	r2           float64
	poly6Kern    float64
	spikyKern    float64
	lapKern      float64
}

// DefaultGlobalParameters returns parameters that are stable for water-like
// fluids at time steps up to roughly 0.004s.
func DefaultGlobalParameters() GlobalParameters {
	fg := GlobalParameters{
		PlaneGravity:    r3.Vec{X: 0, Y: -9.8, Z: 0},
		TimeStep:        0.003,
		SimulationScale: 0.004,
		ParticleRadius:  0.004,
		SpeedLimit:      200.0,
	}
	fg.setSmoothRadius(0.01)
	return fg
}

// SetSmoothRadius sets the SPH interaction radius (simulation scale) and
// recomputes the kernel coefficients.
func (fg *GlobalParameters) SetSmoothRadius(h float64) error {
	if !(h > 0) || math.IsInf(h, 0) {
		return dynamo.Boundsf("smoothing radius must be positive and finite, got %g", h)
	}
	fg.setSmoothRadius(h)
	return nil
}

func (fg *GlobalParameters) setSmoothRadius(h float64) {
	fg.smoothRadius = h
	fg.r2 = h * h
	fg.poly6Kern = 315.0 / (64.0 * math.Pi * math.Pow(h, 9))
	fg.spikyKern = -45.0 / (math.Pi * math.Pow(h, 6))
	fg.lapKern = 45.0 / (math.Pi * math.Pow(h, 6))
}

// SmoothRadius returns h at simulation scale.
func (fg *GlobalParameters) SmoothRadius() float64 { return fg.smoothRadius }

// R2 returns h^2.
func (fg *GlobalParameters) R2() float64 { return fg.r2 }

// Poly6Kern is the poly6 density kernel coefficient, 315 / (64 pi h^9).
func (fg *GlobalParameters) Poly6Kern() float64 { return fg.poly6Kern }

// SpikyKern is the spiky gradient coefficient, -45 / (pi h^6).
func (fg *GlobalParameters) SpikyKern() float64 { return fg.spikyKern }

// LapKern is the viscosity Laplacian coefficient, 45 / (pi h^6).
func (fg *GlobalParameters) LapKern() float64 { return fg.lapKern }

// SmoothRadiusWorld returns h converted to world scale.
func (fg *GlobalParameters) SmoothRadiusWorld() float64 {
	return fg.smoothRadius / fg.SimulationScale
}

// Validate rejects configurations that would divide by zero during a step.
func (fg *GlobalParameters) Validate() error {
	if !(fg.smoothRadius > 0) {
		return dynamo.Boundsf("smoothing radius must be positive, got %g", fg.smoothRadius)
	}
	if !(fg.TimeStep > 0) {
		return dynamo.Boundsf("time step must be positive, got %g", fg.TimeStep)
	}
	if !(fg.SimulationScale > 0) {
		return dynamo.Boundsf("simulation scale must be positive, got %g", fg.SimulationScale)
	}
	if fg.ParticleRadius < 0 {
		return dynamo.Boundsf("particle radius must not be negative, got %g", fg.ParticleRadius)
	}
	if !(fg.SpeedLimit > 0) {
		return dynamo.Boundsf("speed limit must be positive, got %g", fg.SpeedLimit)
	}
	if !dynamo.VecIsFinite(fg.PlaneGravity) || !dynamo.VecIsFinite(fg.PointGravityPosition) {
		return dynamo.Boundsf("gravity must be finite")
	}
	return nil
}

// LocalParameters describe a single fluid body.
type LocalParameters struct {
	VolumeMin r3.Vec // world scale; particles cannot move below this boundary
	VolumeMax r3.Vec // world scale; particles cannot move above this boundary

	Viscosity        float64 // Pa*s
	RestDensity      float64 // kg/m^3
	ParticleMass     float64 // kg
	Stiffness        float64 // interior gas stiffness
	BoundaryStiff    float64 // penalty spring coefficient
	BoundaryDamp     float64 // penalty damping coefficient
	BoundaryFriction float64 // fraction of tangential velocity removed per step; 0 disables
}

// DefaultLocalParameters returns water-like material constants with an
// empty volume.
func DefaultLocalParameters() LocalParameters {
	return LocalParameters{
		Viscosity:     0.2,
		RestDensity:   600.0,
		ParticleMass:  0.00020543,
		Stiffness:     0.5,
		BoundaryStiff: 20000.0,
		BoundaryDamp:  256.0,
	}
}

// ParticleDist is the rest spacing between particles at simulation scale,
// (mass / restDensity)^(1/3).
func (fl *LocalParameters) ParticleDist() float64 {
	return math.Cbrt(fl.ParticleMass / fl.RestDensity)
}

// Validate rejects degenerate material constants and volumes.
func (fl *LocalParameters) Validate() error {
	if !(fl.RestDensity > 0) {
		return dynamo.Boundsf("rest density must be positive, got %g", fl.RestDensity)
	}
	if !(fl.ParticleMass > 0) {
		return dynamo.Boundsf("particle mass must be positive, got %g", fl.ParticleMass)
	}
	if fl.Viscosity < 0 || fl.Stiffness < 0 || fl.BoundaryStiff < 0 || fl.BoundaryDamp < 0 {
		return dynamo.Boundsf("viscosity, stiffness and damping must not be negative")
	}
	if fl.BoundaryFriction < 0 || fl.BoundaryFriction > 1 {
		return dynamo.Boundsf("boundary friction must be in [0, 1], got %g", fl.BoundaryFriction)
	}
	if !dynamo.VecIsFinite(fl.VolumeMin) || !dynamo.VecIsFinite(fl.VolumeMax) {
		return dynamo.Boundsf("volume bounds must be finite")
	}
	if fl.VolumeMax.X <= fl.VolumeMin.X || fl.VolumeMax.Y <= fl.VolumeMin.Y || fl.VolumeMax.Z <= fl.VolumeMin.Z {
		return dynamo.Boundsf("volume is empty: min %v max %v", fl.VolumeMin, fl.VolumeMax)
	}
	return nil
}
