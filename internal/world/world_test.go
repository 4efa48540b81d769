package world_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/sphsim/internal/contact"
	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/rigid"
	"github.com/san-kum/sphsim/internal/solver"
	"github.com/san-kum/sphsim/internal/world"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	volumeMin = r3.Vec{X: -10, Y: -10, Z: -10}
	volumeMax = r3.Vec{X: 10, Y: 10, Z: 10}
)

func newWorld(solverName string) *world.World {
	s, err := solver.New(solverName)
	Expect(err).NotTo(HaveOccurred())
	w, err := world.New(fluid.DefaultGlobalParameters(), s)
	Expect(err).NotTo(HaveOccurred())
	return w
}

func newFluid(w *world.World, maxParticles int) *fluid.Sph {
	fl := fluid.DefaultLocalParameters()
	fl.VolumeMin, fl.VolumeMax = volumeMin, volumeMax
	f, err := w.NewFluid(fl, maxParticles)
	Expect(err).NotTo(HaveOccurred())
	return f
}

// fixedHost reports the same contacts every step.
type fixedHost struct {
	contacts []contact.Contact
	steps    int
}

func (h *fixedHost) Contacts(_ *fluid.GlobalParameters, _ *fluid.Sph, dst []contact.Contact) []contact.Contact {
	return append(dst, h.contacts...)
}

func (h *fixedHost) Step(*fluid.GlobalParameters) { h.steps++ }

type wall struct{}

func (wall) InverseMass() float64          { return 0 }
func (wall) Origin() r3.Vec                { return r3.Vec{} }
func (wall) VelocityAtPoint(r3.Vec) r3.Vec { return r3.Vec{} }

func insideVolume(p r3.Vec) bool {
	const eps = 1e-9
	return p.X >= volumeMin.X-eps && p.X <= volumeMax.X+eps &&
		p.Y >= volumeMin.Y-eps && p.Y <= volumeMax.Y+eps &&
		p.Z >= volumeMin.Z-eps && p.Z <= volumeMax.Z+eps
}

var _ = Describe("World", func() {
	for _, name := range solver.Names() {
		Context("with the "+name+" solver", func() {
			var w *world.World

			BeforeEach(func() {
				w = newWorld(name)
			})

			It("drops a lone particle under gravity", func() {
				f := newFluid(w, 1)
				f.AddParticle(r3.Vec{})

				Expect(w.Step()).To(Succeed())
				fg := w.Global()
				Expect(f.Velocity(0).Y).To(BeNumerically("~", -9.8*fg.TimeStep, 1e-12))
				Expect(f.Position(0).Y).To(BeNumerically("~", -9.8*fg.TimeStep*fg.TimeStep/fg.SimulationScale, 1e-12))
				Expect(w.StepCount()).To(Equal(1))
				Expect(w.Time()).To(BeNumerically("~", fg.TimeStep, 1e-15))
			})

			It("settles a falling particle on the volume floor", func() {
				f := newFluid(w, 1)
				f.AddParticle(r3.Vec{Y: -8})

				Expect(w.StepN(300)).To(Succeed())
				Expect(f.Position(0).Y).To(Equal(volumeMin.Y))
				Expect(f.Velocity(0).Y).To(BeZero())
			})

			It("pushes two close particles apart symmetrically", func() {
				f := newFluid(w, 2)
				fl := f.LocalParameters()
				fl.RestDensity = 300
				Expect(f.SetLocalParameters(fl)).To(Succeed())
				w.Global().PlaneGravity = r3.Vec{}

				sep := 0.5 * w.Global().SmoothRadiusWorld()
				f.AddParticle(r3.Vec{})
				f.AddParticle(r3.Vec{X: sep})

				Expect(w.Step()).To(Succeed())
				v0, v1 := f.Velocity(0), f.Velocity(1)
				Expect(v0.X).To(BeNumerically("<", 0))
				Expect(v1.X).To(BeNumerically(">", 0))
				Expect(v0.X + v1.X).To(BeNumerically("~", 0, 1e-12))
				Expect(f.Position(1).X - f.Position(0).X).To(BeNumerically(">", sep))
			})

			It("applies stiffness times depth for a static penetration", func() {
				f := newFluid(w, 1)
				f.AddParticle(r3.Vec{})
				w.Global().PlaneGravity = r3.Vec{}

				const distance = -0.5
				host := &fixedHost{contacts: []contact.Contact{{
					ParticleIndex: 0,
					Object:        wall{},
					Normal:        r3.Vec{Y: 1},
					Distance:      distance,
				}}}
				w.SetHost(host)

				Expect(w.Step()).To(Succeed())
				fg := w.Global()
				depth := -distance * fg.SimulationScale
				want := f.LocalParameters().BoundaryStiff * depth * fg.TimeStep
				Expect(f.Velocity(0).Y).To(BeNumerically("~", want, 1e-12))
				Expect(w.LastStats().Resolved).To(Equal(1))
				Expect(host.steps).To(Equal(1))
			})

			It("keeps a dam break inside the volume", func() {
				f := newFluid(w, 800)
				spacing := f.EmitterSpacing(w.Global())
				fluid.AddVolume(f, r3.Vec{X: -9, Y: -9, Z: -9}, r3.Vec{X: -2, Y: 2, Z: 2}, spacing)
				Expect(f.NumParticles()).To(BeNumerically(">", 100))

				scene := rigid.NewScene()
				scene.AddPlane(r3.Vec{Y: -9.5}, r3.Vec{Y: 1})
				w.SetHost(scene)
				w.SetValidateState(true)

				Expect(w.StepN(60)).To(Succeed())
				for i := 0; i < f.NumParticles(); i++ {
					Expect(insideVolume(f.Position(i))).To(BeTrue(), "particle %d at %v", i, f.Position(i))
					Expect(f.Pressure(i)).To(BeNumerically(">=", 0))
				}
			})
		})
	}

	Describe("emitters and absorbers", func() {
		It("never exceeds the particle capacity", func() {
			w := newWorld("grid")
			f := newFluid(w, 120)
			w.AddEmitter(f, fluid.Emitter{Position: r3.Vec{Y: 5}, Speed: 1, Pitch: 180, YawSpread: 10, PitchSpread: 10}, 25, 0)

			for i := 0; i < 10; i++ {
				Expect(w.Step()).To(Succeed())
				Expect(f.NumParticles()).To(BeNumerically("<=", f.MaxParticles()))
			}
			Expect(f.NumParticles()).To(Equal(120))
		})

		It("removes particles that enter an absorber on the next step", func() {
			w := newWorld("reduced")
			f := newFluid(w, 10)
			f.AddParticle(r3.Vec{X: 5})
			f.AddParticle(r3.Vec{X: -5})
			w.AddAbsorber(f, fluid.Absorber{Min: r3.Vec{X: 4, Y: -10, Z: -1}, Max: r3.Vec{X: 6, Y: 10, Z: 1}})

			Expect(w.Step()).To(Succeed())
			Expect(w.LastStats().Absorbed).To(Equal(1))
			Expect(w.Step()).To(Succeed())
			Expect(w.LastStats().Removed).To(Equal(1))
			Expect(f.NumParticles()).To(Equal(1))
			Expect(f.Position(0).X).To(Equal(-5.0))
		})

		It("detaches emitters with their fluid", func() {
			w := newWorld("grid")
			f := newFluid(w, 10)
			w.AddEmitter(f, fluid.Emitter{}, 1, 1)
			w.RemoveFluid(f)

			Expect(w.Step()).To(Succeed())
			Expect(w.Fluids()).To(BeEmpty())
			Expect(w.LastStats().Emitted).To(BeZero())
		})
	})

	Describe("reaction forces", func() {
		run := func(reaction bool) r3.Vec {
			w := newWorld("grid")
			w.Global().PlaneGravity = r3.Vec{}
			f := newFluid(w, 1)
			f.AddParticle(r3.Vec{Y: 1.5})

			scene := rigid.NewScene()
			ball := scene.AddSphere(r3.Vec{}, 1, 1, r3.Vec{})
			w.SetHost(scene)
			w.Resolver().ApplyReaction = reaction

			Expect(w.Step()).To(Succeed())
			return ball.Velocity()
		}

		It("leaves bodies untouched when disabled", func() {
			Expect(run(false)).To(Equal(r3.Vec{}))
		})

		It("pushes bodies away from the fluid when enabled", func() {
			Expect(run(true).Y).To(BeNumerically("<", 0))
		})
	})

	Describe("state validation", func() {
		It("reports non-finite particles", func() {
			w := newWorld("grid")
			f := newFluid(w, 2)
			f.AddParticle(r3.Vec{})
			f.AddParticle(r3.Vec{X: 5})
			f.SetVelocity(1, r3.Vec{X: math.NaN()})
			w.SetValidateState(true)

			err := w.Step()
			Expect(err).To(MatchError(dynamo.ErrInvalidState))

			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Particle).To(Equal(1))
			Expect(simErr.Step).To(Equal(1))
		})

		It("stays silent when disabled", func() {
			w := newWorld("grid")
			f := newFluid(w, 1)
			f.AddParticle(r3.Vec{})
			f.SetVelocity(0, r3.Vec{X: math.Inf(1)})
			Expect(w.Step()).To(Succeed())
		})
	})

	Describe("construction", func() {
		It("rejects degenerate global parameters", func() {
			fg := fluid.DefaultGlobalParameters()
			fg.TimeStep = 0
			_, err := world.New(fg, solver.NewGridNeighbor())
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})

		It("rejects a missing solver", func() {
			_, err := world.New(fluid.DefaultGlobalParameters(), nil)
			Expect(err).To(MatchError(dynamo.ErrUnknownSolver))
		})

		It("adds a fluid only once", func() {
			w := newWorld("grid")
			f := newFluid(w, 1)
			w.AddFluid(f)
			Expect(w.Fluids()).To(HaveLen(1))
		})
	})
})
