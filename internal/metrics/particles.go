package metrics

import (
	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/world"
)

func forEachFluid(w *world.World, fn func(f *fluid.Sph, p *fluid.Particles)) {
	for _, f := range w.Fluids() {
		fn(f, f.Particles())
	}
}
