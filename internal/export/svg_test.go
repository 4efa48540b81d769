package export

import (
	"strings"
	"testing"

	"github.com/san-kum/sphsim/internal/store"
	"github.com/san-kum/sphsim/internal/viz"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(3, 5)

	svg := CanvasToSVG(c, 2)
	if !strings.HasPrefix(svg, "<?xml") {
		t.Error("missing xml header")
	}
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
	if CanvasToSVG(nil, 1) != "" {
		t.Error("nil canvas should produce empty output")
	}
}

func TestFrameSVG(t *testing.T) {
	records := []store.FrameRecord{
		{Step: 0, Particle: 0, X: 0, Y: 0, Z: 0},
		{Step: 10, Particle: 0, X: 1, Y: -1, Z: 0},
		{Step: 10, Particle: 1, X: -1, Y: 1, Z: 0},
	}
	if LastStep(records) != 10 {
		t.Errorf("expected last step 10, got %d", LastStep(records))
	}
	if LastStep(nil) != -1 {
		t.Error("expected -1 for no frames")
	}

	pos := FramePositions(records, 10)
	if len(pos) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(pos))
	}

	bounds := r3.Box{Min: r3.Vec{X: -2, Y: -2, Z: -2}, Max: r3.Vec{X: 2, Y: 2, Z: 2}}
	svg := FrameSVG(pos, bounds, viz.ViewFront, 30, 10, 3)
	if strings.Count(svg, "<circle") < 2 {
		t.Error("expected particles and box edges as dots")
	}
}

func TestSeriesToSVG(t *testing.T) {
	svg := SeriesToSVG([]float64{0, 1, 2}, []float64{3, 1, 2}, 200, 100)
	if !strings.Contains(svg, "<path") || strings.Count(svg, " L") != 2 {
		t.Errorf("unexpected path: %s", svg)
	}
	if SeriesToSVG([]float64{1}, []float64{1}, 10, 10) != "" {
		t.Error("single point should produce empty output")
	}
}
