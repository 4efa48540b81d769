package analysis

import (
	"github.com/san-kum/sphsim/internal/viz"
)

// PhasePortrait2D pairs two metric series sample by sample.
type PhasePortrait2D struct {
	XName, YName string
	Points       []struct{ X, Y float64 }
}

// NewPhasePortrait pairs xs and ys up to the shorter length.
func NewPhasePortrait(xName string, xs []float64, yName string, ys []float64) *PhasePortrait2D {
	n := min(len(xs), len(ys))
	portrait := &PhasePortrait2D{
		XName:  xName,
		YName:  yName,
		Points: make([]struct{ X, Y float64 }, n),
	}
	for i := 0; i < n; i++ {
		portrait.Points[i].X = xs[i]
		portrait.Points[i].Y = ys[i]
	}
	return portrait
}

// Render draws the trajectory as connected Braille dots on a width by
// height cell canvas.
func (p *PhasePortrait2D) Render(width, height int) string {
	if p == nil || len(p.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	minY -= rangeY * 0.05
	rangeX *= 1.1
	rangeY *= 1.1

	canvas := viz.NewCanvas(width, height)
	pw, ph := canvas.PixelSize()
	pixel := func(x, y float64) (int, int) {
		return int((x - minX) / rangeX * float64(pw-1)), ph - 1 - int((y-minY)/rangeY*float64(ph-1))
	}

	px, py := pixel(p.Points[0].X, p.Points[0].Y)
	canvas.Set(px, py)
	for _, pt := range p.Points[1:] {
		x, y := pixel(pt.X, pt.Y)
		canvas.DrawLine(px, py, x, y)
		px, py = x, y
	}
	return canvas.String()
}
