package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/sphsim/internal/store"
	"github.com/san-kum/sphsim/internal/viz"
	"gonum.org/v1/gonum/spatial/r3"
)

// CanvasToSVG converts a Braille canvas to SVG format, one circle per dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2   // 2 sub-pixels per char
	height := float64(canvas.Height) * scale * 4 // 4 sub-pixels per char
	theme := viz.CurrentTheme

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="%s">
`, width, height, width, height, string(theme.Fluid))

	pw, ph := canvas.PixelSize()
	dotRadius := scale * 0.4
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius)
			}
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// LastStep returns the latest step present in records, or -1.
func LastStep(records []store.FrameRecord) int {
	last := -1
	for _, r := range records {
		last = max(last, r.Step)
	}
	return last
}

// FramePositions collects the particle positions recorded at step.
func FramePositions(records []store.FrameRecord, step int) []r3.Vec {
	var pos []r3.Vec
	for _, r := range records {
		if r.Step == step {
			pos = append(pos, r3.Vec{X: r.X, Y: r.Y, Z: r.Z})
		}
	}
	return pos
}

// FrameSVG projects positions inside bounds onto a width by height cell
// canvas and converts it to SVG.
func FrameSVG(positions []r3.Vec, bounds r3.Box, view viz.View, width, height int, scale float64) string {
	proj := viz.NewProjector(bounds)
	proj.View = view
	r := &viz.Renderer{Canvas: viz.NewCanvas(width, height), Projector: proj}
	r.DrawBox(bounds)
	r.DrawParticles(positions)
	return CanvasToSVG(r.Canvas, scale)
}

// SeriesToSVG draws a metric series as a polyline.
func SeriesToSVG(x, y []float64, width, height int) string {
	n := min(len(x), len(y))
	if n < 2 {
		return ""
	}

	minX, maxX := x[0], x[0]
	minY, maxY := y[0], y[0]
	for i := 0; i < n; i++ {
		minX, maxX = min(minX, x[i]), max(maxX, x[i])
		minY, maxY = min(minY, y[i]), max(maxY, y[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, string(viz.CurrentTheme.Primary))

	for i := 0; i < n; i++ {
		px := (x[i] - minX) / rangeX * float64(width)
		py := float64(height) - (y[i]-minY)/rangeY*float64(height)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", px, py)
	}

	sb.WriteString("\"/>\n</svg>\n")
	return sb.String()
}
