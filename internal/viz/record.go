package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"

	"github.com/charmbracelet/lipgloss"
)

const (
	dotW, dotH = 4, 4 // pixels per braille dot
	gifDelay   = 3    // hundredths of a second
)

func (m *Model) toggleRecording() {
	if !m.recording {
		m.recording = true
		m.frames = m.frames[:0]
		return
	}
	m.recording = false
	if err := m.saveGIF(); err != nil {
		m.status = err.Error()
	} else if len(m.frames) > 0 {
		m.status = fmt.Sprintf("saved %d frames to %s", len(m.frames), m.gifPath)
	}
	m.frames = nil
}

// captureFrame rasterizes the canvas, one square block per lit dot.
func (m *Model) captureFrame() {
	m.frames = append(m.frames, rasterize(m.canvas, themeColor(CurrentTheme.Fluid)))
}

func rasterize(c *Canvas, fg color.Color) *image.Paletted {
	pw, ph := c.PixelSize()
	img := image.NewPaletted(image.Rect(0, 0, pw*dotW, ph*dotH), color.Palette{color.Black, fg})
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !c.IsSet(x, y) {
				continue
			}
			for py := 0; py < dotH; py++ {
				for px := 0; px < dotW; px++ {
					img.SetColorIndex(x*dotW+px, y*dotH+py, 1)
				}
			}
		}
	}
	return img
}

func themeColor(c lipgloss.Color) color.Color {
	r, g, b := parseHex(string(c))
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}
}

func (m *Model) saveGIF() error {
	if len(m.frames) == 0 {
		return nil
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, gifDelay)
	}
	f, err := os.Create(m.gifPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &anim)
}
