package viz

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/rigid"
	"github.com/san-kum/sphsim/internal/solver"
	"github.com/san-kum/sphsim/internal/world"
	"gonum.org/v1/gonum/spatial/r3"
)

func testBuilder(t *testing.T) Builder {
	return func() (*world.World, *rigid.Scene, error) {
		s, err := solver.New("grid")
		if err != nil {
			return nil, nil, err
		}
		w, err := world.New(fluid.DefaultGlobalParameters(), s)
		if err != nil {
			return nil, nil, err
		}
		fl := fluid.DefaultLocalParameters()
		fl.VolumeMin = r3.Vec{X: -5, Y: -5, Z: -5}
		fl.VolumeMax = r3.Vec{X: 5, Y: 5, Z: 5}
		f, err := w.NewFluid(fl, 64)
		if err != nil {
			return nil, nil, err
		}
		fluid.AddVolume(f, r3.Vec{X: -2, Y: -2, Z: -2}, r3.Vec{X: 2, Y: 2, Z: 2}, 1.75)

		scene := rigid.NewScene()
		scene.AddSphere(r3.Vec{X: 3, Y: 3}, 1, 0, r3.Vec{})
		w.SetHost(scene)
		return w, scene, nil
	}
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestCanvasSetUnset(t *testing.T) {
	c := NewCanvas(4, 2)
	if w, h := c.PixelSize(); w != 8 || h != 8 {
		t.Fatalf("expected 8x8 dots, got %dx%d", w, h)
	}

	c.Set(0, 0)
	c.Set(7, 7)
	c.Set(-1, 3)
	c.Set(8, 0)
	if !c.IsSet(0, 0) || !c.IsSet(7, 7) {
		t.Error("expected dots to be set")
	}
	if c.Count() != 2 {
		t.Errorf("expected 2 dots, got %d", c.Count())
	}
	if c.Grid[0][0] != 0x2801 {
		t.Errorf("expected dot 1 in first cell, got %U", c.Grid[0][0])
	}

	c.Unset(0, 0)
	if c.IsSet(0, 0) || c.Grid[0][0] != brailleBase {
		t.Error("expected dot to be cleared")
	}

	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	if len(lines) != 2 || utf8.RuneCountInString(lines[0]) != 4 {
		t.Errorf("unexpected canvas layout %q", c.String())
	}

	c.Clear()
	if c.Count() != 0 {
		t.Error("clear should remove every dot")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 19, 19)
	if !c.IsSet(0, 0) || !c.IsSet(19, 19) || !c.IsSet(10, 10) {
		t.Error("diagonal should light both ends and the middle")
	}

	c.Clear()
	c.DrawLine(-1000000, 5, 1000000, 5)
	if c.Count() != 20 {
		t.Errorf("expected a full row of 20 dots, got %d", c.Count())
	}
}

func TestCanvasFillRect(t *testing.T) {
	c := NewCanvas(10, 5)
	c.FillRect(3, 3, 1, 1)
	if c.Count() != 9 {
		t.Errorf("expected 9 dots, got %d", c.Count())
	}
}

func TestParseView(t *testing.T) {
	for v := ViewFront; v < numViews; v++ {
		got, err := ParseView(v.String())
		if err != nil || got != v {
			t.Errorf("ParseView(%q) = %v, %v", v.String(), got, err)
		}
	}
	if _, err := ParseView("isometric"); err == nil {
		t.Error("expected error for unknown view")
	}
}

func TestProjectorViews(t *testing.T) {
	p := NewProjector(r3.Box{Min: r3.Vec{X: -5, Y: -5, Z: -5}, Max: r3.Vec{X: 5, Y: 5, Z: 5}})

	for v := ViewFront; v < numViews; v++ {
		p.View = v
		x, y, _, ok := p.Project(r3.Vec{}, 160, 96)
		if !ok || x != 80 || y != 48 {
			t.Errorf("%s: center projected to (%d, %d)", v, x, y)
		}
		for _, c := range boxCorners(p.Bounds) {
			if _, _, _, ok := p.Project(c, 160, 96); !ok {
				t.Errorf("%s: corner %v off canvas", v, c)
			}
		}
	}

	p.View = ViewFront
	xr, _, _, _ := p.Project(r3.Vec{X: 4}, 160, 96)
	_, yu, _, _ := p.Project(r3.Vec{Y: 4}, 160, 96)
	if xr <= 80 || yu >= 48 {
		t.Errorf("front view should map +X right and +Y up, got x=%d y=%d", xr, yu)
	}

	if ViewOrbit.Next() != ViewFront {
		t.Error("views should wrap around")
	}
}

func TestRendererParticles(t *testing.T) {
	c := NewCanvas(40, 20)
	r := &Renderer{Canvas: c, Projector: NewProjector(r3.Box{Min: r3.Vec{X: -1, Y: -1, Z: -1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}})}

	n := r.DrawParticles([]r3.Vec{{}, {X: 0.5}, {X: 100}})
	if n != 2 {
		t.Errorf("expected 2 visible particles, got %d", n)
	}

	c.Clear()
	r.DrawBox(r.Projector.Bounds)
	if c.Count() == 0 {
		t.Error("box outline should light dots")
	}
}

func TestModelTicksAndPauses(t *testing.T) {
	m := NewModel(testBuilder(t), "test")
	if m.Err() != nil {
		t.Fatal(m.Err())
	}
	if m.World().NumParticles() == 0 {
		t.Fatal("expected particles")
	}

	m = update(m, TickMsg(time.Now()))
	if got := m.World().StepCount(); got != 2 {
		t.Errorf("expected 2 steps after one tick, got %d", got)
	}
	if m.canvas.Count() == 0 {
		t.Error("expected the canvas to be drawn")
	}

	m = update(m, key(" "))
	m = update(m, TickMsg(time.Now()))
	if got := m.World().StepCount(); got != 2 {
		t.Errorf("paused model should not step, got %d", got)
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view should show the paused status")
	}

	m = update(m, key("."))
	if got := m.World().StepCount(); got != 3 {
		t.Errorf("single step should advance once, got %d", got)
	}

	m = update(m, key("r"))
	if got := m.World().StepCount(); got != 0 {
		t.Errorf("reset should rebuild the world, got step %d", got)
	}
}

func TestModelTuning(t *testing.T) {
	m := NewModel(testBuilder(t), "test")
	before := m.World().Fluids()[0].LocalParameters().Viscosity

	m = update(m, key("k"))
	after := m.World().Fluids()[0].LocalParameters().Viscosity
	if diff := after - before*1.05; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("expected viscosity %g, got %g", before*1.05, after)
	}

	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.selected != 1 {
		t.Errorf("tab should select the next parameter, got %d", m.selected)
	}

	view := m.projector.View
	m = update(m, key("v"))
	if m.projector.View != view.Next() {
		t.Error("v should cycle the view")
	}
}

func TestModelTuningRejectsInvalidValue(t *testing.T) {
	m := NewModel(testBuilder(t), "test")
	before := m.World().Fluids()[0].LocalParameters().Viscosity

	m.adjust(-1)
	if got := m.World().Fluids()[0].LocalParameters().Viscosity; got != before {
		t.Errorf("negative viscosity should be rejected, got %g", got)
	}
	if !strings.Contains(m.status, "viscosity") {
		t.Errorf("expected status to report the rejected value, got %q", m.status)
	}

	m.selected = len(tunables) - 1
	dt := m.World().Global().TimeStep
	m.adjust(0)
	if m.World().Global().TimeStep != dt {
		t.Errorf("zero time step should be rejected, got %g", m.World().Global().TimeStep)
	}
	if !strings.Contains(m.status, "time step") {
		t.Errorf("expected time step error in status, got %q", m.status)
	}
}

func TestModelBuildError(t *testing.T) {
	m := NewModel(func() (*world.World, *rigid.Scene, error) {
		return nil, nil, errors.New("no scene")
	}, "broken")

	if m.Err() == nil {
		t.Fatal("expected build error")
	}
	m = update(m, TickMsg(time.Now()))
	if !strings.Contains(m.View(), "no scene") {
		t.Error("view should show the build error")
	}
}

func TestStyleHelpers(t *testing.T) {
	r, g, b := parseHex("#10a0ff")
	if r != 0x10 || g != 0xa0 || b != 0xff {
		t.Errorf("unexpected rgb %d %d %d", r, g, b)
	}
	if hexColor(r, g, b) != "#10a0ff" {
		t.Errorf("unexpected hex %s", hexColor(r, g, b))
	}
	if r, _, _ := parseHex("bad"); r != 255 {
		t.Error("invalid colors should fall back to white")
	}

	if GradientText("", "#000000", "#ffffff") != "" {
		t.Error("empty text should stay empty")
	}
	if Separator(2) == "" {
		t.Error("separator should render at small widths")
	}
}

func TestThemes(t *testing.T) {
	defer SetTheme(CurrentTheme.Name)

	SetTheme("retro")
	if CurrentTheme.Name != "retro" {
		t.Fatalf("expected retro, got %s", CurrentTheme.Name)
	}
	NextTheme()
	if CurrentTheme.Name != "minimal" {
		t.Errorf("expected minimal after retro, got %s", CurrentTheme.Name)
	}
	if GetTheme("missing").Name != ThemeOcean.Name {
		t.Error("unknown themes should fall back to the default")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("theme names should list every theme")
	}
}

func TestRasterize(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(1, 2)
	img := rasterize(c, themeColor(ThemeOcean.Fluid))
	if img.Bounds().Dx() != 4*dotW || img.Bounds().Dy() != 4*dotH {
		t.Fatalf("unexpected image size %v", img.Bounds())
	}
	if img.ColorIndexAt(1*dotW, 2*dotH) != 1 || img.ColorIndexAt(0, 0) != 0 {
		t.Error("lit dot should map to the foreground block")
	}
}
