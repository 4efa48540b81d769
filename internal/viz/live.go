package viz

import (
	"fmt"
	"image"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/sphsim/internal/dynamo"
	"github.com/san-kum/sphsim/internal/fluid"
	"github.com/san-kum/sphsim/internal/metrics"
	"github.com/san-kum/sphsim/internal/rigid"
	"github.com/san-kum/sphsim/internal/world"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	width           = 80
	height          = 24
	statsWidth      = 46
	historyCapacity = 600
	frameInterval   = time.Second / 30
	maxStepsPerTick = 32
)

// Builder creates a fresh world and its rigid scene. It is called on start
// and on every reset.
type Builder func() (*world.World, *rigid.Scene, error)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// tunable is a live-adjustable world parameter.
type tunable struct {
	name string
	get  func(w *world.World) float64
	set  func(w *world.World, v float64) error
}

func localTunable(name string, field func(fl *fluid.LocalParameters) *float64) tunable {
	return tunable{
		name: name,
		get: func(w *world.World) float64 {
			if len(w.Fluids()) == 0 {
				return 0
			}
			fl := w.Fluids()[0].LocalParameters()
			return *field(&fl)
		},
		set: func(w *world.World, v float64) error {
			for _, f := range w.Fluids() {
				fl := f.LocalParameters()
				*field(&fl) = v
				if err := f.SetLocalParameters(fl); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

var tunables = []tunable{
	localTunable("viscosity", func(fl *fluid.LocalParameters) *float64 { return &fl.Viscosity }),
	localTunable("stiffness", func(fl *fluid.LocalParameters) *float64 { return &fl.Stiffness }),
	localTunable("rest dens", func(fl *fluid.LocalParameters) *float64 { return &fl.RestDensity }),
	localTunable("bnd stiff", func(fl *fluid.LocalParameters) *float64 { return &fl.BoundaryStiff }),
	{
		name: "gravity",
		get:  func(w *world.World) float64 { return w.Global().PlaneGravity.Y },
		set: func(w *world.World, v float64) error {
			w.Global().PlaneGravity.Y = v
			return nil
		},
	},
	{
		name: "time step",
		get:  func(w *world.World) float64 { return w.Global().TimeStep },
		set: func(w *world.World, v float64) error {
			if !(v > 0) {
				return dynamo.Boundsf("time step must be positive, got %g", v)
			}
			w.Global().TimeStep = v
			return nil
		},
	},
}

// Model steps a world on a timer and renders it on a braille canvas next to
// a stats panel.
type Model struct {
	build         Builder
	name          string
	world         *world.World
	scene         *rigid.Scene
	err           error
	width, height int
	canvas        *Canvas
	projector     *Projector
	running       bool
	stepsPerTick  int
	selected      int
	kinetic       *metrics.KineticEnergy
	speed         *metrics.MaxSpeed
	density       *metrics.DensityStats
	keHistory     []float64
	speedHistory  []float64
	lastTick      time.Time
	fps           float64
	stepTime      time.Duration
	recording     bool
	frames        []*image.Paletted
	gifPath       string
	status        string
	showHelp      bool
}

// NewModel builds the initial world. A build error is shown in the view.
func NewModel(build Builder, name string) Model {
	m := Model{
		build:        build,
		name:         name,
		width:        width,
		height:       height,
		canvas:       NewCanvas(width, height),
		projector:    NewProjector(r3.Box{}),
		running:      true,
		stepsPerTick: 2,
		kinetic:      metrics.NewKineticEnergy(),
		speed:        metrics.NewMaxSpeed(),
		density:      metrics.NewDensityStats(),
		keHistory:    make([]float64, 0, historyCapacity),
		speedHistory: make([]float64, 0, historyCapacity),
		gifPath:      "sphsim.gif",
	}
	m.reset()
	return m
}

// SetGIFPath sets where a finished recording is written.
func (m *Model) SetGIFPath(path string) { m.gifPath = path }

func (m Model) World() *world.World { return m.world }
func (m Model) Err() error          { return m.err }

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case TickMsg:
		now := time.Time(msg)
		if !m.lastTick.IsZero() {
			if dt := now.Sub(m.lastTick).Seconds(); dt > 0 {
				m.fps = 0.9*m.fps + 0.1/dt
			}
		}
		m.lastTick = now
		if m.running {
			m.advance(m.stepsPerTick)
		}
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.running = !m.running
	case ".":
		if !m.running {
			m.advance(1)
		}
	case "r":
		m.reset()
	case "v":
		m.projector.View = m.projector.View.Next()
	case "x":
		m.projector.RotatePitch(0.1)
	case "X":
		m.projector.RotatePitch(-0.1)
	case "y":
		m.projector.RotateYaw(0.1)
	case "Y":
		m.projector.RotateYaw(-0.1)
	case "+", "=":
		m.projector.ZoomIn()
	case "-", "_":
		m.projector.ZoomOut()
	case "s":
		m.stepsPerTick = min(m.stepsPerTick*2, maxStepsPerTick)
	case "S":
		m.stepsPerTick = max(m.stepsPerTick/2, 1)
	case "tab":
		m.selected = (m.selected + 1) % len(tunables)
	case "up", "k":
		m.adjust(1.05)
	case "down", "j":
		m.adjust(0.95)
	case "g":
		m.toggleRecording()
	case "t":
		NextTheme()
	case "?":
		m.showHelp = !m.showHelp
	}
	m.draw()
	return m, nil
}

func (m *Model) resize(w, h int) {
	cw := max(w-statsWidth-4, 20)
	ch := max(h-2, 10)
	m.width, m.height = cw, ch
	m.canvas = NewCanvas(cw, ch)
	m.draw()
}

// reset rebuilds the world and clears history. The view settings survive.
func (m *Model) reset() {
	m.keHistory = m.keHistory[:0]
	m.speedHistory = m.speedHistory[:0]
	m.kinetic.Reset()
	m.speed.Reset()
	m.density.Reset()

	w, scene, err := m.build()
	m.world, m.scene, m.err = w, scene, err
	if err != nil {
		m.running = false
		return
	}

	bounds := r3.Box{}
	if fs := w.Fluids(); len(fs) > 0 {
		fl := fs[0].LocalParameters()
		bounds = r3.Box{Min: fl.VolumeMin, Max: fl.VolumeMax}
	}
	m.projector.Bounds = bounds
	m.observe()
	m.draw()
}

func (m *Model) advance(steps int) {
	if m.world == nil || m.err != nil {
		return
	}
	start := time.Now()
	for i := 0; i < steps; i++ {
		if err := m.world.Step(); err != nil {
			m.err = err
			m.running = false
			break
		}
	}
	m.stepTime = time.Since(start) / time.Duration(max(steps, 1))
	m.observe()
}

func (m *Model) observe() {
	m.kinetic.Observe(m.world)
	m.speed.Observe(m.world)
	m.density.Observe(m.world)
	m.keHistory = appendCapped(m.keHistory, m.kinetic.Value())
	m.speedHistory = appendCapped(m.speedHistory, m.speed.Value())
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m *Model) adjust(factor float64) {
	if m.world == nil {
		return
	}
	t := tunables[m.selected]
	if err := t.set(m.world, t.get(m.world)*factor); err != nil {
		m.status = fmt.Sprintf("%s: %v", t.name, err)
	}
}

// draw renders the volume, bodies and particles to the canvas.
func (m *Model) draw() {
	m.canvas.Clear()
	if m.world == nil {
		return
	}
	r := &Renderer{Canvas: m.canvas, Projector: m.projector}
	r.DrawBox(m.projector.Bounds)
	if m.scene != nil {
		for _, b := range m.scene.Snapshot() {
			r.DrawBody(b)
		}
	}
	for _, f := range m.world.Fluids() {
		r.DrawParticles(f.Particles().Pos)
	}
}

func (m Model) View() string {
	canvasView := canvasStyle().Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(GradientText(strings.ToUpper(m.name), CurrentTheme.Primary, CurrentTheme.Accent) + "\n")
	s.WriteString(m.statusLine() + "\n")
	if m.status != "" {
		s.WriteString(Subtle.Render(m.status) + "\n")
	}
	s.WriteString("\n")

	if m.world != nil {
		w := m.world
		stats := w.LastStats()
		s.WriteString(statLine("Step", "%d", w.StepCount()))
		s.WriteString(statLine("Time", "%.3fs", w.Time()))
		s.WriteString(statLine("Particles", "%d", w.NumParticles()))
		if fs := w.Fluids(); len(fs) > 0 && fs[0].MaxParticles() > 0 {
			frac := float64(fs[0].NumParticles()) / float64(fs[0].MaxParticles())
			s.WriteString(MetricLabel.Render("Capacity") + ProgressBar(frac, 20) + "\n")
		}
		s.WriteString(statLine("Contacts", "%d/%d", stats.Resolved, stats.Contacts))
		s.WriteString(statLine("Density", "%.1f ± %.1f", m.density.Value(), m.density.StdDev()))
		s.WriteString(statLine("Max speed", "%.3f m/s", m.speed.Value()))
		s.WriteString(statLine("Step cost", "%s", m.stepTime.Round(time.Microsecond)))
		s.WriteString(statLine("FPS", "%.0f  x%d", m.fps, m.stepsPerTick))
		s.WriteString(statLine("View", "%s", m.projector.View))
		s.WriteString(MetricLabel.Render("Speed") + SparklineChart(m.speedHistory, 30) + "\n")

		if len(m.keHistory) > 1 {
			chart := asciigraph.Plot(m.keHistory, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("kinetic energy"))
			s.WriteString("\n" + graphStyle().Render(chart) + "\n")
		}

		s.WriteString("\n" + Separator(statsWidth-4) + "\n")
		for i, t := range tunables {
			line := fmt.Sprintf("%-10s %10.4g", t.name, t.get(w))
			if i == m.selected {
				s.WriteString(selectedStyle().Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + Subtle.Render(line) + "\n")
			}
		}
	}
	if m.err != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(CurrentTheme.Error).Width(statsWidth-4).Render(m.err.Error()) + "\n")
	}
	s.WriteString("\n" + KeyHint.Render("SP:pause .:step R:reset Q:quit\nV:view X/Y:rotate +/-:zoom\nTAB:param ↑↓:tune S:speed ?:help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, panelStyle().Width(statsWidth).Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

func (m Model) statusLine() string {
	switch {
	case m.err != nil:
		return lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Error).Render("STOPPED")
	case m.recording:
		return StatusRecording.Render(fmt.Sprintf("● REC %d", len(m.frames)))
	case !m.running:
		return StatusPaused.Render("PAUSED")
	}
	return StatusRunning.Render("RUNNING")
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  .        - Single step when paused  ║
║  R        - Rebuild the scene        ║
║  Q        - Quit                     ║
║  V        - Cycle projection view    ║
║  x/X y/Y  - Rotate orbit view        ║
║  + / -    - Zoom                     ║
║  s / S    - More/fewer steps a frame ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`
