package viz

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/sphsim/internal/config"
)

var presetInfo = map[string]string{
	"drop":     "block falling into an empty tank",
	"dam":      "column collapsing across the tank",
	"sphere":   "dam break striking a floating sphere",
	"fountain": "emitter over a sloped floor and drain",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

var configFields = config.ParamNames()

// Opener turns an edited configuration into a live-model builder.
type Opener func(cfg *config.Config) Builder

// model is the preset picker that hands off to the live Model.
type model struct {
	state, cursor int
	presets       []string
	cfg           *config.Config
	fieldCursor   int
	editing       bool
	editBuf       string
	errMsg        string
	open          Opener
	width, height int
	liveModel     Model
}

func NewInteractiveApp(open Opener) *model {
	return &model{
		state:   stateMenu,
		presets: config.ListPresets(),
		open:    open,
		width:   width,
		height:  height,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.state == stateSim {
			m.liveModel.resize(msg.Width, msg.Height)
		}
		return m, nil
	default:
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.presets) == 0 {
			return m, nil
		}
		m.cfg = config.GetPreset(m.presets[m.cursor])
		m.state, m.fieldCursor, m.errMsg = stateConfig, 0, ""
	}
	return m, nil
}

// param resolves a name from configFields, which are all valid.
func (m model) param(name string) *float64 {
	ref, _ := m.cfg.Param(name)
	return ref
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	field := m.param(configFields[m.fieldCursor])
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				*field = v
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-e") {
				m.editBuf += s
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
	case "down", "j":
		if m.fieldCursor < len(configFields)-1 {
			m.fieldCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, strconv.FormatFloat(*field, 'g', -1, 64)
	case "left", "h":
		*field *= 0.9
	case "right", "l":
		*field *= 1.1
	case "s":
		return m, m.start()
	}
	return m, nil
}

func (m *model) start() tea.Cmd {
	if err := m.cfg.Validate(); err != nil {
		m.errMsg = err.Error()
		return nil
	}
	m.liveModel = NewModel(m.open(m.cfg), m.cfg.Name)
	m.liveModel.resize(m.width, m.height)
	m.state = stateSim
	return m.liveModel.Init()
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

var (
	menuTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuSub    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuCursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuActive = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuDesc   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	menuIdle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

func keyHelp(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(menuKey.Render(pairs[i]) + menuIdle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("SPHSIM") + "\n    " + menuSub.Render("fluid and rigid body simulation") + "\n    " + menuSub.Render("───────────────────────────────") + "\n\n")
	for i, name := range m.presets {
		desc := presetInfo[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", menuCursor.Render("▸"), menuActive.Render(fmt.Sprintf("%-10s", name)), menuDesc.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", menuIdle.Render(fmt.Sprintf("  %-10s", name)), menuIdle.Render(desc)))
		}
	}
	b.WriteString("\n    " + keyHelp("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render(strings.ToUpper(m.cfg.Name)) + "\n    " + menuSub.Render(presetInfo[m.cfg.Name]) + "\n    " + menuSub.Render("───────────────────────────────") + "\n\n")
	for i, name := range configFields {
		valStr := fmt.Sprintf("%10.4g", *m.param(name))
		if m.editing && i == m.fieldCursor {
			valStr = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.fieldCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", menuCursor.Render("▸"), menuActive.Render(fmt.Sprintf("%-18s", name)), menuDesc.Bold(true).Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", menuIdle.Render(fmt.Sprintf("  %-18s", name)), menuIdle.Render(valStr)))
		}
	}
	if m.errMsg != "" {
		b.WriteString("\n    " + lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(m.errMsg) + "\n")
	}
	b.WriteString("\n    " + keyHelp("j/k", "select", "h/l", "adjust", "enter", "edit", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive opens the preset picker in the alternate screen.
func RunInteractive(open Opener) error {
	_, err := tea.NewProgram(NewInteractiveApp(open), tea.WithAltScreen()).Run()
	return err
}

// RunLive runs a single live model in the alternate screen.
func RunLive(build Builder, name string) error {
	return RunModel(NewModel(build, name))
}

func RunModel(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
