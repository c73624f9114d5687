package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ctrlblocks/internal/control"
	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/sim"
)

const (
	historyCapacity = 300
	graphWidth      = 60
	graphHeight     = 10
)

// TunableParams are the PID parameters adjustable from the keyboard.
var TunableParams = []string{"Kp", "Ki", "Kd", "Kb", "Kt"}

type TickMsg time.Time

// Model runs a loop live and lets the user retune its PID while it runs.
type Model struct {
	name         string
	loop         *sim.Loop
	pid          *control.PID
	ts           float64
	stepsPerTick int

	last    dynamo.Sample
	r, y, u []float64

	running   bool
	err       error
	params    map[string]float64
	paramKeys []string
	selected  int
	width     int
}

// NewModel resets loop and prepares it for stepping. pid may be nil, in
// which case nothing can be tuned.
func NewModel(name string, loop *sim.Loop, pid *control.PID, ts float64, stepsPerTick int) (Model, error) {
	if err := loop.Reset(); err != nil {
		return Model{}, err
	}
	if stepsPerTick < 1 {
		stepsPerTick = 1
	}
	m := Model{
		name:         name,
		loop:         loop,
		pid:          pid,
		ts:           ts,
		stepsPerTick: stepsPerTick,
		r:            make([]float64, 0, historyCapacity),
		y:            make([]float64, 0, historyCapacity),
		u:            make([]float64, 0, historyCapacity),
		running:      true,
		params:       make(map[string]float64),
		width:        graphWidth,
	}
	if pid != nil {
		all := pid.GetParams()
		for _, k := range TunableParams {
			m.params[k] = all[k]
		}
		m.paramKeys = TunableParams
	}
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			if m.err == nil {
				m.running = !m.running
			}
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		}
	case tea.WindowSizeMsg:
		m.width = min(max(msg.Width-40, 20), 120)
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

// adjustParam scales the selected parameter. A zero parameter is nudged by
// 0.01 instead.
func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key]
	next := val * factor
	if val == 0 {
		next = math.Copysign(0.01, factor-1)
	}
	if err := m.pid.SetParam(key, next); err != nil {
		m.err = err
		return
	}
	m.params[key] = next
}

func (m *Model) step() {
	for i := 0; i < m.stepsPerTick; i++ {
		s, err := m.loop.Step(m.ts)
		if err != nil {
			m.err = err
			m.running = false
			return
		}
		m.last = s
		m.r = push(m.r, s.Reference)
		m.y = push(m.y, s.Output)
		m.u = push(m.u, s.Control)
	}
}

func push(h []float64, v float64) []float64 {
	if len(h) == historyCapacity {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}

func (m *Model) reset() {
	if err := m.loop.Reset(); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.last = dynamo.Sample{}
	m.r, m.y, m.u = m.r[:0], m.y[:0], m.u[:0]
	m.running = true
}

func (m Model) View() string {
	var graphs strings.Builder
	graphs.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")
	if len(m.y) > 1 {
		chart := asciigraph.PlotMany([][]float64{m.r, m.y},
			asciigraph.Height(graphHeight), asciigraph.Width(m.width),
			asciigraph.SeriesColors(asciigraph.Gray, asciigraph.Green),
			asciigraph.Caption("reference r / output y"))
		graphs.WriteString(graphStyle.Render(chart) + "\n\n")
		chart = asciigraph.Plot(m.u,
			asciigraph.Height(graphHeight/2), asciigraph.Width(m.width),
			asciigraph.Caption("actuator u"))
		graphs.WriteString(graphStyle.Render(chart) + "\n")
	} else {
		graphs.WriteString(dimStyle.Render("waiting for samples...") + "\n")
	}

	var s strings.Builder
	switch {
	case m.err != nil:
		s.WriteString(statusFailed.Render("STOPPED") + "\n" + dimStyle.Render(m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}
	row := func(label, format string, v any) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(fmt.Sprintf(format, v)) + "\n")
	}
	row("t", "%.2fs", m.last.T)
	row("r", "%.4f", m.last.Reference)
	row("y", "%.4f", m.last.Output)
	row("e", "%.4f", m.last.Error)
	row("u", "%.4f", m.last.Control)
	if m.last.Saturated {
		s.WriteString(statusPaused.Render("saturated") + "\n")
	}

	if m.pid != nil {
		t := m.pid.Terms()
		s.WriteString("\nTERMS\n")
		row("P", "%+.4f", t.FromP)
		row("I", "%+.4f", t.FromI)
		row("D", "%+.4f", t.FromD)
		row("TR", "%+.4f", t.FromTR)
		row("AW", "%+.4f", t.FromAW)
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-4s %.4f", k, m.params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + valueStyle.Render(line) + "\n")
		}
	}
	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit\nTab:Param ↑↓:Tune ±5%"))

	return lipgloss.JoinHorizontal(lipgloss.Top, graphs.String(), panelStyle.Render(s.String()))
}
