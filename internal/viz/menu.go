package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Builder creates a live model for the named preset.
type Builder func(name string) (Model, error)

// Menu lets the user pick a preset and then runs it live.
type Menu struct {
	names  []string
	info   map[string]string
	cursor int
	build  Builder
	err    error

	live    Model
	started bool
}

// NewMenu lists names; info holds an optional one-line description per name.
func NewMenu(names []string, info map[string]string, build Builder) Menu {
	return Menu{names: names, info: info, build: build}
}

func (m Menu) Init() tea.Cmd { return nil }

func (m Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.started {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "m" {
			m.started = false
			return m, nil
		}
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.names)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.names) == 0 {
			return m, nil
		}
		live, err := m.build(m.names[m.cursor])
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.live, m.started = live, true
		return m, live.Init()
	}
	return m, nil
}

func (m Menu) View() string {
	if m.started {
		return m.live.View() + "\n" + dimStyle.Render("M:Menu")
	}
	var s strings.Builder
	s.WriteString(headerStyle.Render("CTRLBLOCKS PRESETS") + "\n")
	for i, name := range m.names {
		line := fmt.Sprintf("%-18s %s", name, dimStyle.Render(m.info[name]))
		if i == m.cursor {
			s.WriteString(cursorStyle.Render("> ") + activeParamStyle.Render(line) + "\n")
		} else {
			s.WriteString("  " + valueStyle.Render(line) + "\n")
		}
	}
	if m.err != nil {
		s.WriteString("\n" + statusFailed.Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("↑↓:Select Enter:Run Q:Quit"))
	return s.String()
}
