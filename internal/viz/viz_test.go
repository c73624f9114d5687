package viz

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/ctrlblocks/internal/control"
	"github.com/san-kum/ctrlblocks/internal/lti"
	"github.com/san-kum/ctrlblocks/internal/plant"
	"github.com/san-kum/ctrlblocks/internal/sim"
)

func newLive(t *testing.T) (Model, *control.PID) {
	t.Helper()
	pid, err := control.NewPID(3, 0.5, 0, 1, lti.ForwardEuler, 0.01, lti.ForwardEuler)
	if err != nil {
		t.Fatal(err)
	}
	model, err := lti.NewPT1(2, 20, 1, lti.ForwardEuler, 0)
	if err != nil {
		t.Fatal(err)
	}
	p, err := plant.NewDiscrete(model)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewModel("pt1", sim.NewLoop(pid, p, sim.Constant(1)), pid, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	return m, pid
}

func send(m tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelSteps(t *testing.T) {
	m, _ := newLive(t)
	tick := TickMsg(time.Now())

	got := send(m, tick, tick, tick).(Model)
	if len(got.y) != 6 {
		t.Fatalf("history = %d samples, want 6", len(got.y))
	}
	if got.last.T != 5 {
		t.Errorf("t = %g, want 5", got.last.T)
	}
	if !strings.Contains(got.View(), "Kp") {
		t.Error("view should list the tunable gains")
	}
}

func TestModelPauseAndReset(t *testing.T) {
	m, _ := newLive(t)
	tick := TickMsg(time.Now())

	got := send(m, tick, key(" "), tick, tick).(Model)
	if got.running {
		t.Fatal("space should pause")
	}
	if len(got.y) != 2 {
		t.Errorf("paused model stepped: %d samples", len(got.y))
	}

	got = send(got, key("r"), tick).(Model)
	if !got.running || got.last.T != 1 || len(got.y) != 2 {
		t.Errorf("after reset: running=%v t=%g samples=%d", got.running, got.last.T, len(got.y))
	}
}

func TestModelTunesPID(t *testing.T) {
	m, pid := newLive(t)

	send(m, key("up"))
	if kp, _, _ := pid.Gains(); math.Abs(kp-3.15) > 1e-12 {
		t.Errorf("Kp = %g, want 3.15", kp)
	}

	// Kd starts at zero and is nudged
	got := send(m, key("tab"), key("tab"), key("up")).(Model)
	if got.paramKeys[got.selected] != "Kd" {
		t.Fatalf("selected %s, want Kd", got.paramKeys[got.selected])
	}
	if _, _, kd := pid.Gains(); kd != 0.01 {
		t.Errorf("Kd = %g, want 0.01", kd)
	}
	send(got, key("down"), key("down"))
	if _, _, kd := pid.Gains(); kd >= 0.01 {
		t.Errorf("Kd = %g, want below 0.01", kd)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	h := make([]float64, 0, historyCapacity)
	for i := 0; i < historyCapacity+10; i++ {
		h = push(h, float64(i))
	}
	if len(h) != historyCapacity {
		t.Fatalf("len = %d", len(h))
	}
	if h[0] != 10 || h[len(h)-1] != historyCapacity+9 {
		t.Errorf("window = [%g .. %g]", h[0], h[len(h)-1])
	}
}

func TestMenu(t *testing.T) {
	live, _ := newLive(t)
	var built string
	menu := NewMenu([]string{"a", "b"}, map[string]string{"a": "first"}, func(name string) (Model, error) {
		if name == "b" {
			return Model{}, errors.New("no such loop")
		}
		built = name
		return live, nil
	})

	if !strings.Contains(menu.View(), "first") {
		t.Error("menu should show descriptions")
	}

	got := send(menu, key("down"), key("enter")).(Menu)
	if got.started || got.err == nil {
		t.Fatal("failing build should keep the menu open with an error")
	}

	got = send(got, key("up"), key("enter"), TickMsg(time.Now())).(Menu)
	if !got.started || built != "a" {
		t.Fatalf("started=%v built=%q", got.started, built)
	}
	if len(got.live.y) != 2 {
		t.Errorf("live model did not receive the tick")
	}

	got = send(got, key("m")).(Menu)
	if got.started {
		t.Error("m should return to the menu")
	}
}
