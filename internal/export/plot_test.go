package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/sim"
)

func ramp() *sim.Trace {
	tr := &sim.Trace{Config: sim.Config{Ts: 0.1, Duration: 2}}
	for i := 0; i < 20; i++ {
		t := 0.1 * float64(i)
		tr.Samples = append(tr.Samples, dynamo.Sample{Step: i, T: t, Reference: 1, Output: t / 2, Control: 1 - t/2})
	}
	tr.StepsTaken = len(tr.Samples)
	return tr
}

func TestWritePlot(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		magic []byte
	}{
		{"trace.png", []byte("\x89PNG")},
		{"nested/trace.svg", []byte("<svg")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := WritePlot(path, ramp(), "ramp"); err != nil {
				t.Fatal(err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Contains(data[:min(len(data), 512)], tt.magic) {
				t.Errorf("%s does not look like the requested format", tt.name)
			}
		})
	}
}

func TestWritePlotErrors(t *testing.T) {
	dir := t.TempDir()
	if err := WritePlot(filepath.Join(dir, "trace.bmp"), ramp(), ""); err == nil {
		t.Error("expected error for unsupported format")
	}
	if err := WritePlot(filepath.Join(dir, "trace.png"), &sim.Trace{}, ""); err == nil {
		t.Error("expected error for empty trace")
	}
	if err := WritePlot(filepath.Join(dir, "trace.png"), ramp(), "", "z"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestPlotLegend(t *testing.T) {
	p, err := Plot(ramp(), "ramp", "r", "e")
	if err != nil {
		t.Fatal(err)
	}
	if p.Title.Text != "ramp" {
		t.Errorf("title = %q", p.Title.Text)
	}
}
