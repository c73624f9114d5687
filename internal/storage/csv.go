package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/ctrlblocks/internal/dynamo"
	"github.com/san-kum/ctrlblocks/internal/sim"
)

// WriteCSV writes the trace as t,r,e,x,u,y,m followed by one xhat column per
// observer state.
func WriteCSV(w io.Writer, trace *sim.Trace) error {
	cw := csv.NewWriter(w)

	nx := 0
	if len(trace.Estimates) > 0 {
		nx = len(trace.Estimates[0])
	}
	header := append([]string(nil), sim.Columns...)
	for i := 0; i < nx; i++ {
		header = append(header, fmt.Sprintf("xhat%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i := range trace.Samples {
		for j, v := range trace.Row(i) {
			row[j] = format(v)
		}
		for j := 0; j < nx; j++ {
			row[len(sim.Columns)+j] = format(trace.Estimates[i][j])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadCSV parses a trace written by WriteCSV. Config and Metrics are left
// empty.
func ReadCSV(r io.Reader) (*sim.Trace, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty trace file")
	}

	header := records[0]
	if len(header) < len(sim.Columns) {
		return nil, fmt.Errorf("trace header has %d columns, want at least %d", len(header), len(sim.Columns))
	}
	for i, name := range sim.Columns {
		if header[i] != name {
			return nil, fmt.Errorf("trace column %d is %q, want %q", i, header[i], name)
		}
	}
	nx := len(header) - len(sim.Columns)

	trace := &sim.Trace{
		Samples: make([]dynamo.Sample, 0, len(records)-1),
		Metrics: map[string]float64{},
	}
	if nx > 0 {
		trace.Estimates = make([][]float64, 0, len(records)-1)
	}

	vals := make([]float64, len(header))
	for line, rec := range records[1:] {
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line+2, header[j], err)
			}
			vals[j] = v
		}
		trace.Samples = append(trace.Samples, dynamo.Sample{
			Step:      line,
			T:         vals[0],
			Reference: vals[1],
			Error:     vals[2],
			Command:   vals[3],
			Control:   vals[4],
			Output:    vals[5],
			Measured:  vals[6],
			Saturated: vals[3] != vals[4],
		})
		if nx > 0 {
			trace.Estimates = append(trace.Estimates, append([]float64(nil), vals[len(sim.Columns):]...))
		}
	}
	trace.StepsTaken = len(trace.Samples)
	return trace, nil
}
