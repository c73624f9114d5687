package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/ctrlblocks/internal/lti"
)

type blockFactory func(m lti.Method) (*lti.StateSpace, error)

func canonicalBlocks() map[string]blockFactory {
	return map[string]blockFactory{
		"pt1": func(m lti.Method) (*lti.StateSpace, error) {
			return lti.NewPT1(blockK, blockT, ts, m, 0)
		},
		"lowpass": func(m lti.Method) (*lti.StateSpace, error) {
			return lti.NewLowPass(blockK, blockT, ts, m, 0)
		},
		"highpass": func(m lti.Method) (*lti.StateSpace, error) {
			return lti.NewHighPass(blockK, blockT, ts, m, 0)
		},
		"lead_lag": func(m lti.Method) (*lti.StateSpace, error) {
			return lti.NewLeadLag(blockT, blockT2, ts, m, 0)
		},
		"integrator": func(m lti.Method) (*lti.StateSpace, error) {
			return lti.NewIntegrator(blockK, ts, m, 0)
		},
		"derivative": func(m lti.Method) (*lti.StateSpace, error) {
			return lti.NewDerivative(blockK, blockT, ts, m, 0)
		},
	}
}

// stepBlock feeds a unit step into one canonical block discretized with
// each approximation and prints the responses side by side.
func stepBlock(cmd *cobra.Command, args []string) error {
	blocks := canonicalBlocks()
	build, ok := blocks[args[0]]
	if !ok {
		names := make([]string, 0, len(blocks))
		for name := range blocks {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown block %q (available: %s)", args[0], strings.Join(names, ", "))
	}
	if blockN < 1 {
		return fmt.Errorf("need at least one sample, got %d", blockN)
	}

	methods := lti.Methods()
	series := make([][]float64, len(methods))
	for i, m := range methods {
		block, err := build(m)
		if err != nil {
			return err
		}
		series[i] = make([]float64, blockN)
		for k := range series[i] {
			y, err := block.UpdateScalar(1)
			if err != nil {
				return err
			}
			series[i][k] = y
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "K")
	for _, m := range methods {
		fmt.Fprintf(w, "\t%s", strings.ToUpper(m.String()))
	}
	fmt.Fprintln(w)
	for k := 0; k < min(blockN, 10); k++ {
		fmt.Fprintf(w, "%d", k)
		for i := range methods {
			fmt.Fprintf(w, "\t%.6g", series[i][k])
		}
		fmt.Fprintln(w)
	}
	if blockN > 10 {
		fmt.Fprint(w, "...")
		for range methods {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d", blockN-1)
		for i := range methods {
			fmt.Fprintf(w, "\t%.6g", series[i][blockN-1])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if blockN < 2 {
		return nil
	}
	fmt.Println()
	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green, asciigraph.Blue),
		asciigraph.Caption(fmt.Sprintf("%s step: forward_euler (red), backward_euler (green), trapezoidal (blue)", args[0])),
	))
	return nil
}
