package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/ctrlblocks/internal/automation"
	"github.com/san-kum/ctrlblocks/internal/experiment"
	"github.com/san-kum/ctrlblocks/internal/storage"
)

var (
	parallelism int

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepN     int

	mcParams  []string
	mcPerturb float64
	mcTrials  int
	mcSeed    int64

	saveRuns bool
)

func batchCommands() []*cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run a preset over a range of one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepLoop,
	}
	loopFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "kp", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 5, "last value")
	sweepCmd.Flags().IntVar(&sweepN, "n", 5, "number of values")
	sweepCmd.Flags().IntVar(&parallelism, "parallel", 0, "concurrent runs (0 = no limit)")
	sweepCmd.Flags().BoolVar(&saveRuns, "save", false, "store every run")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted yaml scenario and store every step",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	mcCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "robustness of a loop to plant parameter spread",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	loopFlags(mcCmd)
	mcCmd.Flags().StringSliceVar(&mcParams, "param", []string{"plant.gain", "plant.time_constant"}, "parameters to perturb")
	mcCmd.Flags().Float64Var(&mcPerturb, "perturb", 0.2, "relative perturbation")
	mcCmd.Flags().IntVar(&mcTrials, "trials", 50, "number of trials")
	mcCmd.Flags().Int64Var(&mcSeed, "seed", 0, "random seed (0 = time based)")

	return []*cobra.Command{sweepCmd, scenarioCmd, mcCmd}
}

func sweepLoop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	points, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:     cfg,
		Param:    sweepParam,
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepN,
		Limit:    parallelism,
	}, experiment.NewRegistry())
	if err != nil {
		return err
	}

	var metricNames []string
	for name := range points[0].Trace.Metrics {
		metricNames = append(metricNames, name)
	}
	sort.Strings(metricNames)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFINAL Y", strings.ToUpper(sweepParam))
	for _, m := range metricNames {
		fmt.Fprintf(w, "\t%s", strings.ToUpper(m))
	}
	fmt.Fprintln(w)
	series := make([][]float64, 0, len(points))
	for _, p := range points {
		fmt.Fprintf(w, "%g\t%.6g", p.Value, p.Trace.Last().Output)
		for _, m := range metricNames {
			fmt.Fprintf(w, "\t%.6g", p.Trace.Metrics[m])
		}
		fmt.Fprintln(w)
		y, _ := p.Trace.Column("y")
		series = append(series, y)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("y over %s = %g..%g", sweepParam, sweepMin, sweepMax)),
	))

	if !saveRuns {
		return nil
	}
	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	for _, p := range points {
		id, err := store.Save(p.Config, p.Trace)
		if err != nil {
			return err
		}
		fmt.Printf("saved: %s\n", id)
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signalContext()
	defer cancel()
	results, runErr := automation.RunScenario(ctx, sc, experiment.NewRegistry(), log)

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	for _, r := range results {
		id, err := store.Save(r.Config, r.Trace)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d steps, saved %s\n", r.Name, r.Trace.StepsTaken, id)
		printMetrics(os.Stdout, r.Trace.Metrics)
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         cfg,
		Params:       mcParams,
		Perturbation: mcPerturb,
		NumTrials:    mcTrials,
		Seed:         mcSeed,
	}, experiment.NewRegistry())
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("%s: %d trials, %d stable, %d unstable (±%.0f%% on %s)\n",
		cfg.Name, len(results), stable, unstable, mcPerturb*100, strings.Join(mcParams, ", "))

	finals := make([]float64, len(results))
	for i, r := range results {
		finals[i] = r.Final
	}
	if len(finals) > 1 {
		fmt.Println(asciigraph.Plot(finals,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption("final output per trial"),
		))
	}
	return nil
}
