package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/ctrlblocks/internal/analysis"
	"github.com/san-kum/ctrlblocks/internal/config"
	"github.com/san-kum/ctrlblocks/internal/experiment"
	"github.com/san-kum/ctrlblocks/internal/export"
	"github.com/san-kum/ctrlblocks/internal/logging"
	"github.com/san-kum/ctrlblocks/internal/sim"
	"github.com/san-kum/ctrlblocks/internal/storage"
	"github.com/san-kum/ctrlblocks/internal/viz"
)

var (
	dataDir string
	verbose bool

	configFile string
	ts         float64
	duration   float64
	kp         float64
	ki         float64
	kd         float64
	tf         float64
	kb         float64
	kt         float64
	antiWindup string
	intMethod  string
	derMethod  string
	traceEvery int
	noSave     bool

	plotColumns   []string
	exportColumns []string
	outputFile    string

	stepsPerTick int

	blockK  float64
	blockT  float64
	blockT2 float64
	blockN  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ctrlblocks",
		Short:         "discrete-time control blocks lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ctrlblocks", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a closed loop and store the trace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	loopFlags(runCmd)
	runCmd.Flags().IntVar(&traceEvery, "trace", 0, "log one tick in n at debug level (0 = off)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotColumns, "columns", []string{"r", "y"}, "trace columns to draw")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run trace as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")

	exportPlotCmd := &cobra.Command{
		Use:   "export-plot [run_id] [file]",
		Short: "render a run to png, svg, pdf or jpg",
		Args:  cobra.ExactArgs(2),
		RunE:  exportPlot,
	}
	exportPlotCmd.Flags().StringSliceVar(&exportColumns, "columns", export.DefaultColumns, "trace columns to draw")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response and error spectrum of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list loop presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	saveConfigCmd := &cobra.Command{
		Use:   "save-config [preset] [file]",
		Short: "write a preset as yaml",
		Args:  cobra.ExactArgs(2),
		RunE:  saveConfig,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [preset]",
		Short: "run a preset with every anti-windup method",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareAntiWindup,
	}
	loopFlags(compareCmd)

	stepCmd := &cobra.Command{
		Use:   "step [block]",
		Short: "step response of a canonical block under every approximation",
		Args:  cobra.ExactArgs(1),
		RunE:  stepBlock,
	}
	stepCmd.Flags().Float64Var(&blockK, "k", 1, "gain")
	stepCmd.Flags().Float64Var(&blockT, "t", 5, "time constant")
	stepCmd.Flags().Float64Var(&blockT2, "t2", 1, "second time constant (lead_lag)")
	stepCmd.Flags().Float64Var(&ts, "ts", 1, "sample time")
	stepCmd.Flags().IntVar(&blockN, "n", 30, "number of samples")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a loop live and adjust the PID gains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	loopFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerTick, "speed", 1, "loop ticks per frame")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportPlotCmd,
		analyzeCmd, presetsCmd, saveConfigCmd, compareCmd, stepCmd, liveCmd)
	rootCmd.AddCommand(batchCommands()...)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loopFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&ts, "ts", config.DefaultTs, "sample time")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "proportional gain")
	cmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "integral gain")
	cmd.Flags().Float64Var(&kd, "kd", 0, "derivative gain")
	cmd.Flags().Float64Var(&tf, "tf", config.DefaultTf, "derivative filter time constant")
	cmd.Flags().Float64Var(&kb, "kb", 0.4, "back-calculation gain")
	cmd.Flags().Float64Var(&kt, "kt", config.DefaultKt, "tracking gain")
	cmd.Flags().StringVar(&antiWindup, "anti-windup", "none", "none, clamping or back_calculation")
	cmd.Flags().StringVar(&intMethod, "int-method", "forward_euler", "integral approximation")
	cmd.Flags().StringVar(&derMethod, "der-method", "forward_euler", "derivative approximation")
}

func newLogger() (*zap.Logger, error) {
	log, err := logging.New(verbose)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}

// loadConfig starts from the config file or the named preset (pid2 when
// none is given) and applies only the flags set on the command line.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		name := "pid2"
		if len(args) > 0 {
			name = args[0]
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(config.ListPresets(), ", "))
		}
	}

	f := cmd.Flags()
	if f.Changed("ts") {
		cfg.Ts = ts
	}
	if f.Changed("time") {
		cfg.Duration = duration
	}
	cc := &cfg.Controller
	if f.Changed("kp") {
		cc.Kp = kp
	}
	if f.Changed("ki") {
		cc.Ki = ki
	}
	if f.Changed("kd") {
		cc.Kd = kd
	}
	if f.Changed("tf") {
		cc.Tf = tf
	}
	if f.Changed("kb") {
		cc.Kb = kb
	}
	if f.Changed("kt") {
		cc.Kt = kt
		cc.Tracking = true
	}
	if f.Changed("anti-windup") {
		cc.AntiWindup = antiWindup
	}
	if f.Changed("int-method") {
		cc.IntMethod = intMethod
	}
	if f.Changed("der-method") {
		cc.DerMethod = derMethod
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	exp := experiment.New(cfg, experiment.NewRegistry(), log)
	exp.TraceEvery(traceEvery)

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	trace, setup, err := exp.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	elapsed := time.Since(start)

	last := trace.Last()
	fmt.Printf("%s: %d steps in %v\n", cfg.Name, trace.StepsTaken, elapsed)
	fmt.Printf("final  r=%.6g  y=%.6g  u=%.6g  e=%.6g\n", last.Reference, last.Output, last.Control, last.Error)
	if setup.PID != nil {
		t := setup.PID.Terms()
		fmt.Printf("terms  P=%.4g  I=%.4g  D=%.4g  TR=%.4g  AW=%.4g\n", t.FromP, t.FromI, t.FromD, t.FromTR, t.FromAW)
	}
	if est := setup.Loop.Estimate(); est != nil {
		fmt.Printf("estimate  %v\n", est)
	}
	printMetrics(os.Stdout, trace.Metrics)

	if noSave {
		return nil
	}
	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	id, err := store.Save(cfg, trace)
	if err != nil {
		return err
	}
	fmt.Printf("saved: %s\n", id)
	return nil
}

func printMetrics(w io.Writer, m map[string]float64) {
	if len(m) == 0 {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "\nmetrics:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %.6g\n", name, m[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLANT\tCONTROLLER\tTS\tSTEPS\tTIME")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%d\t%s\n",
			r.ID, r.Plant, r.Controller, r.Ts, r.Steps, r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func loadTrace(runID string) (*sim.Trace, error) {
	store := storage.New(dataDir)
	trace, err := store.LoadTrace(runID)
	if err != nil {
		return nil, err
	}
	if len(trace.Samples) == 0 {
		return nil, fmt.Errorf("run %s has no samples", runID)
	}
	return trace, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	trace, err := loadTrace(args[0])
	if err != nil {
		return err
	}

	series := make([][]float64, 0, len(plotColumns))
	for _, c := range plotColumns {
		data, err := trace.Column(c)
		if err != nil {
			return err
		}
		series = append(series, data)
	}
	colors := []asciigraph.AnsiColor{asciigraph.Blue, asciigraph.Green, asciigraph.Red, asciigraph.Yellow}
	graph := asciigraph.PlotMany(series,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(colors[:min(len(series), len(colors))]...),
		asciigraph.Caption(fmt.Sprintf("%s: %s", args[0], strings.Join(plotColumns, ", "))),
	)
	fmt.Println(graph)
	return nil
}

func output() (io.WriteCloser, error) {
	if outputFile == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outputFile)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCSV(cmd *cobra.Command, args []string) error {
	trace, err := loadTrace(args[0])
	if err != nil {
		return err
	}
	w, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(w, trace); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportJSON(w, args[0]); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func exportPlot(cmd *cobra.Command, args []string) error {
	trace, err := loadTrace(args[0])
	if err != nil {
		return err
	}
	if err := export.WritePlot(args[1], trace, args[0], exportColumns...); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	trace, err := loadTrace(args[0])
	if err != nil {
		return err
	}
	t, _ := trace.Column("t")
	r, _ := trace.Column("r")
	y, _ := trace.Column("y")
	e, _ := trace.Column("e")

	// measure from the first reference change
	start := 0
	for i := range r {
		if r[i] != r[0] {
			start = i
			break
		}
	}
	if len(y)-start >= 2 {
		info, err := analysis.AnalyzeStep(t[start:], y[start:])
		if err != nil {
			return err
		}
		fmt.Printf("step response (from t=%g):\n", t[start])
		fmt.Printf("  rise time       %.4g\n", info.RiseTime)
		fmt.Printf("  overshoot       %.4g %%\n", info.Overshoot)
		fmt.Printf("  settling time   %.4g (%.0f%% band)\n", info.SettlingTime, analysis.SettlingBand*100)
		fmt.Printf("  steady state    %.6g\n", info.SteadyState)
	}

	freq, err := analysis.DominantFrequency(e, trace.Config.Ts)
	if err != nil {
		fmt.Printf("\nspectrum: %v\n", err)
		return nil
	}
	fmt.Printf("\ndominant error frequency: %.4g Hz\n", freq)

	spectrum := analysis.PowerSpectrum(e)
	if len(spectrum) > 1 {
		graph := asciigraph.Plot(spectrum[1:],
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("error spectrum |E(k)|"),
		)
		fmt.Println(graph)
	}
	printMetrics(os.Stdout, trace.Metrics)
	return nil
}

// describe is the one-line summary of a preset shown by presets and the menu.
func describe(cfg *config.Config) string {
	ctrl := cfg.Controller.Type
	if ctrl == "pid" {
		ctrl = fmt.Sprintf("pid(%g,%g,%g)", cfg.Controller.Kp, cfg.Controller.Ki, cfg.Controller.Kd)
		if aw := cfg.Controller.AntiWindup; aw != "" && aw != "none" {
			ctrl += " " + aw
		}
		if cfg.Controller.Tracking {
			ctrl += " tracking"
		}
	}
	return fmt.Sprintf("%s -> %s, %s ref", ctrl, cfg.Plant.Type, cfg.Reference.Type)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTS\tDURATION\tLOOP")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%g\t%g\t%s\n", name, cfg.Ts, cfg.Duration, describe(cfg))
	}
	return w.Flush()
}

func saveConfig(cmd *cobra.Command, args []string) error {
	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown preset %q", args[0])
	}
	if err := config.Save(args[1], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}

var antiWindupMethods = []string{"none", "clamping", "back_calculation"}

func compareAntiWindup(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"pid2-clamping"}
	}
	base, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	reg := experiment.NewRegistry()
	jobs := make([]sim.Job, 0, len(antiWindupMethods))
	for _, aw := range antiWindupMethods {
		cfg := base.Clone()
		cfg.Name = aw
		cfg.Controller.AntiWindup = aw
		if aw == "back_calculation" && cfg.Controller.Kb == 0 {
			cfg.Controller.Kb = kb
		}
		jobs = append(jobs, experiment.New(cfg, reg, log).Job())
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := sim.Sweep(ctx, jobs, 0)
	if err != nil {
		return err
	}

	names := map[string]bool{}
	for _, r := range results {
		for m := range r.Trace.Metrics {
			names[m] = true
		}
	}
	metricNames := make([]string, 0, len(names))
	for m := range names {
		metricNames = append(metricNames, m)
	}
	sort.Strings(metricNames)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "ANTI-WINDUP\tFINAL Y")
	for _, m := range metricNames {
		fmt.Fprintf(w, "\t%s", strings.ToUpper(m))
	}
	fmt.Fprintln(w)
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%.6g", r.Name, r.Trace.Last().Output)
		for _, m := range metricNames {
			fmt.Fprintf(w, "\t%.6g", r.Trace.Metrics[m])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	series := make([][]float64, len(results))
	for i, r := range results {
		series[i], _ = r.Trace.Column("y")
	}
	fmt.Println()
	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green, asciigraph.Blue),
		asciigraph.Caption("y: none (red), clamping (green), back_calculation (blue)"),
	))
	return nil
}

func runMenu() error {
	names := config.ListPresets()
	info := make(map[string]string, len(names))
	for _, name := range names {
		info[name] = describe(config.GetPreset(name))
	}
	reg := experiment.NewRegistry()
	menu := viz.NewMenu(names, info, func(name string) (viz.Model, error) {
		return liveModel(config.GetPreset(name), reg)
	})
	_, err := tea.NewProgram(menu, tea.WithAltScreen()).Run()
	return err
}

func liveModel(cfg *config.Config, reg *experiment.Registry) (viz.Model, error) {
	setup, err := experiment.New(cfg, reg, nil).Build()
	if err != nil {
		return viz.Model{}, err
	}
	return viz.NewModel(cfg.Name, setup.Loop, setup.PID, cfg.Ts, stepsPerTick)
}

func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && configFile == "" {
		return runMenu()
	}
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	m, err := liveModel(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
