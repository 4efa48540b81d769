package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/sphsim/internal/analysis"
	"github.com/san-kum/sphsim/internal/automation"
	"github.com/san-kum/sphsim/internal/config"
	"github.com/san-kum/sphsim/internal/experiment"
	"github.com/san-kum/sphsim/internal/export"
	"github.com/san-kum/sphsim/internal/optim"
	"github.com/san-kum/sphsim/internal/rigid"
	"github.com/san-kum/sphsim/internal/sim"
	"github.com/san-kum/sphsim/internal/store"
	"github.com/san-kum/sphsim/internal/viz"
	"github.com/san-kum/sphsim/internal/world"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

const defaultPreset = "dam"

var (
	dataDir   string
	logFormat string
	verbose   bool

	configFile  string
	solverName  string
	steps       int
	seed        int64
	sampleEvery int
	frameEvery  int
	validate    bool
	reaction    bool
	numRuns     int
	noSave      bool
	metricNames []string

	gifPath      string
	theme        string
	plotMetric   string
	exportFormat string
	exportView   string
	benchSteps   int

	sweepParam   string
	sweepMin     float64
	sweepMax     float64
	sweepPoints  int
	batchSteps   int
	mcSeed       int64
	searchGrid   []string
	searchMetric string
	mcParams     []string
	mcPerturb    float64
	mcTrials     int
	settleTol    float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sphsim",
		Short: "SPH fluid and rigid body simulation lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			viz.SetTheme(theme)
			return viz.RunInteractive(openConfig)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".sphsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text|json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "ocean", "color theme ("+strings.Join(viz.ThemeNames(), "|")+")")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scene and store its metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed for emitter spread")
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "record metrics every n steps (0 disables)")
	runCmd.Flags().IntVar(&frameEvery, "frame-every", 0, "record particle positions every n steps (0 disables)")
	runCmd.Flags().BoolVar(&validate, "validate", false, "stop on NaN or Inf particle state")
	runCmd.Flags().IntVar(&numRuns, "runs", 1, "number of ensemble members with consecutive seeds")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not write the run to the data directory")
	runCmd.Flags().StringSliceVar(&metricNames, "metrics", nil, "metrics to record (default all)")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scene with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)
	liveCmd.Flags().StringVar(&gifPath, "gif", "sphsim.gif", "recording output path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotMetric, "metric", "", "plot only this metric")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format (json|csv|frames|svg)")
	exportCmd.Flags().StringVar(&exportView, "view", "front", "svg projection (front|top|side|orbit)")
	exportCmd.Flags().StringVar(&plotMetric, "metric", "", "with --format svg, draw this metric instead of the last frame")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summarize run metrics and estimate oscillation periods",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&settleTol, "settle", 0.05, "settling band as a fraction of the metric range")
	analyzeCmd.Flags().StringVar(&plotMetric, "phase", "", "draw a phase portrait of kinetic_energy against this metric")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of scenes",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not write the runs to the data directory")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run a scene across a range of one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addSceneFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "viscosity", "parameter ("+strings.Join(config.ParamNames(), "|")+")")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.5, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 5, "number of values")
	sweepCmd.Flags().IntVar(&batchSteps, "steps", 300, "steps per run")

	searchCmd := &cobra.Command{
		Use:   "search [preset]",
		Short: "grid search parameters minimizing a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSearch,
	}
	addSceneFlags(searchCmd)
	searchCmd.Flags().StringArrayVar(&searchGrid, "grid", nil, "name=v1,v2,... (repeatable)")
	searchCmd.Flags().StringVar(&searchMetric, "metric", "density_rel_stddev", "metric to minimize")
	searchCmd.Flags().IntVar(&batchSteps, "steps", 300, "steps per run")

	mcCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "run a scene with randomly perturbed parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addSceneFlags(mcCmd)
	mcCmd.Flags().StringSliceVar(&mcParams, "params", []string{"viscosity", "stiffness"}, "parameters to perturb")
	mcCmd.Flags().Float64Var(&mcPerturb, "perturb", 0.2, "relative perturbation")
	mcCmd.Flags().IntVar(&mcTrials, "trials", 10, "number of trials")
	mcCmd.Flags().Int64Var(&mcSeed, "seed", 0, "random seed (0 uses the clock)")
	mcCmd.Flags().IntVar(&batchSteps, "steps", 300, "steps per run")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available scene presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFILL\tEMITTERS\tBODIES\tSTEPS")
			for _, name := range config.ListPresets() {
				cfg := config.Presets[name]
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", name, len(cfg.Fill), len(cfg.Emitters), len(cfg.Bodies), cfg.Run.Steps)
			}
			return w.Flush()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [preset] [path]",
		Short: "write a preset as an editable YAML scene",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetPreset(args[0])
			if cfg == nil {
				return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
			}
			if err := config.Save(args[1], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[1])
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "benchmark every solver on a scene",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	benchCmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml)")
	benchCmd.Flags().IntVar(&benchSteps, "steps", 200, "steps per solver")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, analyzeCmd, presetsCmd, initCmd, benchCmd,
		scenarioCmd, sweepCmd, searchCmd, mcCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scene file (yaml); overrides the preset")
	cmd.Flags().StringVar(&solverName, "solver", "", "solver strategy (grid|reduced)")
	cmd.Flags().BoolVar(&reaction, "reaction", false, "apply reaction forces to dynamic bodies")
}

func setupLogging() error {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	switch logFormat {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format: %s", logFormat)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// loadScene resolves the scene from --config or a preset name, then applies
// any flags the user set explicitly.
func loadScene(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	default:
		name := defaultPreset
		if len(args) > 0 {
			name = args[0]
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	flags := cmd.Flags()
	if flags.Changed("solver") {
		cfg.Run.Solver = solverName
	}
	if flags.Changed("reaction") {
		cfg.Contacts.ApplyReaction = reaction
	}
	return cfg, cfg.Validate()
}

func newRegistry() (*experiment.Registry, error) {
	reg := experiment.NewRegistry()
	if len(metricNames) > 0 {
		if err := reg.SetMetrics(metricNames); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// applyRunFlags copies the run-only flags into cfg.Run.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Run.Steps = steps
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Changed("sample-every") {
		cfg.Run.SampleEvery = sampleEvery
	}
	if flags.Changed("frame-every") {
		cfg.Run.FrameEvery = frameEvery
	}
	if flags.Changed("validate") {
		cfg.Run.Validate = validate
	}
	return cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	if numRuns > 1 {
		return runEnsemble(contextOf(cmd), cfg)
	}

	reg, err := newRegistry()
	if err != nil {
		return err
	}
	exp, err := experiment.NewWithRegistry(cfg, reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer stop()

	slog.Info("running scene", "scene", cfg.Name, "solver", cfg.Run.Solver, "particles", exp.World().NumParticles(), "steps", cfg.Run.Steps)
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		slog.Warn("run stopped early", "steps", result.StepsTaken, "error", runErr)
	}

	printResult(result)
	if !noSave {
		st := store.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return runErr
}

func runEnsemble(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	slog.Info("running ensemble", "scene", cfg.Name, "runs", numRuns, "seed", cfg.Run.Seed)
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	ens := sim.NewEnsemble(experiment.Builder(cfg), numRuns, cfg.Run.Seed)
	results, err := ens.Run(ctx, exp.SimConfig())
	if err != nil {
		return err
	}

	values := make(map[string][]float64)
	for _, r := range results {
		for name, v := range r.Metrics {
			values[name] = append(values[name], v)
		}
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTDDEV\tRUNS")
	for _, name := range names {
		mean, std := stat.MeanStdDev(values[name], nil)
		fmt.Fprintf(w, "%s\t%.6g\t%.3g\t%d\n", name, mean, std, len(values[name]))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if noSave {
		return nil
	}
	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	for i, r := range results {
		member := cfg.Clone()
		member.Run.Seed = cfg.Run.Seed + int64(i)
		runID, err := st.Save(member, r)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printResult(result *sim.Result) {
	fmt.Printf("completed %d steps in %v (%.3fs simulated)\n", result.StepsTaken, result.Wall.Round(time.Millisecond), result.Time)
	if result.StepsTaken > 0 {
		fmt.Printf("%.0f steps/sec, %d particles\n", float64(result.StepsTaken)/result.Wall.Seconds(), result.Particles)
	}
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-20s %.6g\n", name, result.Metrics[name])
	}
}

// openConfig builds a live-model builder from a scene configuration.
func openConfig(cfg *config.Config) viz.Builder {
	return func() (*world.World, *rigid.Scene, error) {
		exp, err := experiment.New(cfg.Clone())
		if err != nil {
			return nil, nil, err
		}
		return exp.World(), exp.Scene(), nil
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}
	viz.SetTheme(theme)

	m := viz.NewModel(openConfig(cfg), cfg.Name)
	if err := m.Err(); err != nil {
		return err
	}
	m.SetGIFPath(gifPath)
	return viz.RunModel(m)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tSOLVER\tSTEPS\tPARTICLES\tWALL")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.2fs\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Solver,
			run.Steps,
			run.Particles,
			run.WallSeconds,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := store.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	records, err := st.LoadMetrics(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no data to plot")
	}

	names := metricOrder(records)
	if plotMetric != "" {
		names = []string{plotMetric}
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s (%s solver)\n\n", meta.Scene, meta.Solver)

	for _, name := range names {
		_, data := store.Series(records, name)
		if len(data) == 0 {
			return fmt.Errorf("metric %s not recorded in %s", name, runID)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func metricOrder(records []store.MetricRecord) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		if !seen[r.Metric] {
			seen[r.Metric] = true
			names = append(names, r.Metric)
		}
	}
	return names
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := store.New(dataDir)

	switch exportFormat {
	case "json":
		meta, err := st.Load(runID)
		if err != nil {
			return err
		}
		records, err := st.LoadMetrics(runID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*store.RunMetadata
			Samples []store.MetricRecord `json:"samples"`
		}{meta, records})
	case "csv":
		records, err := st.LoadMetrics(runID)
		if err != nil {
			return err
		}
		return gocsv.Marshal(records, os.Stdout)
	case "frames":
		frames, err := st.LoadFrames(runID)
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			return fmt.Errorf("run %s has no frames; rerun with --frame-every", runID)
		}
		return gocsv.Marshal(frames, os.Stdout)
	case "svg":
		return exportSVG(st, runID)
	}
	return fmt.Errorf("unknown export format: %s", exportFormat)
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	fmt.Printf("benchmarking %s, %d steps\n\n", cfg.Name, benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOLVER\tPARTICLES\tTIME\tSTEPS/SEC\tMAX SPEED")

	for _, name := range reg.ListSolvers() {
		c := cfg.Clone()
		c.Run.Solver = name
		c.Run.Steps = benchSteps
		c.Run.SampleEvery = 0

		exp, err := experiment.NewWithRegistry(c, reg)
		if err != nil {
			return err
		}
		result, err := exp.Run(contextOf(cmd))
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\t%.4g\n",
			name, result.Particles, result.Wall.Round(time.Millisecond),
			float64(result.StepsTaken)/result.Wall.Seconds(), result.Metrics["max_speed"])
	}

	return w.Flush()
}

func exportSVG(st *store.Store, runID string) error {
	view, err := viz.ParseView(exportView)
	if err != nil {
		return err
	}

	if plotMetric != "" {
		records, err := st.LoadMetrics(runID)
		if err != nil {
			return err
		}
		steps, values := store.Series(records, plotMetric)
		if len(values) < 2 {
			return fmt.Errorf("metric %s has fewer than two samples in %s", plotMetric, runID)
		}
		x := make([]float64, len(steps))
		for i, s := range steps {
			x[i] = float64(s)
		}
		_, err = fmt.Print(export.SeriesToSVG(x, values, 800, 300))
		return err
	}

	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	last := export.LastStep(frames)
	if last < 0 {
		return fmt.Errorf("run %s has no frames; rerun with --frame-every", runID)
	}
	bounds := r3.Box{Min: cfg.Fluid.VolumeMin.R3(), Max: cfg.Fluid.VolumeMax.R3()}
	_, err = fmt.Print(export.FrameSVG(export.FramePositions(frames, last), bounds, view, 80, 40, 4))
	return err
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := store.New(dataDir)
	records, err := st.LoadMetrics(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("run %s has no metric samples", runID)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTDDEV\tMIN\tMAX\tFINAL\tSETTLED AT\tPERIOD")
	for _, name := range metricOrder(records) {
		steps, values := store.Series(records, name)
		s := analysis.Summarize(values, settleTol)
		settled := "-"
		if s.SettleIndex >= 0 {
			settled = strconv.Itoa(steps[s.SettleIndex])
		}
		period := "-"
		if len(steps) > 1 {
			if p, ok := analysis.DominantPeriod(values, float64(steps[1]-steps[0])); ok {
				period = fmt.Sprintf("%.0f steps", p)
			}
		}
		fmt.Fprintf(w, "%s\t%.4g\t%.3g\t%.4g\t%.4g\t%.4g\t%s\t%s\n",
			name, s.Mean, s.StdDev, s.Min, s.Max, s.Final, settled, period)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if plotMetric != "" {
		_, ke := store.Series(records, "kinetic_energy")
		_, other := store.Series(records, plotMetric)
		if len(other) == 0 {
			return fmt.Errorf("metric %s not recorded in %s", plotMetric, runID)
		}
		fmt.Printf("\nkinetic_energy (x) vs %s (y)\n", plotMetric)
		fmt.Print(analysis.NewPhasePortrait("kinetic_energy", ke, plotMetric, other).Render(60, 15))
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer stop()

	var st *store.Store
	if !noSave {
		st = store.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	slog.Info("running scenario", "name", sc.Name, "steps", len(sc.Steps))
	results, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), st)
	for i, r := range results {
		fmt.Printf("step %d: %d steps, %d particles, %v\n", i+1, r.StepsTaken, r.Particles, r.Wall.Round(time.Millisecond))
	}
	return err
}

// batchScene loads the scene for sweep, search and montecarlo, which keep
// metrics only.
func batchScene(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadScene(cmd, args)
	if err != nil {
		return nil, err
	}
	cfg.Run.Steps = batchSteps
	cfg.Run.SampleEvery = 0
	cfg.Run.FrameEvery = 0
	return cfg, cfg.Validate()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := batchScene(cmd, args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer stop()

	sweep := &automation.ParameterSweep{Base: cfg, Param: sweepParam, Min: sweepMin, Max: sweepMax, Points: sweepPoints}
	results, err := automation.RunSweep(ctx, sweep, experiment.NewRegistry())
	if err != nil && len(results) == 0 {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTABLE\tMAX SPEED\tDENSITY DEV\tKINETIC\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%v\t%.4g\t%.4g\t%.4g\n", r.Value, r.Stable,
			r.Metrics["max_speed"], r.Metrics["density_rel_stddev"], r.Metrics["kinetic_energy"])
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, entry := range entries {
		name, list, ok := strings.Cut(entry, "=")
		if !ok || list == "" {
			return nil, nil, fmt.Errorf("bad grid %q, want name=v1,v2", entry)
		}
		var values []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := batchScene(cmd, args)
	if err != nil {
		return err
	}
	if len(searchGrid) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	names, ranges, err := parseGrid(searchGrid)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := cfg.Param(name); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer stop()

	g := optim.NewGridSearch(names, ranges)
	params, best, err := g.Search(ctx, optim.SceneBuilder(cfg, experiment.NewRegistry()), searchMetric)
	total, failed := g.Evaluated()
	slog.Info("search finished", "points", total, "failed", failed)
	if err != nil {
		return err
	}

	fmt.Printf("best %s: %.6g\n", searchMetric, best)
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-20s %.6g\n", name, params[name])
	}
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := batchScene(cmd, args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer stop()

	mc := &automation.MonteCarloConfig{
		Base:         cfg,
		Params:       mcParams,
		Perturbation: mcPerturb,
		NumTrials:    mcTrials,
		Seed:         mcSeed,
	}
	results, err := automation.RunMonteCarlo(ctx, mc, experiment.NewRegistry())
	if err != nil && len(results) == 0 {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("%d trials: %d stable, %d unstable\n", len(results), stable, unstable)

	var speeds []float64
	for _, r := range results {
		if r.Stable {
			speeds = append(speeds, r.Metrics["max_speed"])
		}
	}
	if len(speeds) > 1 {
		mean, std := stat.MeanStdDev(speeds, nil)
		fmt.Printf("max_speed over stable trials: %.4g ± %.3g\n", mean, std)
	}
	return err
}
