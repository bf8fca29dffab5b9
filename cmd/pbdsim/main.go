package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pbdsim/internal/analysis"
	"github.com/san-kum/pbdsim/internal/automation"
	"github.com/san-kum/pbdsim/internal/config"
	"github.com/san-kum/pbdsim/internal/export"
	"github.com/san-kum/pbdsim/internal/metrics"
	"github.com/san-kum/pbdsim/internal/optim"
	"github.com/san-kum/pbdsim/internal/scene"
	"github.com/san-kum/pbdsim/internal/sim"
	"github.com/san-kum/pbdsim/internal/storage"
	"github.com/san-kum/pbdsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	frames     int
	iterations int
	dt         float64
	shadows    bool
	parallel   bool
	stride     int
	watch      bool
	theme      string
	// plot selection
	plotBody     int
	plotParticle int
	// export selection
	bodyIdx     int
	particleIdx int
	frameIdx    int
	format      string
	outPath     string
	width       int
	height      int
	// analysis and automation
	settleTol   float64
	convergeTol float64
	paramName   string
	paramMin    float64
	paramMax    float64
	paramSteps  int
	trials      int
	jitterAmt   float64
	seed        int64
	metricName  string
	gridSpec    []string
)

func init() {
	log.SetPrefix("pbdsim: ")
	log.SetFlags(0)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pbdsim",
		Short: "position based dynamics sandbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			// no subcommand: pick a preset interactively
			final, err := tea.NewProgram(viz.NewApp(), tea.WithAltScreen()).Run()
			if err == nil {
				if app, ok := final.(viz.App); ok {
					err = app.Err()
				}
			}
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pbdsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene headless and store the result",
		Args:  cobra.NoArgs,
		RunE:  runScene,
	}
	sceneFlags(runCmd)
	runCmd.Flags().IntVar(&stride, "stride", 1, "record every n-th frame")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a scene with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	sceneFlags(liveCmd)
	liveCmd.Flags().BoolVar(&watch, "watch", false, "reload the scene when the --config file changes")
	liveCmd.Flags().StringVar(&theme, "theme", "classic", fmt.Sprintf("color theme %v", viz.ThemeNames()))

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot constraint error, or one particle's coordinates",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotBody, "body", 0, "body index")
	plotCmd.Flags().IntVar(&plotParticle, "particle", -1, "particle index (negative plots constraint error)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as svg, trajectory svg or json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "svg", "svg, trajectory or json")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.<ext>)")
	exportCmd.Flags().IntVar(&frameIdx, "frame", -1, "recorded frame for svg (negative counts from the end)")
	exportCmd.Flags().IntVar(&bodyIdx, "body", 0, "body index for trajectory")
	exportCmd.Flags().IntVar(&particleIdx, "particle", 0, "particle index for trajectory")
	exportCmd.Flags().IntVar(&width, "width", 800, "svg width")
	exportCmd.Flags().IntVar(&height, "height", 600, "svg height")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset scenes",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset...]",
		Short: "run presets concurrently and report throughput",
		RunE:  benchPresets,
	}
	benchCmd.Flags().IntVar(&frames, "frames", config.DefaultFrames, "frames per scene")
	benchCmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "override relaxation iterations")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "swing frequencies, settling and phase portrait of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&plotBody, "body", 0, "body index for the phase portrait")
	analyzeCmd.Flags().IntVar(&plotParticle, "particle", -1, "particle index for the phase portrait (negative: last)")
	analyzeCmd.Flags().Float64Var(&settleTol, "tol", 0.5, "constraint error tolerance for settling")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a scene across a range of one parameter",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sceneFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&paramName, "param", "iterations", fmt.Sprintf("parameter to sweep %v", config.Tunable))
	sweepCmd.Flags().Float64Var(&paramMin, "min", 1, "first value")
	sweepCmd.Flags().Float64Var(&paramMax, "max", 20, "last value")
	sweepCmd.Flags().IntVar(&paramSteps, "steps", 5, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run a scene from randomly perturbed starts",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	sceneFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&jitterAmt, "jitter", 10, "largest per-axis displacement of free particles")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses the clock)")
	monteCarloCmd.Flags().Float64Var(&convergeTol, "tol", 1, "final constraint error counted as converged")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search scene parameters minimising a metric",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	sceneFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&metricName, "metric", "peak_constraint_error", "metric to minimise")
	tuneCmd.Flags().StringArrayVar(&gridSpec, "grid", []string{"iterations=1,5,10,20"}, "name=v1,v2,... (repeatable)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every step of a scenario file and store the results",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, presetsCmd, benchCmd,
		analyzeCmd, sweepCmd, monteCarloCmd, tuneCmd, scenarioCmd)
	return rootCmd
}

func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset scene")
	cmd.Flags().IntVar(&frames, "frames", config.DefaultFrames, "frames to simulate")
	cmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "relaxation iterations per frame")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().BoolVar(&shadows, "shadows", false, "record shadow positions")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "step bodies on separate goroutines")
}

// resolveConfig layers the scene settings: default scene, then preset,
// then config file, then explicitly set flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	applyFlags(cmd, cfg)
	return cfg, cfg.Validate()
}

// applyFlags copies explicitly set scene flags onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("frames") {
		cfg.Frames = frames
	}
	if flags.Changed("iterations") {
		cfg.Solver.Iterations = iterations
	}
	if flags.Changed("dt") {
		cfg.Solver.Dt = dt
	}
	if flags.Changed("shadows") {
		cfg.Solver.Shadows = shadows
	}
	if flags.Changed("parallel") {
		cfg.Parallel = parallel
	}
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := scene.New(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s := sim.New()
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}

	simCfg := sim.DefaultConfig()
	simCfg.Frames = cfg.Frames
	simCfg.Stride = stride

	start := time.Now()
	result, err := s.Run(context.Background(), sc, simCfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	// frames up to a diverged state are still stored
	for _, e := range result.Errors {
		log.Printf("run stopped early: %v", e)
	}

	runID, err := st.Save(cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("scene: %s (%d bodies)\n", cfg.Name, cfg.NumBodies())
	fmt.Printf("frames: %d in %v\n\n", result.StepsTaken, elapsed.Round(time.Millisecond))
	printMetrics(result.Metrics)

	if final, ok := result.Final(); ok {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BODY\tPARTICLE\tX\tY\tFIXED")
		for _, b := range final.Bodies {
			for i, p := range b.Positions {
				fmt.Fprintf(w, "%s\t%d\t%.3f\t%.3f\t%v\n", b.Name, i, p.X, p.Y, b.Fixed[i])
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func printMetrics(m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-24s %.6f\n", k, m[k])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := scene.New(cfg)
	if err != nil {
		return err
	}
	viz.SetTheme(theme)
	p := tea.NewProgram(viz.NewModel(sc), tea.WithAltScreen())

	if watch {
		if configFile == "" {
			return fmt.Errorf("--watch needs --config")
		}
		w, err := config.Watch(configFile)
		if err != nil {
			return err
		}
		defer w.Close()
		go forwardReloads(cmd, w, p)
	}

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(viz.Model); ok {
		return m.Err()
	}
	return nil
}

func forwardReloads(cmd *cobra.Command, w *config.Watcher, p *tea.Program) {
	for {
		select {
		case cfg, ok := <-w.Configs:
			if !ok {
				return
			}
			applyFlags(cmd, cfg)
			p.Send(viz.ReloadMsg{Config: cfg})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			p.Send(viz.ErrMsg{Err: err})
		}
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tFRAMES\tDT\tITER\tBODIES\tSHADOWS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4fs\t%d\t%d\t%v\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Dt,
			run.Iterations,
			len(run.Bodies),
			run.Shadows,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("samples: %d\n\n", len(frames))

	if plotParticle < 0 {
		data := make([]float64, len(frames))
		for i, f := range frames {
			data[i] = metrics.MaxConstraintError(f)
		}
		fmt.Println(asciigraph.Plot(data, asciigraph.Height(12), asciigraph.Width(70), asciigraph.Caption("max |constraint error|")))
		return nil
	}

	traj, err := export.Trajectory(frames, plotBody, plotParticle)
	if err != nil {
		return err
	}
	xs := make([]float64, len(traj))
	ys := make([]float64, len(traj))
	for i, p := range traj {
		xs[i], ys[i] = p.X, p.Y
	}
	name := meta.Bodies[plotBody].Name
	fmt.Println(asciigraph.Plot(xs, asciigraph.Height(8), asciigraph.Width(70), asciigraph.Caption(fmt.Sprintf("%s[%d] x", name, plotParticle))))
	fmt.Println()
	fmt.Println(asciigraph.Plot(ys, asciigraph.Height(8), asciigraph.Width(70), asciigraph.Caption(fmt.Sprintf("%s[%d] y", name, plotParticle))))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("run %s has no frames", runID)
	}

	ext := "svg"
	if format == "json" {
		ext = "json"
	}
	path := outPath
	if path == "" {
		path = runID + "." + ext
	}

	switch format {
	case "svg":
		idx := frameIdx
		if idx < 0 {
			idx += len(frames)
		}
		if idx < 0 || idx >= len(frames) {
			return fmt.Errorf("frame %d out of range [0, %d)", frameIdx, len(frames))
		}
		err = os.WriteFile(path, []byte(export.FrameToSVG(frames[idx], width, height)), 0644)
	case "trajectory":
		traj, terr := export.Trajectory(frames, bodyIdx, particleIdx)
		if terr != nil {
			return terr
		}
		err = os.WriteFile(path, []byte(export.TrajectoryToSVG(traj, width, height, "#e74c3c")), 0644)
	case "json":
		result := &sim.Result{Frames: frames, Metrics: meta.Metrics, StepsTaken: meta.Frames}
		err = export.ExportJSON(path, meta.Scene, meta.Dt, result)
	default:
		return fmt.Errorf("unknown format: %s (svg, trajectory, json)", format)
	}
	if err != nil {
		return err
	}

	abs, _ := filepath.Abs(path)
	fmt.Printf("exported %s to %s\n", runID, abs)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBODIES\tITER\tSHADOWS\tPARALLEL\tFRAMES")
	for _, name := range config.ListPresets() {
		p := config.Presets[name]
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%v\t%d\n",
			name, bodyNames(p), p.Solver.Iterations, p.Solver.Shadows, p.Parallel, p.Frames)
	}
	return w.Flush()
}

func bodyNames(cfg *config.Config) string {
	names := make([]string, 0, cfg.NumBodies())
	for _, ch := range cfg.Chains {
		names = append(names, fmt.Sprintf("%s(%d)", ch.Name, ch.Count))
	}
	for _, b := range cfg.Bodies {
		names = append(names, fmt.Sprintf("%s(%d)", b.Name, len(b.Particles)))
	}
	return strings.Join(names, ",")
}

func benchPresets(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = config.ListPresets()
	}

	worlds := make([]sim.World, len(names))
	particles := make([]int, len(names))
	for i, name := range names {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
		if cmd.Flags().Changed("iterations") {
			cfg.Solver.Iterations = iterations
		}
		sc, err := scene.New(cfg)
		if err != nil {
			return err
		}
		worlds[i] = sc
		particles[i] = sc.Capture(0, 0).NumParticles()
	}

	if frames < 1 {
		return fmt.Errorf("frames must be positive, got %d", frames)
	}
	simCfg := sim.DefaultConfig()
	simCfg.Frames = frames
	// only the final frame matters for the report
	simCfg.Stride = frames

	fmt.Printf("benchmarking %d scenes, %d frames each\n\n", len(names), frames)
	start := time.Now()
	results, err := sim.NewEnsemble(metrics.Default).Run(context.Background(), worlds, simCfg)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENE\tPARTICLES\tFRAMES\tMAX ERR\tPEAK ERR\tSTABLE")
	for i, r := range results {
		for _, e := range r.Errors {
			log.Printf("%s: %v", names[i], e)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.4f\t%.4f\t%.2f\n",
			names[i], particles[i], r.StepsTaken,
			r.Metrics["constraint_error"], r.Metrics["peak_constraint_error"], r.Metrics["stability"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	total := 0
	for _, r := range results {
		total += r.StepsTaken
	}
	fmt.Printf("\n%d frames in %v (%.0f frames/sec)\n", total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(frames) < 2 {
		return fmt.Errorf("run %s has too few frames to analyze", runID)
	}
	uniform := analysis.Uniform(frames)
	sample := analysis.SampleInterval(uniform)

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d every %.4fs\n\n", len(uniform), sample)

	errs := analysis.ConstraintErrors(frames)
	if idx := analysis.SettlingIndex(errs, settleTol); idx >= 0 {
		fmt.Printf("constraint error within %.3g from t=%.2fs\n\n", settleTol, frames[idx].Time)
	} else {
		fmt.Printf("constraint error never settles within %.3g\n\n", settleTol)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODY\tPARTICLE\tSWING HZ")
	for bi, b := range meta.Bodies {
		for pi := 0; pi < b.Particles; pi++ {
			if b.Fixed[pi] {
				continue
			}
			xs, err := analysis.Coordinate(uniform, bi, pi, 'x')
			if err != nil {
				return err
			}
			hz, err := analysis.DominantFrequency(xs, sample)
			if err != nil {
				fmt.Fprintf(w, "%s\t%d\t-\n", b.Name, pi)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%.3f\n", b.Name, pi, hz)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if plotBody < 0 || plotBody >= len(meta.Bodies) {
		return fmt.Errorf("body %d out of range [0, %d)", plotBody, len(meta.Bodies))
	}
	p := plotParticle
	if p < 0 {
		p = meta.Bodies[plotBody].Particles - 1
	}
	portrait, err := analysis.GeneratePhasePortrait(frames, plotBody, p, 'x')
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n%s", portrait.Label, analysis.PhasePortraitToASCII(portrait, 70, 20))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunSweep(context.Background(), &automation.ParameterSweep{
		Base:      cfg,
		ParamName: paramName,
		ParamMin:  paramMin,
		ParamMax:  paramMax,
		NumSteps:  paramSteps,
	})
	if err != nil {
		return err
	}

	fmt.Printf("sweeping %s over %s, %d frames each\n\n", paramName, cfg.Name, cfg.Frames)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(paramName)+"\tFINAL ERR\tPEAK ERR\tKINETIC E\tSTABLE")
	peaks := make([]float64, len(results))
	for i, r := range results {
		peaks[i] = r.Metrics["peak_constraint_error"]
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\t%.1f\t%.2f\n", r.ParamValue,
			r.Metrics["constraint_error"], peaks[i], r.Metrics["kinetic_energy"], r.Metrics["stability"])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(peaks) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(peaks, asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption("peak constraint error by "+paramName)))
	}
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunMonteCarlo(context.Background(), &automation.MonteCarloConfig{
		Base:      cfg,
		Jitter:    jitterAmt,
		NumTrials: trials,
		Seed:      seed,
		Tolerance: convergeTol,
	})
	if err != nil {
		return err
	}

	stable, unstable, converged := automation.MonteCarloStats(results)
	fmt.Printf("scene: %s, %d trials, jitter %.3g\n", cfg.Name, len(results), jitterAmt)
	fmt.Printf("stable: %d  unstable: %d  converged: %d\n", stable, unstable, converged)

	peaks := make([]float64, len(results))
	for i, r := range results {
		peaks[i] = r.Metrics["peak_constraint_error"]
	}
	if len(peaks) > 0 {
		sort.Float64s(peaks)
		fmt.Printf("peak constraint error: min %.4f  median %.4f  max %.4f\n",
			peaks[0], peaks[len(peaks)/2], peaks[len(peaks)-1])
	}
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(gridSpec))
	ranges := make([][]float64, 0, len(gridSpec))
	for _, spec := range gridSpec {
		name, vals, err := parseGrid(spec)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	start := time.Now()
	best, val, err := optim.NewGridSearch(names, ranges).Search(context.Background(), cfg, metricName)
	if err != nil {
		return err
	}

	fmt.Printf("best %s = %.6f (%v)\n", metricName, val, time.Since(start).Round(time.Millisecond))
	for _, n := range names {
		fmt.Printf("  %-12s %g\n", n, best[n])
	}
	return nil
}

// parseGrid reads "name=v1,v2,...".
func parseGrid(spec string) (string, []float64, error) {
	name, list, ok := strings.Cut(spec, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("bad grid %q, want name=v1,v2,...", spec)
	}
	fields := strings.Split(list, ",")
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("bad grid %q: %w", spec, err)
		}
		vals[i] = v
	}
	return name, vals, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("scenario: %s (%d steps)\n", scenario.Name, len(scenario.Steps))
	results, err := automation.RunScenario(context.Background(), scenario, st)
	for i, r := range results {
		fmt.Printf("step %d: %s -> %s (peak error %.4f)\n", i+1, r.Scene, r.RunID, r.Result.Metrics["peak_constraint_error"])
		for _, e := range r.Result.Errors {
			log.Printf("step %d: %v", i+1, e)
		}
	}
	return err
}
