package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/san-kum/pbdsim/internal/config"
	"github.com/san-kum/pbdsim/internal/metrics"
	"github.com/san-kum/pbdsim/internal/pbd"
	"github.com/san-kum/pbdsim/internal/scene"
	"github.com/san-kum/pbdsim/internal/sim"
	"github.com/san-kum/pbdsim/internal/storage"
	"gopkg.in/yaml.v3"
)

var ErrNoSteps = errors.New("automation: scenario has no steps")

// Scenario defines a scripted sequence of scene runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep runs one scene: a preset or a config file, with optional
// parameter overrides (see [config.Config.SetParam]).
type ScenarioStep struct {
	Preset string             `yaml:"preset,omitempty"`
	Config string             `yaml:"config,omitempty"`
	Params map[string]float64 `yaml:"params,omitempty"`
	SaveAs string             `yaml:"save_as,omitempty"`
}

// StepResult is the outcome of one scenario step. RunID is empty when
// nothing was stored.
type StepResult struct {
	Scene  string
	RunID  string
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file. Relative config paths
// are resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSteps)
	}

	dir := filepath.Dir(path)
	for i := range scenario.Steps {
		if c := scenario.Steps[i].Config; c != "" && !filepath.IsAbs(c) {
			scenario.Steps[i].Config = filepath.Join(dir, c)
		}
	}

	return &scenario, nil
}

func (st ScenarioStep) build() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case st.Config != "":
		loaded, err := config.Load(st.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case st.Preset != "":
		cfg = config.GetPreset(st.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", st.Preset)
		}
	default:
		return nil, fmt.Errorf("%w: step needs a preset or a config", config.ErrInvalidConfig)
	}

	for k, v := range st.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if st.SaveAs != "" {
		cfg.Name = st.SaveAs
	}
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in order. When store is non-nil every
// result is saved there.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store) ([]StepResult, error) {
	if len(scenario.Steps) == 0 {
		return nil, ErrNoSteps
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.build()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		result, err := runOnce(ctx, cfg, nil)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Scene: cfg.Name, Result: result}
		if store != nil {
			if sr.RunID, err = store.Save(cfg, result); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// runOnce simulates cfg.Frames frames, keeping only the first and last.
// prepare, if set, may modify the scene before the first step.
func runOnce(ctx context.Context, cfg *config.Config, prepare func(*scene.Scene) error) (*sim.Result, error) {
	sc, err := scene.New(cfg)
	if err != nil {
		return nil, err
	}
	if prepare != nil {
		if err := prepare(sc); err != nil {
			return nil, err
		}
	}

	s := sim.New()
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}
	simCfg := sim.DefaultConfig()
	simCfg.Frames = cfg.Frames
	simCfg.Stride = cfg.Frames
	return s.Run(ctx, sc, simCfg)
}

// ParameterSweep runs a scene across evenly spaced values of one parameter
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds the metrics of one sweep point
type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	Final      sim.Frame
}

// Values returns the parameter values the sweep visits.
func (p *ParameterSweep) Values() []float64 {
	if p.NumSteps < 2 {
		return []float64{p.ParamMin}
	}
	step := (p.ParamMax - p.ParamMin) / float64(p.NumSteps-1)
	vals := make([]float64, p.NumSteps)
	for i := range vals {
		vals[i] = p.ParamMin + float64(i)*step
	}
	return vals
}

// RunSweep executes every sweep point concurrently.
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.ParamName == "frames" {
		return nil, fmt.Errorf("%w: sweep points share one frame count", config.ErrInvalidConfig)
	}
	values := sweep.Values()
	worlds := make([]sim.World, len(values))

	for i, v := range values {
		cfg := sweep.Base.Clone()
		if err := cfg.SetParam(sweep.ParamName, v); err != nil {
			return nil, err
		}
		sc, err := scene.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, v, err)
		}
		worlds[i] = sc
	}

	simCfg := sim.DefaultConfig()
	simCfg.Frames = sweep.Base.Frames
	simCfg.Stride = max(sweep.Base.Frames, 1)
	runs, err := sim.NewEnsemble(metrics.Default).Run(ctx, worlds, simCfg)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(values))
	for i, r := range runs {
		final, _ := r.Final()
		results[i] = SweepResult{ParamValue: values[i], Metrics: r.Metrics, Final: final}
	}
	return results, nil
}

// MonteCarloConfig defines jittered-start trials of a scene
type MonteCarloConfig struct {
	Base *config.Config
	// Jitter is the largest displacement applied to each free particle
	// along each axis before the first step.
	Jitter    float64
	NumTrials int
	Seed      int64
	// Tolerance on the final constraint error for a trial to count as
	// converged.
	Tolerance float64
}

// MonteCarloResult holds statistics from one trial
type MonteCarloResult struct {
	TrialID   int
	Metrics   map[string]float64
	Final     sim.Frame
	Stable    bool // state stayed finite and bounded
	Converged bool
}

// RunMonteCarlo executes trials sequentially from one seeded source, so a
// fixed Seed reproduces the same perturbations.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < cfg.NumTrials; trial++ {
		result, err := runOnce(ctx, cfg.Base, func(sc *scene.Scene) error {
			return jitter(sc, rng, cfg.Jitter)
		})
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}

		final, _ := result.Final()
		stable := len(result.Errors) == 0 && bounded(final, 1e6)
		results = append(results, MonteCarloResult{
			TrialID:   trial,
			Metrics:   result.Metrics,
			Final:     final,
			Stable:    stable,
			Converged: stable && metrics.MaxConstraintError(final) <= cfg.Tolerance,
		})
	}

	return results, nil
}

func jitter(sc *scene.Scene, rng *rand.Rand, amount float64) error {
	for b := 0; b < sc.NumBodies(); b++ {
		solver := sc.Solver(b)
		for i := 0; i < solver.Len(); i++ {
			p, err := solver.Particle(i)
			if err != nil {
				return err
			}
			if p.Fixed {
				continue
			}
			d := pbd.Vec2{X: (rng.Float64() - 0.5) * 2 * amount, Y: (rng.Float64() - 0.5) * 2 * amount}
			if err := solver.MoveParticle(i, p.Position.Add(d)); err != nil {
				return err
			}
		}
	}
	return nil
}

func bounded(f sim.Frame, limit float64) bool {
	for _, b := range f.Bodies {
		for _, p := range b.Positions {
			if !p.IsFinite() || math.Abs(p.X) > limit || math.Abs(p.Y) > limit {
				return false
			}
		}
	}
	return true
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount, unstableCount, convergedCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
		if r.Converged {
			convergedCount++
		}
	}
	return
}
