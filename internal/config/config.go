package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/pbdsim/internal/pbd"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGravityY   = 9.81
	DefaultIterations = pbd.DefaultIterations
	DefaultFrames     = 600
	DefaultSpacing    = 50.0
	DefaultMass       = 1.0

	// DefaultDt is the 60 Hz frame the gravity tuning assumes.
	DefaultDt = pbd.DefaultDt
)

var ErrInvalidConfig = errors.New("config: invalid scene configuration")

type Vec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (v Vec) Vec2() pbd.Vec2 { return pbd.Vec2{X: v.X, Y: v.Y} }

type Config struct {
	Name     string        `yaml:"name"`
	Solver   SolverConfig  `yaml:"solver"`
	Chains   []ChainConfig `yaml:"chains,omitempty"`
	Bodies   []BodyConfig  `yaml:"bodies,omitempty"`
	Frames   int           `yaml:"frames"`
	Parallel bool          `yaml:"parallel"`
}

type SolverConfig struct {
	Gravity    Vec     `yaml:"gravity"`
	Dt         float64 `yaml:"dt"`
	Iterations int     `yaml:"iterations"`
	Shadows    bool    `yaml:"shadows"`
}

// ChainConfig describes a horizontal chain of Count particles starting at
// Origin, consecutive particles linked by distance constraints. Zero Mass
// and Spacing fall back to the defaults.
type ChainConfig struct {
	Name     string        `yaml:"name,omitempty"`
	Origin   Vec           `yaml:"origin"`
	Count    int           `yaml:"count"`
	Spacing  float64       `yaml:"spacing"`
	Mass     float64       `yaml:"mass"`
	TailMass float64       `yaml:"tail_mass,omitempty"`
	PinFirst bool          `yaml:"pin_first"`
	PinLast  bool          `yaml:"pin_last,omitempty"`
	Solver   *SolverConfig `yaml:"solver,omitempty"`
}

// BodyConfig is an explicit topology. Constraints reference particles by
// their position in Particles and are added in order.
type BodyConfig struct {
	Name        string           `yaml:"name,omitempty"`
	Particles   []ParticleConfig `yaml:"particles"`
	Constraints [][2]int         `yaml:"constraints"`
	Solver      *SolverConfig    `yaml:"solver,omitempty"`
}

type ParticleConfig struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Mass  float64 `yaml:"mass"`
	Fixed bool    `yaml:"fixed,omitempty"`
}

func DefaultSolver() SolverConfig {
	return SolverConfig{
		Gravity:    Vec{0, DefaultGravityY},
		Dt:         DefaultDt,
		Iterations: DefaultIterations,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Name:   "single",
		Solver: DefaultSolver(),
		Chains: []ChainConfig{
			{Origin: Vec{200, 250}, Count: 5, Spacing: DefaultSpacing, Mass: DefaultMass, PinFirst: true},
		},
		Frames: DefaultFrames,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	// chains from the file replace the default chain rather than merge into it
	cfg.Chains = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s SolverConfig) PBD() pbd.Config {
	return pbd.Config{
		Gravity:    s.Gravity.Vec2(),
		Dt:         s.Dt,
		Iterations: s.Iterations,
		Shadows:    s.Shadows,
	}
}

// SolverFor returns the override if set, else the scene-wide solver settings.
func (c *Config) SolverFor(override *SolverConfig) SolverConfig {
	if override != nil {
		return *override
	}
	return c.Solver
}

// NumBodies is the number of independent solvers the config describes.
func (c *Config) NumBodies() int { return len(c.Chains) + len(c.Bodies) }

// Clone returns a deep copy so presets can be tweaked by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Chains = make([]ChainConfig, len(c.Chains))
	for i, ch := range c.Chains {
		if ch.Solver != nil {
			s := *ch.Solver
			ch.Solver = &s
		}
		out.Chains[i] = ch
	}
	out.Bodies = make([]BodyConfig, len(c.Bodies))
	for i, b := range c.Bodies {
		b.Particles = append([]ParticleConfig(nil), b.Particles...)
		b.Constraints = append([][2]int(nil), b.Constraints...)
		if b.Solver != nil {
			s := *b.Solver
			b.Solver = &s
		}
		out.Bodies[i] = b
	}
	return &out
}

// Validate checks what can be checked without building solvers. Constraint
// indices are validated by the solver itself when the scene is built.
func (c *Config) Validate() error {
	if c.NumBodies() == 0 {
		return fmt.Errorf("%w: no chains or bodies", ErrInvalidConfig)
	}
	if c.Frames < 0 {
		return fmt.Errorf("%w: frames must be non-negative, got %d", ErrInvalidConfig, c.Frames)
	}
	if err := c.Solver.PBD().Validate(); err != nil {
		return fmt.Errorf("%w: solver: %v", ErrInvalidConfig, err)
	}
	for i, ch := range c.Chains {
		if ch.Count < 1 {
			return fmt.Errorf("%w: chain %d: count must be positive", ErrInvalidConfig, i)
		}
		if ch.Solver != nil {
			if err := ch.Solver.PBD().Validate(); err != nil {
				return fmt.Errorf("%w: chain %d: %v", ErrInvalidConfig, i, err)
			}
		}
	}
	for i, b := range c.Bodies {
		if len(b.Particles) == 0 {
			return fmt.Errorf("%w: body %d: no particles", ErrInvalidConfig, i)
		}
		if b.Solver != nil {
			if err := b.Solver.PBD().Validate(); err != nil {
				return fmt.Errorf("%w: body %d: %v", ErrInvalidConfig, i, err)
			}
		}
	}
	return nil
}

// Particles expands a chain into its particle list.
func (ch ChainConfig) Particles() []ParticleConfig {
	spacing := ch.Spacing
	if spacing == 0 {
		spacing = DefaultSpacing
	}
	base := ch.Mass
	if base == 0 {
		base = DefaultMass
	}
	out := make([]ParticleConfig, ch.Count)
	for i := range out {
		mass := base
		if i == ch.Count-1 && ch.TailMass > 0 {
			mass = ch.TailMass
		}
		out[i] = ParticleConfig{
			X:     ch.Origin.X + float64(i)*spacing,
			Y:     ch.Origin.Y,
			Mass:  mass,
			Fixed: (i == 0 && ch.PinFirst) || (i == ch.Count-1 && ch.PinLast),
		}
	}
	return out
}

// Links returns the consecutive pairs of a chain.
func (ch ChainConfig) Links() [][2]int {
	if ch.Count < 2 {
		return nil
	}
	out := make([][2]int, 0, ch.Count-1)
	for i := 1; i < ch.Count; i++ {
		out = append(out, [2]int{i - 1, i})
	}
	return out
}

// Tunable lists the names SetParam accepts.
var Tunable = []string{"iterations", "dt", "gravity_x", "gravity_y", "frames"}

// SetParam sets a scene-wide numeric setting by name. Integer settings
// truncate v. Per-body solver overrides are left alone.
func (c *Config) SetParam(name string, v float64) error {
	switch name {
	case "iterations":
		c.Solver.Iterations = int(v)
	case "dt":
		c.Solver.Dt = v
	case "gravity_x":
		c.Solver.Gravity.X = v
	case "gravity_y":
		c.Solver.Gravity.Y = v
	case "frames":
		c.Frames = int(v)
	default:
		return fmt.Errorf("%w: unknown parameter %q (tunable: %v)", ErrInvalidConfig, name, Tunable)
	}
	return nil
}
