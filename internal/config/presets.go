package config

import "sort"

var Presets = map[string]*Config{
	// the three chains of the original demo window
	"demo": {
		Name:   "demo",
		Solver: DefaultSolver(),
		Chains: []ChainConfig{
			{Name: "left", Origin: Vec{200, 250}, Count: 5, Spacing: 50, Mass: 1, PinFirst: true},
			{Name: "middle", Origin: Vec{5*50 + 200, 250}, Count: 2, Spacing: 50, Mass: 1, PinFirst: true},
			{Name: "right", Origin: Vec{(5+4)*50 + 200, 250}, Count: 5, Spacing: 50, Mass: 1, PinFirst: true},
		},
		Frames:   DefaultFrames,
		Parallel: true,
	},
	"single": {
		Name:   "single",
		Solver: DefaultSolver(),
		Chains: []ChainConfig{
			{Name: "chain", Origin: Vec{200, 250}, Count: 5, Spacing: 50, Mass: 1, PinFirst: true},
		},
		Frames: 300,
	},
	"weighted": {
		Name:   "weighted",
		Solver: DefaultSolver(),
		Chains: []ChainConfig{
			{Name: "light", Origin: Vec{150, 200}, Count: 6, Spacing: 40, Mass: 1, PinFirst: true},
			{Name: "heavy_tail", Origin: Vec{450, 200}, Count: 6, Spacing: 40, Mass: 1, TailMass: 10, PinFirst: true},
		},
		Frames: DefaultFrames,
	},
	"bridge": {
		Name: "bridge",
		Solver: SolverConfig{
			Gravity:    Vec{0, DefaultGravityY},
			Dt:         DefaultDt,
			Iterations: 20,
		},
		Chains: []ChainConfig{
			{Name: "deck", Origin: Vec{100, 200}, Count: 12, Spacing: 50, Mass: 1, PinFirst: true, PinLast: true},
		},
		Frames: DefaultFrames,
	},
	"shadow": {
		Name: "shadow",
		Solver: SolverConfig{
			Gravity:    Vec{0, DefaultGravityY},
			Dt:         DefaultDt,
			Iterations: DefaultIterations,
			Shadows:    true,
		},
		Chains: []ChainConfig{
			{Name: "chain", Origin: Vec{200, 250}, Count: 5, Spacing: 50, Mass: 1, PinFirst: true},
		},
		Bodies: []BodyConfig{
			{
				Name: "triangle",
				Particles: []ParticleConfig{
					{X: 600, Y: 150, Mass: 1, Fixed: true},
					{X: 650, Y: 150, Mass: 1},
					{X: 625, Y: 193.3, Mass: 2},
				},
				Constraints: [][2]int{{0, 1}, {1, 2}, {2, 0}},
			},
		},
		Frames: DefaultFrames,
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
