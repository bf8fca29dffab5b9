// Package scene groups independent PBD solvers, one per chain or body of a
// [config.Config], and exposes them to the frame runner as a [sim.World].
package scene

import (
	"fmt"
	"sync"

	"github.com/san-kum/pbdsim/internal/config"
	"github.com/san-kum/pbdsim/internal/pbd"
	"github.com/san-kum/pbdsim/internal/sim"
)

type body struct {
	name        string
	solver      *pbd.Solver
	constraints []pbd.DistanceConstraint
}

// Scene advances its solvers in lock-step. Step and Capture are serialised
// by an RWMutex, so a renderer never reads a half-advanced frame.
type Scene struct {
	mu     sync.RWMutex
	cfg    *config.Config
	bodies []*body
}

func New(cfg *config.Config) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scene{cfg: cfg}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scene) build() error {
	bodies := make([]*body, 0, s.cfg.NumBodies())

	for i, ch := range s.cfg.Chains {
		name := ch.Name
		if name == "" {
			name = fmt.Sprintf("chain-%d", i)
		}
		b, err := newBody(name, s.cfg.SolverFor(ch.Solver), ch.Particles(), ch.Links())
		if err != nil {
			return err
		}
		bodies = append(bodies, b)
	}

	for i, bc := range s.cfg.Bodies {
		name := bc.Name
		if name == "" {
			name = fmt.Sprintf("body-%d", i)
		}
		b, err := newBody(name, s.cfg.SolverFor(bc.Solver), bc.Particles, bc.Constraints)
		if err != nil {
			return err
		}
		bodies = append(bodies, b)
	}

	s.bodies = bodies
	return nil
}

func newBody(name string, sc config.SolverConfig, particles []config.ParticleConfig, links [][2]int) (*body, error) {
	solver, err := pbd.New(sc.PBD())
	if err != nil {
		return nil, fmt.Errorf("scene: %s: %w", name, err)
	}
	for _, p := range particles {
		solver.AddParticle(pbd.Vec2{X: p.X, Y: p.Y}, p.Mass, p.Fixed)
	}
	for _, l := range links {
		if _, err := solver.AddDistanceConstraint(l[0], l[1]); err != nil {
			return nil, fmt.Errorf("scene: %s: %w", name, err)
		}
	}
	return &body{name: name, solver: solver, constraints: solver.Constraints()}, nil
}

// Step advances every solver once. With Parallel set each solver runs on
// its own goroutine; solvers share nothing.
func (s *Scene) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Parallel || len(s.bodies) < 2 {
		for _, b := range s.bodies {
			b.solver.Simulate()
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(s.bodies))
	for _, b := range s.bodies {
		go func(b *body) {
			defer wg.Done()
			b.solver.Simulate()
		}(b)
	}
	wg.Wait()
}

// Capture copies the current state of every body.
func (s *Scene) Capture(step int, t float64) sim.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := sim.Frame{Step: step, Time: t, Bodies: make([]sim.Body, len(s.bodies))}
	for i, b := range s.bodies {
		n := b.solver.Len()
		inv := make([]float64, n)
		for j := 0; j < n; j++ {
			p, _ := b.solver.Particle(j)
			inv[j] = p.InverseMass
		}
		f.Bodies[i] = sim.Body{
			Name:        b.name,
			Positions:   b.solver.Positions(make([]pbd.Vec2, 0, n)),
			Velocities:  b.solver.Velocities(make([]pbd.Vec2, 0, n)),
			Shadows:     b.solver.Shadows(nil),
			Fixed:       b.solver.FixedFlags(make([]bool, 0, n)),
			InverseMass: inv,
			Constraints: b.constraints,
		}
	}
	return f
}

// Reset rebuilds every solver from the configuration.
func (s *Scene) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.build()
}

// Dt is the scene-wide step used to timestamp frames. Bodies with their own
// solver override still advance by their own step.
func (s *Scene) Dt() float64 { return s.cfg.Solver.Dt }

func (s *Scene) Config() *config.Config { return s.cfg }

func (s *Scene) NumBodies() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bodies)
}

// Solver returns the solver of body i. Callers must not step it while the
// scene is in use.
func (s *Scene) Solver(i int) *pbd.Solver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.bodies) {
		return nil
	}
	return s.bodies[i].solver
}
