package pbd

import (
	"fmt"
	"math"
)

const (
	// GravityScale multiplies the gravity impulse of each frame. It was tuned
	// against a 1/60s reference frame and is applied as-is for every step size.
	GravityScale = 50.0

	// Epsilon is the threshold below which a constraint length or a combined
	// inverse mass is treated as zero.
	Epsilon = 1e-6

	DefaultIterations = 5
	DefaultDt         = 1.0 / 60.0
)

// Config holds the construction-time settings of a solver.
type Config struct {
	Gravity    Vec2
	Dt         float64
	Iterations int
	// Shadows keeps a view of every particle's integrated, uncorrected position.
	Shadows bool
}

func DefaultConfig() Config {
	return Config{
		Gravity:    Vec2{0, 9.81},
		Dt:         DefaultDt,
		Iterations: DefaultIterations,
	}
}

func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: iterations must be non-negative, got %d", ErrInvalidConfig, c.Iterations)
	}
	if !c.Gravity.IsFinite() {
		return fmt.Errorf("%w: gravity must be finite", ErrInvalidConfig)
	}
	return nil
}

type Solver struct {
	cfg         Config
	particles   []Particle
	constraints []DistanceConstraint
	// shadow[i] mirrors particles[i]; nil when shadows are disabled.
	shadow []Vec2
}

func New(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Solver{
		cfg:         cfg,
		particles:   make([]Particle, 0),
		constraints: make([]DistanceConstraint, 0),
	}
	if cfg.Shadows {
		s.shadow = make([]Vec2, 0)
	}
	return s, nil
}

func (s *Solver) Config() Config { return s.cfg }

// Len returns the number of particles.
func (s *Solver) Len() int { return len(s.particles) }

func (s *Solver) NumConstraints() int { return len(s.constraints) }

func (s *Solver) ShadowsEnabled() bool { return s.shadow != nil }

// AddParticle appends a particle and returns its index. A non-positive mass
// yields an immovable particle, the same as fixed.
func (s *Solver) AddParticle(pos Vec2, mass float64, fixed bool) int {
	s.particles = append(s.particles, newParticle(pos, mass, fixed))
	if s.shadow != nil {
		s.shadow = append(s.shadow, pos)
	}
	return len(s.particles) - 1
}

// AddDistanceConstraint links particles a and b at their current distance
// and returns the constraint index. Nothing is appended on error.
func (s *Solver) AddDistanceConstraint(a, b int) (int, error) {
	if err := s.checkIndex("add constraint", a); err != nil {
		return -1, err
	}
	if err := s.checkIndex("add constraint", b); err != nil {
		return -1, err
	}
	if a == b {
		return -1, &IndexError{Op: "add constraint", Index: a, Len: len(s.particles), Wrapped: ErrSameParticle}
	}

	s.constraints = append(s.constraints, DistanceConstraint{
		A:          a,
		B:          b,
		RestLength: s.particles[a].Position.Dist(s.particles[b].Position),
	})
	return len(s.constraints) - 1, nil
}

// MoveParticle teleports particle i. Its previous position follows so the
// move does not turn into velocity; rest lengths are left untouched.
func (s *Solver) MoveParticle(i int, pos Vec2) error {
	if err := s.checkIndex("move particle", i); err != nil {
		return err
	}
	p := &s.particles[i]
	p.Position = pos
	p.PreviousPosition = pos
	if s.shadow != nil {
		s.shadow[i] = pos
	}
	return nil
}

func (s *Solver) checkIndex(op string, i int) error {
	if i < 0 || i >= len(s.particles) {
		return &IndexError{Op: op, Index: i, Len: len(s.particles), Wrapped: ErrInvalidIndex}
	}
	return nil
}

// Simulate advances the solver by one configured time step.
func (s *Solver) Simulate() {
	s.integrate()
	if s.shadow != nil {
		s.projectShadows()
	}
	for iter := 0; iter < s.cfg.Iterations; iter++ {
		s.relax()
	}
	s.reconcileVelocities()
}

func (s *Solver) integrate() {
	dt := s.cfg.Dt
	impulse := s.cfg.Gravity.Scale(dt * GravityScale)
	for i := range s.particles {
		p := &s.particles[i]
		if p.Fixed {
			continue
		}
		p.Velocity = p.Velocity.Add(impulse)
		p.PreviousPosition = p.Position
		p.Position = p.Position.Add(p.Velocity.Scale(dt))
	}
}

// projectShadows copies the integrated positions before any correction.
func (s *Solver) projectShadows() {
	for i := range s.particles {
		s.shadow[i] = s.particles[i].Position
	}
}

// relax runs one Gauss–Seidel pass. Later constraints see the corrections
// made by earlier ones in the same pass.
func (s *Solver) relax() {
	for _, c := range s.constraints {
		pa := &s.particles[c.A]
		pb := &s.particles[c.B]
		if pa.Fixed && pb.Fixed {
			continue
		}

		delta := pa.Position.Sub(pb.Position)
		length := delta.Len()
		stretch := length - c.RestLength

		var dir Vec2
		if length > Epsilon {
			dir = delta.Scale(1 / length)
		}

		w := pa.InverseMass + pb.InverseMass
		if w < Epsilon {
			continue
		}
		correction := dir.Scale(stretch / w)

		if !pa.Fixed {
			pa.Position = pa.Position.Sub(correction.Scale(pa.InverseMass))
		}
		if !pb.Fixed {
			pb.Position = pb.Position.Add(correction.Scale(pb.InverseMass))
		}
	}
}

func (s *Solver) reconcileVelocities() {
	dt := s.cfg.Dt
	for i := range s.particles {
		p := &s.particles[i]
		if p.Fixed {
			continue
		}
		p.Velocity = Vec2{
			X: (p.Position.X - p.PreviousPosition.X) / dt,
			Y: (p.Position.Y - p.PreviousPosition.Y) / dt,
		}
	}
}
