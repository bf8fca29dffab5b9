package pbd

import (
	"errors"
	"math"
	"testing"
)

func zeroGravity(iterations int) Config {
	cfg := DefaultConfig()
	cfg.Gravity = Vec2{}
	cfg.Iterations = iterations
	return cfg
}

func mustSolver(t *testing.T, cfg Config) *Solver {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new solver: %v", err)
	}
	return s
}

func mustConstraint(t *testing.T, s *Solver, a, b int) {
	t.Helper()
	if _, err := s.AddDistanceConstraint(a, b); err != nil {
		t.Fatalf("add constraint %d-%d: %v", a, b, err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Iterations: 5}},
		{"negative dt", Config{Dt: -0.01, Iterations: 5}},
		{"NaN dt", Config{Dt: math.NaN(), Iterations: 5}},
		{"negative iterations", Config{Dt: DefaultDt, Iterations: -1}},
		{"infinite gravity", Config{Dt: DefaultDt, Iterations: 5, Gravity: Vec2{0, math.Inf(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestAddParticle_InverseMass(t *testing.T) {
	tests := []struct {
		name      string
		mass      float64
		fixed     bool
		wantInv   float64
		wantFixed bool
	}{
		{"unit mass", 1, false, 1, false},
		{"heavy", 4, false, 0.25, false},
		{"pinned", 2, true, 0, true},
		{"zero mass", 0, false, 0, true},
		{"negative mass", -3, false, 0, true},
		{"infinite mass", math.Inf(1), false, 0, true},
	}

	s := mustSolver(t, DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := s.AddParticle(Vec2{1, 2}, tt.mass, tt.fixed)
			p, err := s.Particle(idx)
			if err != nil {
				t.Fatal(err)
			}
			if p.InverseMass != tt.wantInv {
				t.Errorf("InverseMass = %v, want %v", p.InverseMass, tt.wantInv)
			}
			if p.Fixed != tt.wantFixed {
				t.Errorf("Fixed = %v, want %v", p.Fixed, tt.wantFixed)
			}
			if !p.Fixed && p.Mass() != tt.mass {
				t.Errorf("Mass() = %v, want %v", p.Mass(), tt.mass)
			}
			if p.Fixed != (p.InverseMass == 0) {
				t.Errorf("fixed flag and inverse mass disagree: %+v", p)
			}
			if p.PreviousPosition != p.Position || p.Velocity != (Vec2{}) {
				t.Errorf("unexpected initial state: %+v", p)
			}
		})
	}

	if s.Len() != len(tests) {
		t.Errorf("expected %d particles, got %d", len(tests), s.Len())
	}
}

func TestAddDistanceConstraint_Errors(t *testing.T) {
	s := mustSolver(t, DefaultConfig())
	s.AddParticle(Vec2{0, 0}, 1, true)
	s.AddParticle(Vec2{3, 4}, 1, false)

	tests := []struct {
		name string
		a, b int
		want error
	}{
		{"negative index", -1, 1, ErrInvalidIndex},
		{"index past end", 0, 2, ErrInvalidIndex},
		{"same particle", 1, 1, ErrSameParticle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := s.AddDistanceConstraint(tt.a, tt.b)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var ie *IndexError
			if !errors.As(err, &ie) {
				t.Errorf("expected *IndexError, got %T", err)
			}
			if idx != -1 {
				t.Errorf("expected index -1, got %d", idx)
			}
		})
	}

	if s.NumConstraints() != 0 {
		t.Errorf("failed calls must not append, got %d constraints", s.NumConstraints())
	}

	idx, err := s.AddDistanceConstraint(0, 1)
	if err != nil {
		t.Fatalf("valid constraint rejected: %v", err)
	}
	c, ok := s.Constraint(idx)
	if !ok || c.RestLength != 5 {
		t.Errorf("expected rest length 5, got %+v", c)
	}
}

func TestRestLengthImmutable(t *testing.T) {
	s := mustSolver(t, zeroGravity(5))
	a := s.AddParticle(Vec2{0, 0}, 1, true)
	b := s.AddParticle(Vec2{10, 0}, 1, false)
	mustConstraint(t, s, a, b)

	if err := s.MoveParticle(b, Vec2{20, 0}); err != nil {
		t.Fatal(err)
	}
	c, _ := s.Constraint(0)
	if c.RestLength != 10 {
		t.Errorf("rest length changed after move: %v", c.RestLength)
	}
	if err := s.MoveParticle(7, Vec2{}); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestRestLengthPreservation(t *testing.T) {
	s := mustSolver(t, zeroGravity(5))
	a := s.AddParticle(Vec2{0, 0}, 1, true)
	b := s.AddParticle(Vec2{10, 0}, 1, false)
	mustConstraint(t, s, a, b)

	if err := s.MoveParticle(b, Vec2{13, 4}); err != nil {
		t.Fatal(err)
	}

	prevErr := math.Abs(constraintErr(t, s, 0))
	for frame := 0; frame < 120; frame++ {
		s.Simulate()
		e := math.Abs(constraintErr(t, s, 0))
		if e > prevErr+1e-9 {
			t.Fatalf("frame %d: error grew from %v to %v", frame, prevErr, e)
		}
		if frame > 0 && e > 1e-3 {
			t.Fatalf("frame %d: distance off rest length by %v", frame, e)
		}
		prevErr = e
	}
}

func TestMassWeighting(t *testing.T) {
	s := mustSolver(t, zeroGravity(1))
	a := s.AddParticle(Vec2{0, 0}, 1, false)
	b := s.AddParticle(Vec2{10, 0}, 3, false)
	mustConstraint(t, s, a, b)
	if err := s.MoveParticle(b, Vec2{12, 0}); err != nil {
		t.Fatal(err)
	}

	// stretched by 2: w1 = 1, w2 = 1/3
	s.Simulate()

	pa, _ := s.Particle(a)
	pb, _ := s.Particle(b)
	if math.Abs(pa.Position.X-1.5) > 1e-12 || pa.Position.Y != 0 {
		t.Errorf("particle a at %+v, want (1.5, 0)", pa.Position)
	}
	if math.Abs(pb.Position.X-11.5) > 1e-12 || pb.Position.Y != 0 {
		t.Errorf("particle b at %+v, want (11.5, 0)", pb.Position)
	}
	if math.Abs(constraintErr(t, s, 0)) > 1e-12 {
		t.Errorf("constraint not satisfied after one pass: %v", constraintErr(t, s, 0))
	}
}

func TestFixedParticlesNeverMove(t *testing.T) {
	s := mustSolver(t, DefaultConfig())
	pinned := s.AddParticle(Vec2{200, 250}, 1, true)
	massless := s.AddParticle(Vec2{100, 250}, 0, false)
	free := s.AddParticle(Vec2{250, 250}, 1, false)
	mustConstraint(t, s, pinned, free)
	mustConstraint(t, s, massless, free)
	mustConstraint(t, s, pinned, massless)

	before := []Particle{}
	for _, i := range []int{pinned, massless} {
		p, _ := s.Particle(i)
		before = append(before, p)
	}

	for frame := 0; frame < 500; frame++ {
		s.Simulate()
	}

	for k, i := range []int{pinned, massless} {
		p, _ := s.Particle(i)
		if math.Float64bits(p.Position.X) != math.Float64bits(before[k].Position.X) ||
			math.Float64bits(p.Position.Y) != math.Float64bits(before[k].Position.Y) {
			t.Errorf("particle %d moved from %+v to %+v", i, before[k].Position, p.Position)
		}
		if p.Velocity != (Vec2{}) {
			t.Errorf("particle %d gained velocity %+v", i, p.Velocity)
		}
	}
}

func TestDegenerateConstraints(t *testing.T) {
	t.Run("coincident free particles", func(t *testing.T) {
		s := mustSolver(t, DefaultConfig())
		a := s.AddParticle(Vec2{5, 5}, 1, false)
		b := s.AddParticle(Vec2{5, 5}, 1, false)
		mustConstraint(t, s, a, b)

		for frame := 0; frame < 200; frame++ {
			s.Simulate()
			pa, _ := s.Particle(a)
			pb, _ := s.Particle(b)
			if !pa.Position.IsFinite() || !pb.Position.IsFinite() || !pa.Velocity.IsFinite() {
				t.Fatalf("frame %d: non-finite state %+v %+v", frame, pa, pb)
			}
			if pa.Position != pb.Position {
				t.Fatalf("frame %d: coincident particles separated: %+v %+v", frame, pa.Position, pb.Position)
			}
		}
	})

	t.Run("coincident pinned and free without gravity", func(t *testing.T) {
		s := mustSolver(t, zeroGravity(5))
		a := s.AddParticle(Vec2{1, 1}, 1, true)
		b := s.AddParticle(Vec2{1, 1}, 1, false)
		mustConstraint(t, s, a, b)

		for frame := 0; frame < 50; frame++ {
			s.Simulate()
		}
		pb, _ := s.Particle(b)
		if pb.Position != (Vec2{1, 1}) || pb.Velocity != (Vec2{}) {
			t.Errorf("degenerate constraint moved particle: %+v", pb)
		}
	})

	t.Run("negligible combined mobility", func(t *testing.T) {
		s := mustSolver(t, zeroGravity(5))
		a := s.AddParticle(Vec2{0, 0}, 1e7, false)
		b := s.AddParticle(Vec2{10, 0}, 1e7, false)
		mustConstraint(t, s, a, b)
		if err := s.MoveParticle(b, Vec2{20, 0}); err != nil {
			t.Fatal(err)
		}

		s.Simulate()
		pa, _ := s.Particle(a)
		pb, _ := s.Particle(b)
		if pa.Position != (Vec2{0, 0}) || pb.Position != (Vec2{20, 0}) {
			t.Errorf("expected skip, got %+v %+v", pa.Position, pb.Position)
		}
	})
}

func TestVelocityConsistency(t *testing.T) {
	s := mustSolver(t, DefaultConfig())
	prev := -1
	for i := 0; i < 6; i++ {
		idx := s.AddParticle(Vec2{X: 100 + float64(i)*30, Y: 100}, float64(i%3+1), i == 0)
		if prev >= 0 {
			mustConstraint(t, s, prev, idx)
		}
		prev = idx
	}

	dt := s.Config().Dt
	for frame := 0; frame < 30; frame++ {
		s.Simulate()
		for i := 0; i < s.Len(); i++ {
			p, _ := s.Particle(i)
			if p.Fixed {
				continue
			}
			want := Vec2{
				X: (p.Position.X - p.PreviousPosition.X) / dt,
				Y: (p.Position.Y - p.PreviousPosition.Y) / dt,
			}
			if p.Velocity != want {
				t.Fatalf("frame %d particle %d: velocity %+v, want %+v", frame, i, p.Velocity, want)
			}
		}
	}
}

func TestIntegrationStep(t *testing.T) {
	s := mustSolver(t, DefaultConfig())
	idx := s.AddParticle(Vec2{0, 0}, 1, false)

	s.Simulate()

	cfg := s.Config()
	v := cfg.Gravity.Scale(cfg.Dt * GravityScale)
	want := v.Scale(cfg.Dt)
	p, _ := s.Particle(idx)
	if p.Position != want {
		t.Errorf("position %+v, want %+v", p.Position, want)
	}
	if p.PreviousPosition != (Vec2{}) {
		t.Errorf("previous position %+v, want origin", p.PreviousPosition)
	}
}

func TestZeroIterationsSkipsRelaxation(t *testing.T) {
	s := mustSolver(t, zeroGravity(0))
	a := s.AddParticle(Vec2{0, 0}, 1, true)
	b := s.AddParticle(Vec2{10, 0}, 1, false)
	mustConstraint(t, s, a, b)
	if err := s.MoveParticle(b, Vec2{15, 0}); err != nil {
		t.Fatal(err)
	}

	s.Simulate()
	if got := constraintErr(t, s, 0); got != 5 {
		t.Errorf("expected untouched stretch of 5, got %v", got)
	}
}

func TestShadows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shadows = true
	s := mustSolver(t, cfg)
	a := s.AddParticle(Vec2{200, 250}, 1, true)
	b := s.AddParticle(Vec2{250, 250}, 1, false)
	mustConstraint(t, s, a, b)

	shadows := s.Shadows(nil)
	if len(shadows) != 2 || shadows[1] != (Vec2{250, 250}) {
		t.Fatalf("shadows not initialised at particle positions: %v", shadows)
	}

	s.Simulate()

	v := cfg.Gravity.Scale(cfg.Dt * GravityScale)
	integrated := Vec2{250, 250}.Add(v.Scale(cfg.Dt))
	shadows = s.Shadows(shadows)
	if shadows[1] != integrated {
		t.Errorf("shadow %+v, want integrated position %+v", shadows[1], integrated)
	}
	if shadows[0] != (Vec2{200, 250}) {
		t.Errorf("pinned shadow moved: %+v", shadows[0])
	}

	p, _ := s.Particle(b)
	if p.Position == shadows[1] {
		t.Error("constraint correction leaked into shadow")
	}

	plain := mustSolver(t, DefaultConfig())
	plain.AddParticle(Vec2{}, 1, false)
	if plain.ShadowsEnabled() || plain.Shadows(nil) != nil {
		t.Error("shadows reported without being enabled")
	}
}

func constraintErr(t *testing.T, s *Solver, i int) float64 {
	t.Helper()
	e, ok := s.ConstraintError(i)
	if !ok {
		t.Fatalf("constraint %d out of range", i)
	}
	return e
}

func TestConstraintError_OutOfRange(t *testing.T) {
	s := mustSolver(t, DefaultConfig())
	a := s.AddParticle(Vec2{0, 0}, 1, true)
	b := s.AddParticle(Vec2{10, 0}, 1, false)
	mustConstraint(t, s, a, b)

	for _, i := range []int{-1, 1, 100} {
		if e, ok := s.ConstraintError(i); ok || e != 0 {
			t.Errorf("ConstraintError(%d) = %v, %v; want 0, false", i, e, ok)
		}
	}
	if e, ok := s.ConstraintError(0); !ok || e != 0 {
		t.Errorf("ConstraintError(0) = %v, %v; want 0, true", e, ok)
	}
}

func TestHangingChain(t *testing.T) {
	s := mustSolver(t, DefaultConfig())
	for i := 0; i < 5; i++ {
		idx := s.AddParticle(Vec2{X: 200 + float64(i)*50, Y: 250}, 1, i == 0)
		if i > 0 {
			mustConstraint(t, s, idx-1, idx)
		}
	}

	for frame := 0; frame < 300; frame++ {
		s.Simulate()
	}

	positions := s.Positions(nil)
	for i := 1; i < len(positions); i++ {
		d := positions[i].Dist(positions[i-1])
		// 1e-2 is relative to the 50 unit rest length; five passes leave
		// about 0.11 on the top link, so the absolute bound catches a
		// weaker relaxation.
		if math.Abs(d-50)/50 > 1e-2 {
			t.Errorf("link %d: length %.4f, want 50 within 1%%", i, d)
		}
		if math.Abs(d-50) > 0.15 {
			t.Errorf("link %d: length %.4f, want 50 within 0.15", i, d)
		}
	}
	if positions[0] != (Vec2{200, 250}) {
		t.Errorf("anchor moved to %+v", positions[0])
	}
	if last := positions[len(positions)-1]; last.Y < 250+100 {
		t.Errorf("chain did not fall: tail at %+v", last)
	}
}

func BenchmarkSimulate(b *testing.B) {
	s, _ := New(DefaultConfig())
	for i := 0; i < 64; i++ {
		idx := s.AddParticle(Vec2{X: float64(i) * 10, Y: 0}, 1, i == 0)
		if i > 0 {
			s.AddDistanceConstraint(idx-1, idx)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Simulate()
	}
}
