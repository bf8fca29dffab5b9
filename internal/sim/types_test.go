package sim

import (
	"math"
	"testing"

	"github.com/san-kum/pbdsim/internal/pbd"
)

func TestFrame_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		pos   pbd.Vec2
		vel   pbd.Vec2
		valid bool
	}{
		{"zeros", pbd.Vec2{}, pbd.Vec2{}, true},
		{"normal", pbd.Vec2{X: 1, Y: 2}, pbd.Vec2{X: 3}, true},
		{"NaN position", pbd.Vec2{X: math.NaN()}, pbd.Vec2{}, false},
		{"+Inf position", pbd.Vec2{Y: math.Inf(1)}, pbd.Vec2{}, false},
		{"-Inf velocity", pbd.Vec2{}, pbd.Vec2{X: math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Frame{Bodies: []Body{{Positions: []pbd.Vec2{tt.pos}, Velocities: []pbd.Vec2{tt.vel}}}}
			if got := f.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestBody_ConstraintError(t *testing.T) {
	b := Body{
		Positions:   []pbd.Vec2{{X: 0, Y: 0}, {X: 3, Y: 4}},
		Constraints: []pbd.DistanceConstraint{{A: 0, B: 1, RestLength: 4}},
	}
	if got := b.ConstraintError(0); math.Abs(got-1) > 1e-12 {
		t.Errorf("ConstraintError = %v, want 1", got)
	}
}

func TestFrame_NumParticles(t *testing.T) {
	f := Frame{Bodies: []Body{
		{Positions: make([]pbd.Vec2, 5)},
		{Positions: make([]pbd.Vec2, 2)},
	}}
	if n := f.NumParticles(); n != 7 {
		t.Errorf("NumParticles = %d, want 7", n)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Frames <= 0 {
		t.Error("DefaultConfig has invalid Frames")
	}
	if cfg.Stride != 1 {
		t.Error("DefaultConfig should record every frame")
	}
	if !cfg.ValidateState {
		t.Error("DefaultConfig should validate state")
	}
}

func TestSimError(t *testing.T) {
	err := SimError{Time: 1.5, Step: 150, Wrapped: ErrInvalidState}
	expected := "step 150 (t=1.5000): sim: invalid state (NaN or Inf detected)"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
}
