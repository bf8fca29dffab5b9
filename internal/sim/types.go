package sim

import "github.com/san-kum/pbdsim/internal/pbd"

// Body is the read-only view of one solver at a frame boundary.
type Body struct {
	Name        string
	Positions   []pbd.Vec2
	Velocities  []pbd.Vec2
	Shadows     []pbd.Vec2
	Fixed       []bool
	InverseMass []float64
	// Constraints is shared between frames of the same body; do not modify.
	Constraints []pbd.DistanceConstraint
}

// ConstraintError returns current length minus rest length of constraint i.
func (b Body) ConstraintError(i int) float64 {
	c := b.Constraints[i]
	return b.Positions[c.A].Dist(b.Positions[c.B]) - c.RestLength
}

func (b Body) IsValid() bool {
	for i := range b.Positions {
		if !b.Positions[i].IsFinite() {
			return false
		}
	}
	for i := range b.Velocities {
		if !b.Velocities[i].IsFinite() {
			return false
		}
	}
	return true
}

type Frame struct {
	Step   int
	Time   float64
	Bodies []Body
}

func (f Frame) IsValid() bool {
	for _, b := range f.Bodies {
		if !b.IsValid() {
			return false
		}
	}
	return true
}

func (f Frame) NumParticles() int {
	n := 0
	for _, b := range f.Bodies {
		n += len(b.Positions)
	}
	return n
}

// World is anything that advances by one fixed step and can be captured.
type World interface {
	Step()
	Capture(step int, t float64) Frame
	Dt() float64
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnFrame(f Frame)
}

type Config struct {
	Frames int
	// Stride records every Stride-th frame; the last frame is always kept.
	Stride        int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Frames:        600,
		Stride:        1,
		ValidateState: true,
	}
}

type Result struct {
	Frames     []Frame
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

// Final returns the last recorded frame.
func (r *Result) Final() (Frame, bool) {
	if len(r.Frames) == 0 {
		return Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}
