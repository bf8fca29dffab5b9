package metrics

import (
	"math"

	"github.com/san-kum/pbdsim/internal/sim"
)

// ConstraintError reports the largest |length - rest| of the latest frame.
type ConstraintError struct {
	name string
	last float64
}

func NewConstraintError() *ConstraintError {
	return &ConstraintError{name: "constraint_error"}
}

func (c *ConstraintError) Name() string        { return c.name }
func (c *ConstraintError) Observe(f sim.Frame) { c.last = MaxConstraintError(f) }
func (c *ConstraintError) Value() float64      { return c.last }
func (c *ConstraintError) Reset()              { c.last = 0 }

// PeakConstraintError reports the largest |length - rest| seen over a run.
type PeakConstraintError struct {
	name string
	peak float64
}

func NewPeakConstraintError() *PeakConstraintError {
	return &PeakConstraintError{name: "peak_constraint_error"}
}

func (c *PeakConstraintError) Name() string { return c.name }

func (c *PeakConstraintError) Observe(f sim.Frame) {
	c.peak = math.Max(c.peak, MaxConstraintError(f))
}

func (c *PeakConstraintError) Value() float64 { return c.peak }
func (c *PeakConstraintError) Reset()         { c.peak = 0 }

func MaxConstraintError(f sim.Frame) float64 {
	worst := 0.0
	for _, b := range f.Bodies {
		for i := range b.Constraints {
			worst = math.Max(worst, math.Abs(b.ConstraintError(i)))
		}
	}
	return worst
}
