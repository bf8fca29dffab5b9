// Package metrics summarises PBD runs frame by frame.
package metrics

import "github.com/san-kum/pbdsim/internal/sim"

// Default returns the metrics every run records.
func Default() []sim.Metric {
	return []sim.Metric{
		NewConstraintError(),
		NewPeakConstraintError(),
		NewKineticEnergy(),
		NewStability(),
		NewShadowLag(),
	}
}
