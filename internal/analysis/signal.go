package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pbdsim/internal/metrics"
	"github.com/san-kum/pbdsim/internal/sim"
)

var ErrTooShort = errors.New("analysis: series too short")

// DominantFrequency returns the strongest non-zero frequency in Hz of a
// series sampled every dt seconds.
func DominantFrequency(series []float64, dt float64) (float64, error) {
	if len(series) < 4 {
		return 0, fmt.Errorf("%w: %d samples", ErrTooShort, len(series))
	}
	if !(dt > 0) {
		return 0, fmt.Errorf("analysis: sample interval must be positive, got %v", dt)
	}
	ps := PowerSpectrum(series)
	best, bestMag := 0, 0.0
	for k := 1; k < len(ps); k++ {
		if ps[k] > bestMag {
			best, bestMag = k, ps[k]
		}
	}
	if best == 0 {
		return 0, nil
	}
	n := 2 * len(ps)
	return float64(best) / (float64(n) * dt), nil
}

// SettlingIndex is the first index from which every value stays within
// tol, or -1 if the series never settles.
func SettlingIndex(series []float64, tol float64) int {
	idx := -1
	for i := len(series) - 1; i >= 0; i-- {
		if math.Abs(series[i]) > tol {
			break
		}
		idx = i
	}
	return idx
}

// Coordinate extracts one axis ('x' or 'y') of particle p in body b.
func Coordinate(frames []sim.Frame, b, p int, axis byte) ([]float64, error) {
	out := make([]float64, len(frames))
	for i, f := range frames {
		if b < 0 || b >= len(f.Bodies) || p < 0 || p >= len(f.Bodies[b].Positions) {
			return nil, fmt.Errorf("analysis: no particle %d in body %d at step %d", p, b, f.Step)
		}
		pos := f.Bodies[b].Positions[p]
		switch axis {
		case 'x':
			out[i] = pos.X
		case 'y':
			out[i] = pos.Y
		default:
			return nil, fmt.Errorf("analysis: unknown axis %q", axis)
		}
	}
	return out, nil
}

// ConstraintErrors is the worst constraint error of every frame.
func ConstraintErrors(frames []sim.Frame) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = metrics.MaxConstraintError(f)
	}
	return out
}

// SampleInterval is the time between the first two recorded frames.
// Pass frames through [Uniform] first when the spacing may vary.
func SampleInterval(frames []sim.Frame) float64 {
	if len(frames) < 2 {
		return 0
	}
	return frames[1].Time - frames[0].Time
}

// Uniform returns the leading frames that share the first interval. A run
// always records its last frame, which is off the stride when the frame
// count is not a multiple of it; that frame is dropped here.
func Uniform(frames []sim.Frame) []sim.Frame {
	dt := SampleInterval(frames)
	if dt <= 0 {
		return frames
	}
	for i := 2; i < len(frames); i++ {
		if math.Abs(frames[i].Time-frames[i-1].Time-dt) > 1e-9*math.Max(1, dt) {
			return frames[:i]
		}
	}
	return frames
}
