// Package analysis characterises recorded PBD runs.
//
//   - [DominantFrequency]: swing frequency of a particle coordinate via [PowerSpectrum]
//   - [SettlingIndex]: first frame after which a series stays within a tolerance
//   - [GeneratePhasePortrait]: coordinate against its finite-difference velocity
//
// # Swing frequency
//
// A pinned chain swings like a compound pendulum; its dominant frequency
// drops as links are added:
//
//	xs, _ := analysis.Coordinate(frames, 0, 4, 'x')
//	hz, _ := analysis.DominantFrequency(xs, analysis.SampleInterval(frames))
//
// Frames loaded from a run whose frame count is not a multiple of its
// stride end with an off-stride frame; trim it with [Uniform] first.
package analysis
