package metrics

import (
	"github.com/san-kum/pbdsim/internal/sim"
)

// KineticEnergy averages the total kinetic energy of all free particles
// over the observed frames.
type KineticEnergy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(f sim.Frame) {
	e.totalEnergy += FrameKineticEnergy(f)
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// FrameKineticEnergy sums ½mv² over the movable particles of f.
func FrameKineticEnergy(f sim.Frame) float64 {
	total := 0.0
	for _, b := range f.Bodies {
		for i, v := range b.Velocities {
			w := b.InverseMass[i]
			if w == 0 {
				continue
			}
			total += 0.5 * (v.X*v.X + v.Y*v.Y) / w
		}
	}
	return total
}
