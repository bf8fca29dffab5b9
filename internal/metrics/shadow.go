package metrics

import (
	"github.com/san-kum/pbdsim/internal/sim"
)

// ShadowLag averages the distance between each particle's shadow and its
// corrected position, i.e. how much constraint projection moved it. Bodies
// without shadows are ignored.
type ShadowLag struct {
	name    string
	samples int
	total   float64
}

func NewShadowLag() *ShadowLag {
	return &ShadowLag{name: "shadow_lag"}
}

func (s *ShadowLag) Name() string { return s.name }

func (s *ShadowLag) Observe(f sim.Frame) {
	for _, b := range f.Bodies {
		for i, sh := range b.Shadows {
			s.total += sh.Dist(b.Positions[i])
			s.samples++
		}
	}
}

func (s *ShadowLag) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.total / float64(s.samples)
}

func (s *ShadowLag) Reset() {
	s.total = 0
	s.samples = 0
}
