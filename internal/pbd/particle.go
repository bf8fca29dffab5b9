package pbd

// Particle is a point mass. Fixed and InverseMass == 0 always agree.
type Particle struct {
	Position         Vec2
	PreviousPosition Vec2
	Velocity         Vec2
	InverseMass      float64
	Fixed            bool
}

func newParticle(pos Vec2, mass float64, fixed bool) Particle {
	p := Particle{
		Position:         pos,
		PreviousPosition: pos,
		Fixed:            fixed || !(mass > 0),
	}
	if !p.Fixed {
		p.InverseMass = 1 / mass
		// an infinite mass is as immovable as a pinned one
		p.Fixed = p.InverseMass == 0
	}
	return p
}

// Mass returns 1/InverseMass, or 0 for immovable particles.
func (p Particle) Mass() float64 {
	if p.InverseMass == 0 {
		return 0
	}
	return 1 / p.InverseMass
}

// DistanceConstraint keeps particles A and B at RestLength apart.
// RestLength is fixed when the constraint is created.
type DistanceConstraint struct {
	A          int     `json:"a"`
	B          int     `json:"b"`
	RestLength float64 `json:"rest_length"`
}
