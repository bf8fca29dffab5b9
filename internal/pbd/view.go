package pbd

// Read-only accessors for renderers and recorders. Slices passed as dst are
// reused when they have enough capacity.

func (s *Solver) Particle(i int) (Particle, error) {
	if err := s.checkIndex("particle", i); err != nil {
		return Particle{}, err
	}
	return s.particles[i], nil
}

func (s *Solver) Positions(dst []Vec2) []Vec2 {
	dst = dst[:0]
	for _, p := range s.particles {
		dst = append(dst, p.Position)
	}
	return dst
}

func (s *Solver) Velocities(dst []Vec2) []Vec2 {
	dst = dst[:0]
	for _, p := range s.particles {
		dst = append(dst, p.Velocity)
	}
	return dst
}

// Shadows returns the integrated, uncorrected positions of the last frame,
// index-aligned with Positions. It returns nil when shadows are disabled.
func (s *Solver) Shadows(dst []Vec2) []Vec2 {
	if s.shadow == nil {
		return nil
	}
	return append(dst[:0], s.shadow...)
}

func (s *Solver) FixedFlags(dst []bool) []bool {
	dst = dst[:0]
	for _, p := range s.particles {
		dst = append(dst, p.Fixed)
	}
	return dst
}

func (s *Solver) Constraints() []DistanceConstraint {
	out := make([]DistanceConstraint, len(s.constraints))
	copy(out, s.constraints)
	return out
}

func (s *Solver) Constraint(i int) (DistanceConstraint, bool) {
	if i < 0 || i >= len(s.constraints) {
		return DistanceConstraint{}, false
	}
	return s.constraints[i], true
}

// ConstraintError returns current length minus rest length of constraint i;
// positive when stretched. ok is false for an out-of-range index.
func (s *Solver) ConstraintError(i int) (float64, bool) {
	c, ok := s.Constraint(i)
	if !ok {
		return 0, false
	}
	return s.particles[c.A].Position.Dist(s.particles[c.B].Position) - c.RestLength, true
}
