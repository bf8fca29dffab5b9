// Package pbd implements a two-dimensional Position-Based Dynamics solver.
//
// A [Solver] owns a flat, append-only store of point masses and a list of
// pairwise distance constraints. Each call to [Solver.Simulate] runs three
// phases in order:
//
//   - integration: gravity is applied to every free particle and its
//     position advanced by one fixed time step
//   - relaxation: every constraint is projected once per pass, in creation
//     order, for a fixed number of Gauss–Seidel passes
//   - velocity reconciliation: velocity is derived from the net
//     displacement of the frame
//
// # Example
//
//	s, _ := pbd.New(pbd.DefaultConfig())
//	anchor := s.AddParticle(pbd.Vec2{X: 200, Y: 250}, 1, true)
//	bob := s.AddParticle(pbd.Vec2{X: 250, Y: 250}, 1, false)
//	if _, err := s.AddDistanceConstraint(anchor, bob); err != nil {
//	    return err
//	}
//	for i := 0; i < 300; i++ {
//	    s.Simulate()
//	}
//
// # Thread Safety
//
// Solver instances are NOT thread-safe. Distinct solvers share no state and
// may be advanced concurrently, but a single solver must only be touched by
// one goroutine at a time, including readers of its positions.
package pbd
