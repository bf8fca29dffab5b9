package pbd

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex indicates a particle index outside the store.
	ErrInvalidIndex = errors.New("pbd: invalid particle index")

	// ErrSameParticle indicates a constraint whose endpoints are the same particle.
	ErrSameParticle = errors.New("pbd: constraint endpoints must be distinct")

	// ErrInvalidConfig indicates a solver configuration that cannot be simulated.
	ErrInvalidConfig = errors.New("pbd: invalid solver configuration")
)

// IndexError reports which index a rejected call referenced.
type IndexError struct {
	Op      string
	Index   int
	Len     int
	Wrapped error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: index %d (store has %d particles): %v", e.Op, e.Index, e.Len, e.Wrapped)
}

func (e *IndexError) Unwrap() error {
	return e.Wrapped
}
