package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates a frame holding NaN or Inf.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	ErrInvalidConfig = errors.New("sim: invalid run configuration")
)

type SimError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e SimError) Unwrap() error {
	return e.Wrapped
}
