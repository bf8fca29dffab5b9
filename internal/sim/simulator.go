package sim

import (
	"context"
	"fmt"
)

type Simulator struct {
	metrics   []Metric
	observers []Observer
}

func New() *Simulator {
	return &Simulator{
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run steps w cfg.Frames times. The initial frame is recorded but not
// observed. A frame holding NaN/Inf ends the run with a SimError in
// Result.Errors when cfg.ValidateState is set.
func (s *Simulator) Run(ctx context.Context, w World, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	stride := cfg.Stride
	if stride == 0 {
		stride = 1
	}

	result := &Result{
		Frames:  make([]Frame, 0, cfg.Frames/stride+2),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	dt := w.Dt()
	result.Frames = append(result.Frames, w.Capture(0, 0))

	for i := 1; i <= cfg.Frames; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		w.Step()
		t := float64(i) * dt
		f := w.Capture(i, t)
		result.StepsTaken++

		for _, m := range s.metrics {
			m.Observe(f)
		}
		for _, obs := range s.observers {
			obs.OnFrame(f)
		}

		if cfg.ValidateState && !f.IsValid() {
			result.Errors = append(result.Errors, SimError{Step: i, Time: t, Wrapped: ErrInvalidState})
			result.Frames = append(result.Frames, f)
			break
		}

		if i%stride == 0 || i == cfg.Frames {
			result.Frames = append(result.Frames, f)
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func validateConfig(cfg Config) error {
	if cfg.Frames < 0 {
		return fmt.Errorf("%w: frames must be non-negative, got %d", ErrInvalidConfig, cfg.Frames)
	}
	if cfg.Stride < 0 {
		return fmt.Errorf("%w: stride must be non-negative, got %d", ErrInvalidConfig, cfg.Stride)
	}
	return nil
}

// RunWithCallback steps w until cfg.Frames is reached (forever when zero),
// ctx is done, or callback returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, w World, cfg Config, callback func(Frame) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	dt := w.Dt()
	for i := 1; cfg.Frames == 0 || i <= cfg.Frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w.Step()
		t := float64(i) * dt
		f := w.Capture(i, t)

		if cfg.ValidateState && !f.IsValid() {
			return SimError{Step: i, Time: t, Wrapped: ErrInvalidState}
		}
		if !callback(f) {
			return nil
		}
	}

	return nil
}
