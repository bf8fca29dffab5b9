package sim

import (
	"context"
	"sync"
)

// Ensemble runs independent worlds concurrently, one goroutine each. Metrics
// are stateful, so every run gets its own set from newMetrics.
type Ensemble struct {
	newMetrics func() []Metric
}

func NewEnsemble(newMetrics func() []Metric) *Ensemble {
	return &Ensemble{newMetrics: newMetrics}
}

func (e *Ensemble) Run(ctx context.Context, worlds []World, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(worlds))
	errs := make([]error, len(worlds))

	var wg sync.WaitGroup
	for i, w := range worlds {
		wg.Add(1)
		go func(idx int, w World) {
			defer wg.Done()

			s := New()
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					s.AddMetric(m)
				}
			}

			results[idx], errs[idx] = s.Run(ctx, w, cfg)
		}(i, w)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
