package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/pbdsim/internal/config"
)

func TestGridSearch_PrefersMoreIterations(t *testing.T) {
	base := config.GetPreset("single")
	base.Frames = 120

	g := NewGridSearch([]string{"iterations"}, [][]float64{{1, 5, 20}})
	params, best, err := g.Search(context.Background(), base, "peak_constraint_error")
	if err != nil {
		t.Fatal(err)
	}
	if params["iterations"] != 20 {
		t.Errorf("expected 20 iterations to minimise the error, got %v", params)
	}
	if best <= 0 {
		t.Errorf("a falling chain should stretch a little, got %f", best)
	}
	if base.Solver.Iterations != config.DefaultIterations {
		t.Error("search modified the base config")
	}
}

func TestGridSearch_SkipsInvalid(t *testing.T) {
	base := config.GetPreset("single")
	base.Frames = 10

	g := NewGridSearch([]string{"dt", "iterations"}, [][]float64{{-1, 1.0 / 60}, {5}})
	params, _, err := g.Search(context.Background(), base, "constraint_error")
	if err != nil {
		t.Fatal(err)
	}
	if params["dt"] != 1.0/60 {
		t.Errorf("negative dt should be skipped, got %v", params)
	}
}

func TestGridSearch_Errors(t *testing.T) {
	base := config.GetPreset("single")
	base.Frames = 5

	if _, _, err := NewGridSearch([]string{"dt"}, nil).Search(context.Background(), base, "constraint_error"); err == nil {
		t.Error("expected error for mismatched ranges")
	}
	if _, _, err := NewGridSearch([]string{"dt"}, [][]float64{{0.01}}).Search(context.Background(), base, "nope"); err == nil {
		t.Error("expected error for unknown metric")
	}
	_, _, err := NewGridSearch([]string{"dt"}, [][]float64{{-1, 0}}).Search(context.Background(), base, "constraint_error")
	if !errors.Is(err, ErrNoCandidate) {
		t.Errorf("expected ErrNoCandidate, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewGridSearch([]string{"iterations"}, [][]float64{{1, 2}}).Search(ctx, base, "constraint_error"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
