package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/pbdsim/internal/config"
	"github.com/san-kum/pbdsim/internal/storage"
)

func execute(t *testing.T, args ...string) {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(os.Stderr)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("pbdsim %s: %v", strings.Join(args, " "), err)
	}
}

func TestResolveConfig(t *testing.T) {
	cmd := newRootCmd()
	run, _, err := cmd.Find([]string{"run"})
	if err != nil {
		t.Fatal(err)
	}
	if err := run.ParseFlags([]string{"--preset", "bridge", "--iterations", "3", "--shadows"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := resolveConfig(run)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Name != "bridge" {
		t.Errorf("expected bridge, got %s", cfg.Name)
	}
	if cfg.Solver.Iterations != 3 || !cfg.Solver.Shadows {
		t.Errorf("flags not applied: %+v", cfg.Solver)
	}
	if cfg.Frames != config.Presets["bridge"].Frames {
		t.Errorf("unset frames flag overrode the preset: %d", cfg.Frames)
	}
	if config.Presets["bridge"].Solver.Iterations == 3 {
		t.Error("preset was modified")
	}
}

func TestResolveConfig_UnknownPreset(t *testing.T) {
	cmd := newRootCmd()
	run, _, _ := cmd.Find([]string{"run"})
	if err := run.ParseFlags([]string{"--preset", "nope"}); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveConfig(run); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestRunStoresResult(t *testing.T) {
	dir := t.TempDir()
	execute(t, "run", "--preset", "single", "--frames", "30", "--stride", "10", "--data", dir)

	st := storage.New(dir)
	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Frames != 30 || runs[0].Scene != "single" {
		t.Errorf("unexpected metadata %+v", runs[0])
	}

	frames, err := st.LoadFrames(runs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	// initial frame plus steps 10, 20, 30
	if len(frames) != 4 {
		t.Errorf("expected 4 recorded frames, got %d", len(frames))
	}

	out := filepath.Join(dir, "run.json")
	execute(t, "export", runs[0].ID, "--format", "json", "--out", out, "--data", dir)
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Errorf("json export missing: %v", err)
	}

	svg := filepath.Join(dir, "tail.svg")
	execute(t, "export", runs[0].ID, "--format", "trajectory", "--particle", "4", "--out", svg, "--data", dir)
	data, err := os.ReadFile(svg)
	if err != nil || !strings.Contains(string(data), "<svg") {
		t.Errorf("trajectory export missing: %v", err)
	}
}

func TestRunFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	cfg := config.GetPreset("shadow")
	cfg.Name = "from_file"
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	execute(t, "run", "--config", path, "--frames", "5", "--data", dir)
	runs, err := storage.New(dir).List()
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d (%v)", len(runs), err)
	}
	if runs[0].Scene != "from_file" || !runs[0].Shadows || len(runs[0].Bodies) != 2 {
		t.Errorf("config file not honoured: %+v", runs[0])
	}
}

func TestBench(t *testing.T) {
	execute(t, "bench", "single", "weighted", "--frames", "20")
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	execute(t, "run", "--preset", "single", "--frames", "120", "--data", dir)
	runs, err := storage.New(dir).List()
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d (%v)", len(runs), err)
	}
	execute(t, "analyze", runs[0].ID, "--data", dir)
	execute(t, "plot", runs[0].ID, "--data", dir)
	execute(t, "plot", runs[0].ID, "--particle", "4", "--data", dir)
}

func TestAutomationCommands(t *testing.T) {
	execute(t, "sweep", "--preset", "single", "--frames", "30", "--steps", "3")
	execute(t, "montecarlo", "--preset", "single", "--frames", "30", "--trials", "3", "--seed", "7")
	execute(t, "tune", "--preset", "single", "--frames", "30", "--grid", "iterations=2,8", "--grid", "dt=0.01,0.02")
}

func TestParseGrid(t *testing.T) {
	name, vals, err := parseGrid("dt=0.01, 0.02,0.04")
	if err != nil {
		t.Fatal(err)
	}
	if name != "dt" || len(vals) != 3 || vals[1] != 0.02 {
		t.Errorf("parsed %s %v", name, vals)
	}
	for _, bad := range []string{"dt", "=1,2", "dt=", "dt=a,b"} {
		if _, _, err := parseGrid(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
