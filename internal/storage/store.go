package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/pbdsim/internal/config"
	"github.com/san-kum/pbdsim/internal/pbd"
	"github.com/san-kum/pbdsim/internal/sim"
)

var ErrCorruptRun = errors.New("storage: run data does not match its metadata")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scene      string             `json:"scene"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Frames     int                `json:"frames"`
	Iterations int                `json:"iterations"`
	Shadows    bool               `json:"shadows"`
	Bodies     []BodyMetadata     `json:"bodies"`
	Metrics    map[string]float64 `json:"metrics"`
}

type BodyMetadata struct {
	Name        string                   `json:"name"`
	Particles   int                      `json:"particles"`
	Fixed       []bool                   `json:"fixed"`
	Constraints []pbd.DistanceConstraint `json:"constraints"`
	// Shadows is set when positions.csv carries b{i}p{j}sx/sy columns.
	Shadows bool `json:"shadows,omitempty"`
}

// Save writes metadata.json and positions.csv for result under a new run
// directory and returns the run ID.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	if len(result.Frames) == 0 {
		return "", fmt.Errorf("storage: nothing to save")
	}

	runID, runDir, err := s.newRunDir(cfg.Name)
	if err != nil {
		return "", err
	}

	first := result.Frames[0]
	meta := RunMetadata{
		ID:         runID,
		Scene:      cfg.Name,
		Timestamp:  time.Now(),
		Dt:         cfg.Solver.Dt,
		Frames:     result.StepsTaken,
		Iterations: cfg.Solver.Iterations,
		Shadows:    cfg.Solver.Shadows,
		Bodies:     make([]BodyMetadata, len(first.Bodies)),
		Metrics:    result.Metrics,
	}
	for i, b := range first.Bodies {
		meta.Bodies[i] = BodyMetadata{
			Name:        b.Name,
			Particles:   len(b.Positions),
			Fixed:       b.Fixed,
			Constraints: b.Constraints,
			Shadows:     len(b.Shadows) == len(b.Positions) && len(b.Shadows) > 0,
		}
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writePositions(filepath.Join(runDir, "positions.csv"), meta.Bodies, result.Frames); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) newRunDir(name string) (string, string, error) {
	if name == "" {
		name = "run"
	}
	base := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	runID := base
	for n := 1; ; n++ {
		runDir := filepath.Join(s.baseDir, runID)
		if _, err := os.Stat(runDir); os.IsNotExist(err) {
			if err := os.MkdirAll(runDir, 0755); err != nil {
				return "", "", err
			}
			return runID, runDir, nil
		}
		runID = fmt.Sprintf("%s-%d", base, n)
	}
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePositions(path string, bodies []BodyMetadata, frames []sim.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"step", "time"}
	for bi, b := range bodies {
		for pi := 0; pi < b.Particles; pi++ {
			header = append(header, fmt.Sprintf("b%dp%dx", bi, pi), fmt.Sprintf("b%dp%dy", bi, pi))
			if b.Shadows {
				header = append(header, fmt.Sprintf("b%dp%dsx", bi, pi), fmt.Sprintf("b%dp%dsy", bi, pi))
			}
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, fr := range frames {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(fr.Step), strconv.FormatFloat(fr.Time, 'f', 6, 64))
		for bi, b := range fr.Bodies {
			for pi, p := range b.Positions {
				row = append(row, formatVec(p)...)
				if bodies[bi].Shadows {
					sp := p
					if pi < len(b.Shadows) {
						sp = b.Shadows[pi]
					}
					row = append(row, formatVec(sp)...)
				}
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatVec(v pbd.Vec2) []string {
	return []string{strconv.FormatFloat(v.X, 'g', -1, 64), strconv.FormatFloat(v.Y, 'g', -1, 64)}
}

// List returns the metadata of every stored run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadFrames rebuilds the recorded frames of a run. Positions, shadows,
// topology and fixed flags are stored; velocities are left empty.
func (s *Store) LoadFrames(runID string) ([]sim.Frame, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, "positions.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Frame{}, nil
	}

	width := 2
	for _, b := range meta.Bodies {
		width += 2 * b.Particles
		if b.Shadows {
			width += 2 * b.Particles
		}
	}

	frames := make([]sim.Frame, 0, len(records)-1)
	for row, record := range records[1:] {
		if len(record) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrCorruptRun, row+1, len(record), width)
		}
		vals, err := parseFloats(record[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrCorruptRun, row+1, err)
		}
		step, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrCorruptRun, row+1, err)
		}

		f := sim.Frame{Step: step, Time: vals[0], Bodies: make([]sim.Body, len(meta.Bodies))}
		col := 1
		for bi, bm := range meta.Bodies {
			pos := make([]pbd.Vec2, bm.Particles)
			var shadows []pbd.Vec2
			if bm.Shadows {
				shadows = make([]pbd.Vec2, bm.Particles)
			}
			for pi := range pos {
				pos[pi] = pbd.Vec2{X: vals[col], Y: vals[col+1]}
				col += 2
				if bm.Shadows {
					shadows[pi] = pbd.Vec2{X: vals[col], Y: vals[col+1]}
					col += 2
				}
			}
			f.Bodies[bi] = sim.Body{
				Name:        bm.Name,
				Positions:   pos,
				Shadows:     shadows,
				Fixed:       bm.Fixed,
				Constraints: bm.Constraints,
			}
		}
		frames = append(frames, f)
	}

	return frames, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
