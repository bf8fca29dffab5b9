package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/pbdsim/internal/pbd"
	"github.com/san-kum/pbdsim/internal/sim"
)

type Data struct {
	Scene   string             `json:"scene"`
	Dt      float64            `json:"dt"`
	Steps   int                `json:"steps"`
	Bodies  []BodyTopology     `json:"bodies"`
	Frames  []FrameData        `json:"frames"`
	Metrics map[string]float64 `json:"metrics"`
}

type BodyTopology struct {
	Name        string                   `json:"name"`
	Fixed       []bool                   `json:"fixed"`
	Constraints []pbd.DistanceConstraint `json:"constraints"`
}

type FrameData struct {
	Step      int          `json:"step"`
	Time      float64      `json:"time"`
	Positions [][]pbd.Vec2 `json:"positions"`
	Shadows   [][]pbd.Vec2 `json:"shadows,omitempty"`
}

func NewData(scene string, dt float64, result *sim.Result) Data {
	data := Data{
		Scene:   scene,
		Dt:      dt,
		Steps:   result.StepsTaken,
		Frames:  make([]FrameData, len(result.Frames)),
		Metrics: result.Metrics,
	}

	if first, ok := firstFrame(result); ok {
		for _, b := range first.Bodies {
			data.Bodies = append(data.Bodies, BodyTopology{Name: b.Name, Fixed: b.Fixed, Constraints: b.Constraints})
		}
	}

	for i, f := range result.Frames {
		fd := FrameData{Step: f.Step, Time: f.Time, Positions: make([][]pbd.Vec2, len(f.Bodies))}
		for bi, b := range f.Bodies {
			fd.Positions[bi] = b.Positions
			if b.Shadows != nil {
				if fd.Shadows == nil {
					fd.Shadows = make([][]pbd.Vec2, len(f.Bodies))
				}
				fd.Shadows[bi] = b.Shadows
			}
		}
		data.Frames[i] = fd
	}
	return data
}

func firstFrame(r *sim.Result) (sim.Frame, bool) {
	if len(r.Frames) == 0 {
		return sim.Frame{}, false
	}
	return r.Frames[0], true
}

func WriteJSON(w io.Writer, scene string, dt float64, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewData(scene, dt, result))
}

func ExportJSON(path string, scene string, dt float64, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, scene, dt, result)
}
