package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pbdsim/internal/pbd"
	"github.com/san-kum/pbdsim/internal/sim"
)

const (
	particleRadius = 5.0
	padding        = 0.1
)

type bounds struct {
	minX, minY, maxX, maxY float64
}

func (b *bounds) add(p pbd.Vec2) {
	b.minX = math.Min(b.minX, p.X)
	b.maxX = math.Max(b.maxX, p.X)
	b.minY = math.Min(b.minY, p.Y)
	b.maxY = math.Max(b.maxY, p.Y)
}

// fit pads the box and returns a uniform scale into a width×height image.
func (b *bounds) fit(width, height int) (scale float64) {
	rangeX, rangeY := b.maxX-b.minX, b.maxY-b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * padding
	b.maxX += rangeX * padding
	b.minY -= rangeY * padding
	b.maxY += rangeY * padding
	return math.Min(float64(width)/(b.maxX-b.minX), float64(height)/(b.maxY-b.minY))
}

func emptyBounds() bounds {
	return bounds{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
}

// FrameToSVG draws constraints as lines, free particles as filled circles,
// pinned ones as squares and shadows, when present, as hollow circles.
// World y grows downward, as in screen space.
func FrameToSVG(f sim.Frame, width, height int) string {
	bb := emptyBounds()
	for _, b := range f.Bodies {
		for _, p := range b.Positions {
			bb.add(p)
		}
		for _, p := range b.Shadows {
			bb.add(p)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	if f.NumParticles() == 0 {
		sb.WriteString("</svg>")
		return sb.String()
	}

	scale := bb.fit(width, height)
	project := func(p pbd.Vec2) (float64, float64) {
		return (p.X - bb.minX) * scale, (p.Y - bb.minY) * scale
	}

	sb.WriteString(`<g stroke="#ff3030" stroke-width="1.5">` + "\n")
	for _, b := range f.Bodies {
		for _, c := range b.Constraints {
			x1, y1 := project(b.Positions[c.A])
			x2, y2 := project(b.Positions[c.B])
			sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", x1, y1, x2, y2))
		}
	}
	sb.WriteString("</g>\n")

	sb.WriteString(`<g fill="none" stroke="#4080ff" stroke-width="1">` + "\n")
	for _, b := range f.Bodies {
		for _, p := range b.Shadows {
			x, y := project(p)
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n", x, y, particleRadius))
		}
	}
	sb.WriteString("</g>\n")

	sb.WriteString(`<g fill="#ffffff">` + "\n")
	for _, b := range f.Bodies {
		for i, p := range b.Positions {
			x, y := project(p)
			if i < len(b.Fixed) && b.Fixed[i] {
				sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="#ffcc00"/>`+"\n",
					x-particleRadius, y-particleRadius, 2*particleRadius, 2*particleRadius))
				continue
			}
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n", x, y, particleRadius))
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TrajectoryToSVG draws the path of one particle across frames.
func TrajectoryToSVG(points []pbd.Vec2, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	bb := emptyBounds()
	for _, p := range points {
		bb.add(p)
	}
	scale := bb.fit(width, height)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x := (p.X - bb.minX) * scale
		y := (p.Y - bb.minY) * scale

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// Trajectory extracts particle p of body b from every frame.
func Trajectory(frames []sim.Frame, b, p int) ([]pbd.Vec2, error) {
	out := make([]pbd.Vec2, 0, len(frames))
	for _, f := range frames {
		if b < 0 || b >= len(f.Bodies) || p < 0 || p >= len(f.Bodies[b].Positions) {
			return nil, fmt.Errorf("export: no particle %d in body %d at step %d", p, b, f.Step)
		}
		out = append(out, f.Bodies[b].Positions[p])
	}
	return out, nil
}
