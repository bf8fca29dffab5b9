package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/pbdsim/internal/sim"
)

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	Label  string
	Points []struct{ X, Y float64 }
}

// GeneratePhasePortrait pairs one coordinate of a particle with its
// finite-difference velocity between consecutive recorded frames.
func GeneratePhasePortrait(frames []sim.Frame, b, p int, axis byte) (*PhasePortrait2D, error) {
	coord, err := Coordinate(frames, b, p, axis)
	if err != nil {
		return nil, err
	}
	if len(coord) < 2 {
		return nil, fmt.Errorf("%w: %d frames", ErrTooShort, len(coord))
	}

	portrait := &PhasePortrait2D{
		Label:  fmt.Sprintf("body %d particle %d: %c vs d%c/dt", b, p, axis, axis),
		Points: make([]struct{ X, Y float64 }, 0, len(coord)-1),
	}
	for i := 1; i < len(coord); i++ {
		h := frames[i].Time - frames[i-1].Time
		if h <= 0 {
			continue
		}
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{
			X: coord[i],
			Y: (coord[i] - coord[i-1]) / h,
		})
	}

	return portrait, nil
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 {
		return ""
	}

	// Find bounds
	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	// Create canvas
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	// Plot points
	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	// Convert to string
	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
