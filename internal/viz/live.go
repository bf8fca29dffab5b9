package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pbdsim/internal/config"
	"github.com/san-kum/pbdsim/internal/metrics"
	"github.com/san-kum/pbdsim/internal/pbd"
	"github.com/san-kum/pbdsim/internal/scene"
	"github.com/san-kum/pbdsim/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	maxIterations   = 200
	particleRadius  = 1
	sparkWidth      = 24
)

type TickMsg time.Time

// ReloadMsg replaces the running scene with one built from Config.
type ReloadMsg struct{ Config *config.Config }

// ErrMsg reports a failure from outside the model, such as a bad reload.
type ErrMsg struct{ Err error }

// Model steps a scene once per tick and draws its particles, links and,
// when enabled, shadow positions.
type Model struct {
	scene         *scene.Scene
	frame         sim.Frame
	step          int
	width, height int
	canvas        *Canvas
	shadowCanvas  *Canvas
	view          viewport
	running       bool
	showShadows   bool
	showHelp      bool
	errHistory    []float64
	history       []sim.Frame
	playHead      int
	recorder      *Recorder
	err           error
}

// viewport maps world coordinates onto canvas sub-pixels with a uniform
// scale; the world's y axis points down, like the terminal's.
type viewport struct {
	minX, minY float64
	scale      float64
}

// NewModel wraps sc. The scene should not be stepped by anyone else while
// the model runs.
func NewModel(sc *scene.Scene) Model {
	m := Model{
		scene:       sc,
		width:       width,
		height:      height,
		canvas:      NewCanvas(width, height),
		running:     true,
		showShadows: sc.Config().Solver.Shadows,
		playHead:    -1,
	}
	m.frame = sc.Capture(0, 0)
	m.view = fitViewport(m.frame, width*2, height*4)
	m.shadowCanvas = NewCanvas(width, height)
	return m
}

// fitViewport frames the initial layout with room for every body to swing
// down by its total rest length.
func fitViewport(f sim.Frame, cw, ch int) viewport {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	reach := 0.0
	for _, b := range f.Bodies {
		for _, p := range b.Positions {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
		total := 0.0
		for _, c := range b.Constraints {
			total += c.RestLength
		}
		reach = math.Max(reach, total)
	}
	if math.IsInf(minX, 1) {
		return viewport{scale: 1}
	}
	if reach == 0 {
		reach = config.DefaultSpacing
	}

	minX -= reach * 0.5
	maxX += reach * 0.5
	minY -= reach * 0.1
	maxY += reach

	scale := math.Min(float64(cw-1)/(maxX-minX), float64(ch-1)/(maxY-minY))
	return viewport{minX: minX, minY: minY, scale: scale}
}

func (v viewport) project(p pbd.Vec2) (int, int) {
	return int(math.Round((p.X - v.minX) * v.scale)), int(math.Round((p.Y - v.minY) * v.scale))
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.recorder != nil {
				m.err = m.recorder.Save()
				m.recorder = nil
			}
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running && m.playHead == -1 {
				m.advance()
			}
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "s":
			m.showShadows = !m.showShadows
		case "up", "k", "+", "=":
			m.setIterations(m.iterations() + 1)
		case "down", "j", "-", "_":
			m.setIterations(m.iterations() - 1)
		case "g":
			if m.recorder != nil {
				m.err = m.recorder.Save()
				m.recorder = nil
			} else {
				m.recorder = NewRecorder("pbdsim.gif")
			}
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			NextTheme()
		}
	case ReloadMsg:
		sc, err := scene.New(msg.Config)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.scene = sc
		m.showShadows = msg.Config.Solver.Shadows
		m.reset()
		m.view = fitViewport(m.frame, width*2, height*4)
	case ErrMsg:
		m.err = msg.Err
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.advance()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		m.draw()
		if m.recorder != nil {
			m.recorder.Capture(m.canvas)
		}
		return m, tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// advance runs one solver frame and records it for time travel.
func (m *Model) advance() {
	m.scene.Step()
	m.step++
	m.frame = m.scene.Capture(m.step, float64(m.step)*m.scene.Dt())

	m.errHistory = append(m.errHistory, metrics.MaxConstraintError(m.frame))
	if len(m.errHistory) > historyCapacity {
		m.errHistory = m.errHistory[1:]
	}
	m.history = append(m.history, m.frame)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

// scrub changes the playback position in history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) > 0 {
			m.playHead = len(m.history) - 1
			m.running = false
		} else {
			return
		}
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset rebuilds every solver from the scene configuration.
func (m *Model) reset() {
	if err := m.scene.Reset(); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.step = 0
	m.frame = m.scene.Capture(0, 0)
	m.errHistory = m.errHistory[:0]
	m.history = m.history[:0]
	m.playHead = -1
}

// Err is the last failure the model recorded, such as a GIF that could not
// be written on quit.
func (m Model) Err() error { return m.err }

func (m Model) iterations() int { return m.scene.Config().Solver.Iterations }

// setIterations swaps in a fresh scene built with n relaxation passes.
// Solver settings are fixed at construction, so tuning restarts the run.
func (m *Model) setIterations(n int) {
	if n < 0 || n > maxIterations || n == m.iterations() {
		return
	}
	cfg := m.scene.Config().Clone()
	cfg.Solver.Iterations = n
	sc, err := scene.New(cfg)
	if err != nil {
		m.err = err
		return
	}
	m.scene = sc
	m.reset()
}

// displayed is the frame under the play head.
func (m Model) displayed() sim.Frame {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	return m.frame
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.shadowCanvas.Clear()
	f := m.displayed()

	for _, b := range f.Bodies {
		for _, c := range b.Constraints {
			x0, y0 := m.view.project(b.Positions[c.A])
			x1, y1 := m.view.project(b.Positions[c.B])
			m.canvas.DrawLine(x0, y0, x1, y1)
		}
		for i, p := range b.Positions {
			x, y := m.view.project(p)
			if b.Fixed[i] {
				m.canvas.Ring(x, y, particleRadius+1)
			}
			m.canvas.Disc(x, y, particleRadius)
		}
		if m.showShadows {
			for _, sp := range b.Shadows {
				x, y := m.view.project(sp)
				m.shadowCanvas.Disc(x, y, particleRadius)
			}
		}
	}
}

func (m Model) View() string {
	m.draw()
	f := m.displayed()
	canvasView := canvasStyle.Render(Compose(m.canvas, m.shadowCanvas, particleStyle(), shadowStyle()))

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.scene.Config().Name)) + "\n")

	status := StatusRunning.Render("RUNNING")
	switch {
	case m.playHead != -1 && m.running:
		status = StatusPaused.Render(fmt.Sprintf("REPLAYING (%d)", f.Step-m.step))
	case m.playHead != -1:
		status = StatusPaused.Render(fmt.Sprintf("REPLAY PAUSED (%d)", f.Step-m.step))
	case !m.running:
		status = StatusPaused.Render("PAUSED")
	}
	s.WriteString(status + "\n\n")

	if len(m.errHistory) > 1 {
		chart := asciigraph.Plot(m.errHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Max constraint error"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Frame") + valueStyle.Render(fmt.Sprintf("%d", f.Step)) + "\n")
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", f.Time)) + "\n")
	s.WriteString(labelStyle.Render("Iterations") + valueStyle.Render(fmt.Sprintf("%d", m.iterations())) + "\n")
	s.WriteString(labelStyle.Render("Particles") + valueStyle.Render(fmt.Sprintf("%d", f.NumParticles())) + "\n")
	s.WriteString(labelStyle.Render("Max error") + valueStyle.Render(fmt.Sprintf("%.4f", metrics.MaxConstraintError(f))) + "\n")
	s.WriteString(labelStyle.Render("Kinetic E") + valueStyle.Render(fmt.Sprintf("%.1f", metrics.FrameKineticEnergy(f))) + "\n")
	if len(m.history) > 1 {
		energy := make([]float64, 0, sparkWidth)
		for _, h := range m.history[max(0, len(m.history)-sparkWidth):] {
			energy = append(energy, metrics.FrameKineticEnergy(h))
		}
		s.WriteString(labelStyle.Render("") + SparklineChart(energy, sparkWidth) + "\n")
	}

	shadows := "off"
	if m.showShadows {
		shadows = "on"
	}
	s.WriteString(labelStyle.Render("Shadows") + valueStyle.Render(shadows) + "\n")
	if m.recorder != nil {
		s.WriteString(labelStyle.Render("Recording") + valueStyle.Render(fmt.Sprintf("%d frames", m.recorder.Len())) + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(CurrentTheme.Warning).Render(m.err.Error()) + "\n")
	}

	s.WriteString("\nBODIES\n")
	for _, b := range f.Bodies {
		s.WriteString("  " + labelStyle.Render(b.Name) + valueStyle.Render(fmt.Sprintf("%d/%d", len(b.Positions), len(b.Constraints))) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nS:Shadows T:Theme ?:Help\n[ ]:Time-Travel ↑↓:Iter"))
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  N        - Single step when paused  ║
║  R        - Reset simulation         ║
║  Q        - Quit                     ║
║  Up/K     - One more iteration       ║
║  Down/J   - One less iteration       ║
║  [        - Rewind (time travel)     ║
║  ]        - Forward (time travel)    ║
║  S        - Toggle shadow overlay    ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
