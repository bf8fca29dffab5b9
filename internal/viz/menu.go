package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/pbdsim/internal/config"
	"github.com/san-kum/pbdsim/internal/scene"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			MarginBottom(1)

	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(0).Foreground(lipgloss.Color("170")).Bold(true)
	descStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).PaddingLeft(4)
)

type menuState int

const (
	stateMenu menuState = iota
	stateSim
)

// App lets the user pick a preset scene and then hands over to [Model].
type App struct {
	state    menuState
	names    []string
	cursor   int
	sim      Model
	err      error
	quitting bool
}

func NewApp() App {
	return App{names: config.ListPresets()}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			a.state = stateMenu
			a.err = nil
			if a.sim.recorder != nil {
				a.err = a.sim.recorder.Save()
				a.sim.recorder = nil
			}
			return a, nil
		}
		m, cmd := a.sim.Update(msg)
		a.sim = m.(Model)
		return a, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch k.String() {
	case "q", "ctrl+c", "esc":
		a.quitting = true
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.names)-1 {
			a.cursor++
		}
	case "enter", " ":
		if len(a.names) == 0 {
			return a, nil
		}
		sc, err := scene.New(config.GetPreset(a.names[a.cursor]))
		if err != nil {
			a.err = err
			return a, nil
		}
		a.err = nil
		a.sim = NewModel(sc)
		a.state = stateSim
		return a, a.sim.Init()
	}
	return a, nil
}

// Err reports the failure of the running scene, or of the menu itself.
func (a App) Err() error {
	if a.state == stateSim {
		return a.sim.Err()
	}
	return a.err
}

func (a App) View() string {
	if a.quitting {
		return ""
	}
	if a.state == stateSim {
		return a.sim.View()
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("PBD SCENES") + "\n")
	for i, name := range a.names {
		line := fmt.Sprintf("%-10s", name)
		if i == a.cursor {
			s.WriteString(selectedItemStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString(itemStyle.Render(line) + "\n")
		}
		s.WriteString(descStyle.Render(describe(config.Presets[name])) + "\n")
	}
	if a.err != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(CurrentTheme.Warning).Render(a.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("↑↓:Select Enter:Run Esc:Back Q:Quit"))
	return s.String()
}

func describe(cfg *config.Config) string {
	particles, links := 0, 0
	for _, ch := range cfg.Chains {
		particles += ch.Count
		links += len(ch.Links())
	}
	for _, b := range cfg.Bodies {
		particles += len(b.Particles)
		links += len(b.Constraints)
	}
	return fmt.Sprintf("%d bodies, %d particles, %d constraints, %d iterations",
		cfg.NumBodies(), particles, links, cfg.Solver.Iterations)
}
