package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065"))

	hotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E8554E")).
			Bold(true)
)

const (
	refreshInterval = 33 * time.Millisecond
	smoothingStep   = 0.05
	defaultBarWidth = 50
	hotLevel        = 0.8 // Bar turns red above this.
)

// Meter is the subset of *amplitude.Probe the view needs.
type Meter interface {
	Level() float64
	Smoothing() float64
	Smooth(float64)
}

var (
	keyQuit = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	keyUp   = key.NewBinding(key.WithKeys("up", "k"))
	keyDown = key.NewBinding(key.WithKeys("down", "j"))
)

type tickMsg time.Time

// MeterModel is the Bubble Tea model for the live level view.
type MeterModel struct {
	meter    Meter
	source   string
	level    float64
	peak     float64
	barWidth int
}

func NewMeterModel(m Meter, source string) MeterModel {
	return MeterModel{meter: m, source: source, barWidth: defaultBarWidth}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m MeterModel) Init() tea.Cmd {
	return tick()
}

func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.level = m.meter.Level()
		m.peak = math.Max(m.level, m.peak*0.98)
		return m, tick()

	case tea.WindowSizeMsg:
		m.barWidth = max(10, min(msg.Width-20, 120))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyQuit):
			return m, tea.Quit
		case key.Matches(msg, keyUp):
			m.meter.Smooth(math.Min(m.meter.Smoothing()+smoothingStep, 0.95))
		case key.Matches(msg, keyDown):
			m.meter.Smooth(math.Max(m.meter.Smoothing()-smoothingStep, 0))
		}
	}
	return m, nil
}

func (m MeterModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Amplitude"))
	sb.WriteString("\n\n")
	sb.WriteString(infoStyle.Render(m.source))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderBar())
	sb.WriteString(fmt.Sprintf(" %.3f\n", m.level))
	sb.WriteString(infoStyle.Render(fmt.Sprintf("peak %.3f  smoothing %.2f", m.peak, m.meter.Smoothing())))
	sb.WriteString("\n\n")
	sb.WriteString(infoStyle.Render("↑/↓: Smoothing • q: Quit"))
	return sb.String()
}

// renderBar draws the level as a bar of barWidth cells, clipping at 1.0.
func (m MeterModel) renderBar() string {
	filled := int(math.Round(math.Min(m.level, 1) * float64(m.barWidth)))
	filled = max(0, filled)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", m.barWidth-filled)
	if m.level >= hotLevel {
		return hotStyle.Render(bar)
	}
	return barStyle.Render(bar)
}

// Run blocks until the user quits.
func Run(m Meter, source string) error {
	p := tea.NewProgram(NewMeterModel(m, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
