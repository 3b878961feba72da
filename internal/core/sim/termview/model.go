package termview

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zeusync/simrunner/internal/core/sim"
	"github.com/zeusync/simrunner/internal/core/sim/dryrun"
)

// Source provides the scene state to draw.
type Source interface {
	Snapshot() dryrun.Snapshot
}

type tickMsg time.Time

const barWidth = 21

type styles struct {
	title  lipgloss.Style
	entity lipgloss.Style
	joint  lipgloss.Style
	bar    lipgloss.Style
	help   lipgloss.Style
}

func newStyles(theme sim.Theme) styles {
	accent, faint := lipgloss.Color("39"), lipgloss.Color("245")
	if theme == sim.ThemeLight {
		accent, faint = lipgloss.Color("25"), lipgloss.Color("240")
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		entity: lipgloss.NewStyle().Bold(true).MarginTop(1),
		joint:  lipgloss.NewStyle().Width(16),
		bar:    lipgloss.NewStyle().Foreground(accent),
		help:   lipgloss.NewStyle().Foreground(faint).MarginTop(1),
	}
}

// model is the bubbletea model drawing joint positions and forces.
type model struct {
	source   Source
	interval time.Duration
	styles   styles
	snap     dryrun.Snapshot
	frames   int
	quitting bool
}

func newModel(source Source, interval time.Duration, theme sim.Theme) model {
	return model{
		source:   source,
		interval: interval,
		styles:   newStyles(theme),
		snap:     source.Snapshot(),
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snap = m.source.Snapshot()
		m.frames++
		return m, m.tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.title.Render(fmt.Sprintf("%s  step %d  t=%.2fs", m.snap.SceneID, m.snap.Steps, m.snap.Time)))
	b.WriteByte('\n')
	for _, ent := range m.snap.Entities {
		b.WriteString(m.styles.entity.Render(fmt.Sprintf("%s  %s", ent.ID, ent.File)))
		b.WriteByte('\n')
		for i, name := range ent.Joints {
			fmt.Fprintf(&b, "%s %+8.3f %s %9.2f N\n",
				m.styles.joint.Render(name),
				ent.Qpos[i],
				m.styles.bar.Render(bar(ent.Qpos[i])),
				ent.Force[i])
		}
	}
	b.WriteString(m.styles.help.Render("q: close viewer"))
	return b.String()
}

// bar draws q in [-pi, pi] as a marker on a centred track.
func bar(q float64) string {
	pos := int(math.Round((q + math.Pi) / (2 * math.Pi) * (barWidth - 1)))
	pos = max(0, min(barWidth-1, pos))
	track := []rune(strings.Repeat("─", barWidth))
	track[barWidth/2] = '┼'
	track[pos] = '●'
	return string(track)
}
