package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"todopanel/internal/storage"
)

const (
	statusBarWidth = 10
	minNameWidth   = 12
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	toggleOnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7931E")).Bold(true)
	toggleOffStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	priorityStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7931E")).Bold(true)
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	deleteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#B43200"))
	statusLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	statusColors = map[storage.Status]lipgloss.Color{
		storage.StatusWaiting:    lipgloss.Color("#B4640A"),
		storage.StatusInProgress: lipgloss.Color("#FF8C1E"),
		storage.StatusFinished:   lipgloss.Color("#006400"),
	}
	statusFill = map[storage.Status]float64{
		storage.StatusWaiting:    0.1,
		storage.StatusInProgress: 0.6,
		storage.StatusFinished:   1,
	}
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("To Do List"))
	b.WriteString("  ")
	b.WriteString(renderToggle("hide finished", m.hideFinished))
	b.WriteString("  ")
	b.WriteString(renderToggle("highest first", m.sortDescending))
	b.WriteString("\n\n")

	switch {
	case len(m.rows) == 0:
		b.WriteString(fmt.Sprintf("No tasks yet. Press '%s' to add one.", m.cfg.Keys.Add))
	case m.height > 0:
		b.WriteString(m.viewport.View())
	default:
		b.WriteString(m.renderCanvas())
	}
	b.WriteString("\n")

	if m.mode == modeRename {
		b.WriteString("Name: ")
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")

	b.WriteString(statusLineStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func renderToggle(label string, on bool) string {
	if on {
		return toggleOnStyle.Render("[x] " + label)
	}
	return toggleOffStyle.Render("[ ] " + label)
}

// renderCanvas lays rows out at their current animated positions. Rows that
// are hidden or leaving are painted last so they slide over the others.
func (m Model) renderCanvas() string {
	lines := make([]string, m.containerHeight())
	sel := m.selected()
	var front []*row
	for _, r := range m.rows {
		if r.task.Index() < 0 {
			front = append(front, r)
			continue
		}
		m.paint(lines, r, r.task == sel)
	}
	for _, r := range front {
		m.paint(lines, r, false)
	}
	return strings.Join(lines, "\n")
}

func (m Model) paint(lines []string, r *row, selected bool) {
	y := int(math.Round(r.y))
	if y < 0 || y >= len(lines) {
		return
	}
	lines[y] = m.renderRow(r.task, selected)
}

func (m Model) renderRow(t *storage.Task, selected bool) string {
	cursor := " "
	if selected {
		cursor = selectedStyle.Render(">")
	}

	name := normalizeName(t.Name)
	width := max(minNameWidth, m.width-statusBarWidth-16)
	name = lipgloss.NewStyle().Width(width).MaxWidth(width).Render(name)
	if selected {
		name = selectedStyle.Render(name)
	}

	del := " "
	if selected {
		del = deleteStyle.Render("x")
	}

	return fmt.Sprintf("%s %s  %s %s %s",
		cursor,
		priorityStyle.Render(fmt.Sprintf("%3d", t.Priority)),
		name,
		renderStatusBar(t.Status),
		del,
	)
}

// renderStatusBar draws the status as a partly filled bar: a sliver for
// waiting, most of the way for in progress, full when finished.
func renderStatusBar(s storage.Status) string {
	filled := int(math.Round(statusFill[s] * statusBarWidth))
	bar := strings.Repeat("█", filled) + strings.Repeat(" ", statusBarWidth-filled)
	if c, ok := statusColors[s]; ok {
		bar = lipgloss.NewStyle().Foreground(c).Render(bar)
	}
	return "[" + bar + "]"
}

// normalizeName keeps a row on one line and gives blank names a label.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.ReplaceAll(name, "\n", " ")
	if strings.TrimSpace(name) == "" {
		return "(untitled)"
	}
	return name
}
