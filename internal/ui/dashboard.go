package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/busforge/busforge/internal/runner"
)

// TickMsg is sent on each animation tick.
type TickMsg time.Time

// ProgressMsg carries one runner event into the model.
type ProgressMsg runner.Event

// DoneMsg tells the model the batch finished.
type DoneMsg struct{}

// Dashboard is a live batch-progress view for long generation runs.
// The caller forwards runner events into the program as ProgressMsg
// and closes with DoneMsg.
type Dashboard struct {
	width   int
	started time.Time

	done     int
	total    int
	failed   int
	finished bool
	last     string
	logs     []string
}

// NewDashboard creates a dashboard model.
func NewDashboard() *Dashboard {
	return &Dashboard{
		width:   80,
		started: time.Now(),
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width

	case ProgressMsg:
		d.done = msg.Done
		d.total = msg.Total
		if msg.Err != nil {
			d.failed++
			d.addLog(FailStyle.Render(fmt.Sprintf("%s: %v", msg.Label, msg.Err)))
		} else {
			d.addLog(fmt.Sprintf("%s %s", OKStyle.Render("done"), msg.Label))
		}
		d.last = msg.Label

	case DoneMsg:
		d.finished = true
		return d, tea.Quit

	case TickMsg:
		return d, tickCmd()
	}

	return d, nil
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	header := HeaderStyle.Render("BusForge — synthesizing anomalies")

	var pct float64
	if d.total > 0 {
		pct = float64(d.done) / float64(d.total)
	}
	bar := d.renderBar(pct)
	status := DimStyle.Render(fmt.Sprintf("%d/%d jobs, %d failed, %s elapsed",
		d.done, d.total, d.failed, time.Since(d.started).Round(time.Second)))

	logPanel := PanelStyle.Render(strings.Join(d.logs, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left, header, bar, status, logPanel) + "\n"
}

func (d *Dashboard) renderBar(pct float64) string {
	barWidth := d.width - 10
	if barWidth < 10 {
		barWidth = 10
	}
	filled := int(float64(barWidth) * pct)

	var b strings.Builder
	for i := 0; i < barWidth; i++ {
		if i < filled {
			b.WriteString(ProgressFullStyle.Render("█"))
		} else {
			b.WriteString(ProgressEmptyStyle.Render("░"))
		}
	}
	return fmt.Sprintf("%s %3.0f%%", b.String(), pct*100)
}

func (d *Dashboard) addLog(line string) {
	d.logs = append(d.logs, line)
	if len(d.logs) > 10 {
		d.logs = d.logs[len(d.logs)-10:]
	}
}
