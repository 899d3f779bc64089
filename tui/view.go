package tui

import (
	"fmt"
	"strings"

	"stoicbot/types"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("🏛  Stoicbot Dashboard"))
	b.WriteString("\n\n")

	b.WriteString(m.stateText())
	b.WriteString("\n\n")

	if m.Connected {
		stats := fmt.Sprintf("📊 Posts published: %d | Next format: %s", m.PostCount, m.NextFormat)
		b.WriteString(InfoStyle.Render(stats))
		b.WriteString("\n\n")
	}

	if m.LastRun != nil {
		b.WriteString(BoxStyle.Render(m.formatLastRun()))
		b.WriteString("\n\n")
	}

	if len(m.Logs) > 0 {
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		logs := m.Logs
		if len(logs) > 10 {
			logs = logs[len(logs)-10:]
		}
		for _, entry := range logs {
			line := fmt.Sprintf("   %s %s", entry.Timestamp.Format("15:04:05"), entry.Message)
			b.WriteString(InfoStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(InfoStyle.Render("Press 'r' to post now | Press 'q' or Ctrl+C to quit"))
	return b.String()
}

// formatLastRun summarizes the most recent run for the results box.
func (m Model) formatLastRun() string {
	run := m.LastRun
	var b strings.Builder

	b.WriteString(HighlightStyle.Render("Last Run"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Format: %s  #%d\n", run.Format, run.Number))
	b.WriteString(fmt.Sprintf("Status: %s\n", m.renderRunStatus(run.Status)))

	if run.Output != nil && run.Output.PostID != "" {
		b.WriteString(fmt.Sprintf("Post ID: %s\n", run.Output.PostID))
	}
	if run.Error != "" {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %s\n", run.Error)))
	}

	if len(run.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, step := range run.Steps {
			marker := "✔"
			switch step.Status {
			case types.StepFailed:
				marker = "✘"
			case types.StepSkipped:
				marker = "–"
			}
			b.WriteString(fmt.Sprintf("  %s %-14s %.2fs\n", marker, step.Step, step.Elapsed))
		}
	}
	return b.String()
}

func (m Model) renderRunStatus(s types.RunStatus) string {
	switch s {
	case types.RunCompleted:
		return StatusStyle.Render(string(s))
	case types.RunFailed:
		return ErrorStyle.Render(string(s))
	default:
		return string(s)
	}
}
