package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pollStatus creates a command to poll the bot's status API.
func pollStatus(client *BotClient) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		return StatusUpdateMsg{
			Status: status,
			Err:    err,
		}
	}
}

// triggerRun creates a command that starts a manual pipeline run.
func triggerRun(client *BotClient) tea.Cmd {
	return func() tea.Msg {
		return RunTriggeredMsg{Err: client.TriggerRun()}
	}
}

// tickCmd ticks every second to drive polling.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
