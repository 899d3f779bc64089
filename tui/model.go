// Package tui is the terminal dashboard: a thin client that polls the bot's
// status API and renders its progress.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"stoicbot/types"
)

// Model holds the dashboard state, synced from the bot on every poll.
type Model struct {
	Client *BotClient

	State      types.State
	Logs       []types.LogEntry
	PostCount  int
	NextFormat types.Format
	LastRun    *types.RunRecord
	Err        error

	Connected bool
}

func NewModel(botURL string) Model {
	return Model{
		Client: NewBotClient(botURL),
		State:  types.StateIdle,
		Logs:   make([]types.LogEntry, 0),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		pollStatus(m.Client),
		tickCmd(),
	)
}

// stateText renders the headline for the current state.
func (m Model) stateText() string {
	if !m.Connected {
		return ErrorStyle.Render("❌ Not connected to bot")
	}

	switch m.State {
	case types.StateIdle:
		return HighlightStyle.Render("💤 Idle") + "\n\n" +
			InfoStyle.Render(fmt.Sprintf("Next format: %s | Press 'r' to post now", m.NextFormat))
	case types.StateGenerating:
		return StatusStyle.Render("✍️  Generating content...")
	case types.StateSelecting:
		return StatusStyle.Render("🖼️  Selecting assets...")
	case types.StateRendering:
		return StatusStyle.Render("🎬 Rendering media...")
	case types.StatePublishing:
		return StatusStyle.Render("📤 Publishing...")
	case types.StateComplete:
		return HighlightStyle.Render("✅ POSTED")
	case types.StateError:
		errMsg := "Unknown error"
		if m.Err != nil {
			errMsg = m.Err.Error()
		}
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %v", errMsg))
	default:
		return StatusStyle.Render(string(m.State))
	}
}
