package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"stoicbot/types"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		return m, tea.Batch(pollStatus(m.Client), tickCmd())
	case StatusUpdateMsg:
		return m.handleStatusUpdate(msg)
	case RunTriggeredMsg:
		return m.handleRunTriggered(msg)
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r", "R":
		if m.Connected && m.State != types.StatePublishing && m.State != types.StateRendering &&
			m.State != types.StateGenerating && m.State != types.StateSelecting {
			return m, triggerRun(m.Client)
		}
	}
	return m, nil
}

// handleStatusUpdate syncs the model with the polled snapshot.
func (m Model) handleStatusUpdate(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		m.Err = msg.Err
		return m, nil
	}

	m.Connected = true
	m.State = msg.Status.State
	m.Logs = msg.Status.Logs
	m.PostCount = msg.Status.PostCount
	m.NextFormat = msg.Status.NextFormat
	m.LastRun = msg.Status.LastRun
	if msg.Status.Error != "" {
		m.Err = errors.New(msg.Status.Error)
	} else {
		m.Err = nil
	}
	return m, nil
}

func (m Model) handleRunTriggered(msg RunTriggeredMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Err = msg.Err
		return m, nil
	}
	// The next poll picks up the state change.
	return m, pollStatus(m.Client)
}
