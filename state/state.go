// Package state holds the orchestrator's runtime status with thread-safe
// access for the API and TUI.
package state

import (
	"fmt"
	"sync"
	"time"

	"stoicbot/types"
)

// Manager tracks the current pipeline state, the last completed run, and a
// bounded log ring buffer.
type Manager struct {
	mu sync.RWMutex

	currentState types.State
	postCount    int
	nextFormat   types.Format
	lastRun      *types.RunRecord

	logs    []types.LogEntry
	maxLogs int
	lastErr error
}

func NewManager() *Manager {
	return &Manager{
		currentState: types.StateIdle,
		logs:         make([]types.LogEntry, 0),
		maxLogs:      50,
	}
}

// AddLog appends a log entry, dropping the oldest past the buffer limit.
func (m *Manager) AddLog(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLogLocked(message)
}

func (m *Manager) addLogLocked(message string) {
	m.logs = append(m.logs, types.LogEntry{Timestamp: time.Now(), Message: message})
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}

// GetStatus returns a snapshot of the current state.
func (m *Manager) GetStatus() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resp := types.StatusResponse{
		State:      m.currentState,
		Logs:       append([]types.LogEntry{}, m.logs...),
		PostCount:  m.postCount,
		LastRun:    m.lastRun,
		NextFormat: m.nextFormat,
	}
	if m.lastErr != nil {
		resp.Error = m.lastErr.Error()
	}
	return resp
}

func (m *Manager) SetState(state types.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = state
	if state != types.StateError {
		m.lastErr = nil
	}
}

func (m *Manager) GetState() types.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// SetError transitions to the error state and logs the cause.
func (m *Manager) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = types.StateError
	m.lastErr = err
	m.addLogLocked(fmt.Sprintf("Error: %v", err))
}

// SetPostCount records the persisted counter value for status reporting.
func (m *Manager) SetPostCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postCount = n
}

// SetNextFormat records what the next run would produce.
func (m *Manager) SetNextFormat(f types.Format) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextFormat = f
}

// SetLastRun stores the most recent run record and transitions the state to
// match its outcome.
func (m *Manager) SetLastRun(rec *types.RunRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastRun = rec
	switch rec.Status {
	case types.RunCompleted:
		m.currentState = types.StateComplete
		m.addLogLocked(fmt.Sprintf("Run %s completed (%s #%d)", rec.RunID, rec.Format, rec.Number))
	case types.RunFailed:
		m.currentState = types.StateError
		m.addLogLocked(fmt.Sprintf("Run %s failed: %s", rec.RunID, rec.Error))
	}
}
