package tui

import (
	"time"

	"stoicbot/types"
)

// Messages for the tea program (polling-based)

// StatusUpdateMsg carries a freshly polled status snapshot.
type StatusUpdateMsg struct {
	Status *types.StatusResponse
	Err    error
}

// TickMsg is sent periodically to trigger polling.
type TickMsg struct {
	Time time.Time
}

// RunTriggeredMsg is sent after the user requests a manual run.
type RunTriggeredMsg struct {
	Err error
}
