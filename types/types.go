package types

import "time"

// Format identifies which content variant a pipeline run produces.
// Exactly one format executes per run.
type Format string

const (
	FormatReel     Format = "reel"
	FormatCarousel Format = "carousel"
	FormatFlash    Format = "flash"
	FormatAnimated Format = "animated"
)

// RunStatus is the terminal status of a pipeline run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// StepStatus is the outcome of a single pipeline step.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepRecord captures one executed pipeline step, in execution order.
// A failed step is always the last entry of its run.
type StepRecord struct {
	Step      string            `json:"step"`
	Status    StepStatus        `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Elapsed   float64           `json:"elapsed_seconds"`
	Details   map[string]string `json:"details,omitempty"`
}

// RunOutput summarizes a successful run.
type RunOutput struct {
	ArtifactPath  string `json:"artifact_path"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	Caption       string `json:"caption"`
	PostID        string `json:"post_id,omitempty"`
	ContainerID   string `json:"container_id,omitempty"`
}

// RunRecord is the durable audit record of one pipeline execution.
// It is appended to once per step and persisted exactly once, at run end.
type RunRecord struct {
	RunID     string       `json:"run_id"`
	Format    Format       `json:"format"`
	Number    int          `json:"number"` // prospective post number for this run
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Steps     []StepRecord `json:"steps"`
	Status    RunStatus    `json:"status"`
	Output    *RunOutput   `json:"output,omitempty"`
	Error     string       `json:"error,omitempty"`
	Trace     string       `json:"trace,omitempty"`
}

// LogEntry is a single timestamped message in the runtime status log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// State is the orchestrator's externally visible lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateSelecting  State = "selecting"
	StateRendering  State = "rendering"
	StatePublishing State = "publishing"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// StatusResponse is the JSON snapshot served by the status API.
type StatusResponse struct {
	State      State      `json:"state"`
	Logs       []LogEntry `json:"logs"`
	PostCount  int        `json:"post_count"`
	LastRun    *RunRecord `json:"last_run,omitempty"`
	NextFormat Format     `json:"next_format"`
	Error      string     `json:"error,omitempty"`
}
