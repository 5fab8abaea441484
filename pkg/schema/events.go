package schema

// RunState is the lifecycle state of a single workflow run.
type RunState string

const (
	RunStateInitializing RunState = "initializing"
	RunStateRunning      RunState = "running"
	RunStateCompleted    RunState = "completed"
	RunStateFailed       RunState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateFailed
}

// Event types reported to run observers.
const (
	EventWorkflowStarted   = "workflow_started"
	EventWorkflowCompleted = "workflow_completed"
	EventWorkflowFailed    = "workflow_failed"

	EventActionStarted   = "action_started"
	EventActionCompleted = "action_completed"
	EventActionFailed    = "action_failed"
)

// Event is a single observation of a workflow run.
type Event struct {
	Type       string `json:"type"`
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	Action     string `json:"action,omitempty"`
	Selector   string `json:"selector,omitempty"`
	Step       int    `json:"step,omitempty"`
	NextAction string `json:"next_action,omitempty"`
	Error      string `json:"error,omitempty"`
}
