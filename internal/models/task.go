package models

// Task states reported by the completion service. A task moves
// pending -> processing -> completed|failed exactly once; the service owns
// the transitions, this core only reads them.
const (
	TaskPending    = "pending"
	TaskProcessing = "processing"
	TaskInProgress = "in-progress"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"
)

// TaskStatus is a poll result from the completion service.
type TaskStatus struct {
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
