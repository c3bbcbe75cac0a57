package a2a

import "time"

/*
TaskState enumerates the mutually exclusive states a task may be in. The
zero value is treated as "unknown".
*/
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateWorking   TaskState = "working"
	TaskStateInputReq  TaskState = "input_required"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
	TaskStateUnknown   TaskState = "unknown"
)

// Terminal reports whether no further transitions are allowed out of the
// state. input_required pauses progression but is not terminal.
func (state TaskState) Terminal() bool {
	switch state {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}

	return false
}

// Valid reports whether the string is a known task state.
func (state TaskState) Valid() bool {
	switch state {
	case TaskStatePending, TaskStateWorking, TaskStateInputReq,
		TaskStateCompleted, TaskStateFailed, TaskStateCanceled,
		TaskStateUnknown:
		return true
	}

	return false
}

type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Progress  *float64  `json:"progress,omitempty"` // 0.0 - 1.0
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
