package a2a

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

/*
Task is the unit of tracked execution state for one agent invocation. Each
participant tracks its own view of a task; views are reconciled only via
messages, never via shared memory.
*/
type Task struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id,omitempty"`
	ContextID string     `json:"context_id,omitempty"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewTask creates a task in the pending state.
func NewTask(sessionID string) *Task {
	now := time.Now()

	return &Task{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Status: TaskStatus{
			State:     TaskStatePending,
			UpdatedAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ErrTerminalTransition is returned when a transition is attempted out of a
// terminal state.
type ErrTerminalTransition struct {
	TaskID string
	From   TaskState
	To     TaskState
}

func (e *ErrTerminalTransition) Error() string {
	return fmt.Sprintf("task %s: illegal transition %s -> %s", e.TaskID, e.From, e.To)
}

// Transition moves the task to a new state, carrying an optional status
// message. Transitions out of a terminal state are rejected.
func (task *Task) Transition(state TaskState, message *Message) error {
	if task.Status.State.Terminal() {
		return &ErrTerminalTransition{TaskID: task.ID, From: task.Status.State, To: state}
	}

	now := time.Now()
	task.Status.State = state
	task.Status.Message = message
	task.Status.UpdatedAt = now
	task.UpdatedAt = now

	return nil
}

// Fail moves the task to failed, recording the error string.
func (task *Task) Fail(err error) {
	now := time.Now()
	task.Status.State = TaskStateFailed
	task.Status.Error = err.Error()
	task.Status.UpdatedAt = now
	task.UpdatedAt = now
}

// AddArtifact appends an artifact to the task output.
func (task *Task) AddArtifact(artifact Artifact) {
	artifact.Index = len(task.Artifacts)
	task.Artifacts = append(task.Artifacts, artifact)
	task.UpdatedAt = time.Now()
}

// Text returns the textual content of the task: the status message if
// present, otherwise the concatenated text parts of its artifacts.
func (task *Task) Text() string {
	if task.Status.Message != nil {
		if text := task.Status.Message.Text(); text != "" {
			return text
		}
	}

	for _, artifact := range task.Artifacts {
		for _, part := range artifact.Parts {
			if part.Type == PartTypeText && part.Text != "" {
				return part.Text
			}
		}
	}

	return ""
}

// FailedTask builds a synthetic failed task for a step that could not be
// dispatched. Partial-failure isolation converts errors to data.
func FailedTask(sessionID string, err error) *Task {
	task := NewTask(sessionID)
	task.Fail(err)
	return task
}
