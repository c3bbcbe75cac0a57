/*
Package tasks implements per-call task bookkeeping on the serving side of an
A2A exchange. A Tracker wraps each accepted message with a task identity and
walks it through the canonical state machine, independent of any plan-level
tracking the calling orchestrator may do.
*/
package tasks

import (
	"context"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/errors"
	"github.com/agentmesh/agentmesh/pkg/metrics"
	"github.com/agentmesh/agentmesh/pkg/stores"
	"github.com/charmbracelet/log"
)

// stateFromEvent is the single translation table between agent-internal
// execution events and the A2A task-state vocabulary. All mapping happens
// here, never inline at call sites.
var stateFromEvent = map[string]a2a.TaskState{
	"working":        a2a.TaskStateWorking,
	"input_required": a2a.TaskStateInputReq,
	"completed":      a2a.TaskStateCompleted,
	"error":          a2a.TaskStateFailed,
}

// StateFromEvent resolves an agent-internal event name to a TaskState,
// falling back to unknown.
func StateFromEvent(event string) a2a.TaskState {
	if state, ok := stateFromEvent[event]; ok {
		return state
	}

	return a2a.TaskStateUnknown
}

// Tracker owns the active-task map for one process.
type Tracker struct {
	store stores.TaskStore
}

func NewTracker(store stores.TaskStore) *Tracker {
	return &Tracker{store: store}
}

// Create registers a new pending task for a session.
func (tracker *Tracker) Create(ctx context.Context, sessionID string) (*a2a.Task, *errors.RpcError) {
	task := a2a.NewTask(sessionID)

	if rpcErr := tracker.store.Put(ctx, task); rpcErr != nil {
		return nil, rpcErr
	}

	metrics.Metrics.ActiveTasks.Inc()
	log.Debug("task created", "id", task.ID, "session", sessionID)

	return task, nil
}

/*
Advance transitions a tracked task to a new state, touching updated_at.
Transitions out of a terminal state are rejected.
*/
func (tracker *Tracker) Advance(ctx context.Context, id string, state a2a.TaskState, message *a2a.Message) (*a2a.Task, *errors.RpcError) {
	task, rpcErr := tracker.store.Get(ctx, id)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := task.Transition(state, message); err != nil {
		return nil, errors.ErrInvalidRequest.WithMessagef("%s", err.Error())
	}

	if rpcErr := tracker.store.Put(ctx, task); rpcErr != nil {
		return nil, rpcErr
	}

	return task, nil
}

// Fail marks a tracked task failed, recording the error.
func (tracker *Tracker) Fail(ctx context.Context, id string, cause error) (*a2a.Task, *errors.RpcError) {
	task, rpcErr := tracker.store.Get(ctx, id)

	if rpcErr != nil {
		return nil, rpcErr
	}

	task.Fail(cause)

	if rpcErr := tracker.store.Put(ctx, task); rpcErr != nil {
		return nil, rpcErr
	}

	return task, nil
}

/*
Cancel forcibly cancels an active task and removes it from the tracker.
It reports false when the task is unknown, which makes a second Cancel on
the same id a no-op.
*/
func (tracker *Tracker) Cancel(ctx context.Context, id string) bool {
	task, rpcErr := tracker.store.Get(ctx, id)

	if rpcErr != nil {
		return false
	}

	// Best effort: a terminal task is still removed, just not re-labelled.
	_ = task.Transition(a2a.TaskStateCanceled, nil)
	tracker.Remove(ctx, id)

	log.Info("task canceled", "id", id)
	return true
}

// Status returns the current status of a tracked task, or nil when the
// task is not (or no longer) tracked.
func (tracker *Tracker) Status(ctx context.Context, id string) *a2a.TaskStatus {
	task, rpcErr := tracker.store.Get(ctx, id)

	if rpcErr != nil {
		return nil
	}

	return &task.Status
}

// ListActive returns the tasks currently tracked.
func (tracker *Tracker) ListActive(ctx context.Context) []a2a.Task {
	return tracker.store.List(ctx)
}

// Remove drops a task from the active map. Called on stream completion or
// error so the map stays bounded.
func (tracker *Tracker) Remove(ctx context.Context, id string) {
	if rpcErr := tracker.store.Delete(ctx, id); rpcErr == nil {
		metrics.Metrics.ActiveTasks.Dec()
	}
}
