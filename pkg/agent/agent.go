/*
Package agent implements the serving side of one A2A agent: a capability
card, a message handler, and task bookkeeping around each invocation.
*/
package agent

import (
	"context"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/errors"
	"github.com/agentmesh/agentmesh/pkg/tasks"
	"github.com/charmbracelet/log"
)

// Agent binds a card to a handler and a task tracker.
type Agent struct {
	card    a2a.AgentCard
	handler Handler
	tracker *tasks.Tracker
}

func New(card a2a.AgentCard, handler Handler, tracker *tasks.Tracker) *Agent {
	return &Agent{
		card:    card,
		handler: handler,
		tracker: tracker,
	}
}

func (agent *Agent) Card() a2a.AgentCard { return agent.card }
func (agent *Agent) Name() string        { return agent.card.Name }

/*
Send runs one synchronous invocation: create the task, mark it working,
hand the message to the handler, and finish the task with the reply. A
handler failure becomes a failed task, not an error; the task leaves the
active map either way.
*/
func (agent *Agent) Send(ctx context.Context, params a2a.MessageSendParams) (*a2a.Task, *errors.RpcError) {
	task, rpcErr := agent.tracker.Create(ctx, params.SessionID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	defer agent.tracker.Remove(ctx, task.ID)

	if _, rpcErr = agent.tracker.Advance(ctx, task.ID, a2a.TaskStateWorking, nil); rpcErr != nil {
		return nil, rpcErr
	}

	reply, err := agent.handler.Handle(ctx, params.Message)

	if err != nil {
		log.Error("handler failed", "agent", agent.card.Name, "task", task.ID, "error", err)

		failed, rpcErr := agent.tracker.Fail(ctx, task.ID, err)

		if rpcErr != nil {
			return nil, rpcErr
		}

		return failed, nil
	}

	done, rpcErr := agent.tracker.Advance(ctx, task.ID, a2a.TaskStateCompleted, &reply)

	if rpcErr != nil {
		return nil, rpcErr
	}

	done.AddArtifact(a2a.NewTextArtifact("response", reply.Text()))
	return done, nil
}

/*
Stream runs one streaming invocation. Every handler update maps 1:1 to a
task-status transition and an emitted stream event. The task is removed
from the active map when the stream ends, cleanly or not.
*/
func (agent *Agent) Stream(ctx context.Context, params a2a.MessageSendParams) (<-chan a2a.StreamEvent, *errors.RpcError) {
	task, rpcErr := agent.tracker.Create(ctx, params.SessionID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	updates, err := agent.handler.HandleStream(ctx, params.Message)

	if err != nil {
		agent.tracker.Remove(ctx, task.ID)
		return nil, errors.RPC(err)
	}

	events := make(chan a2a.StreamEvent)

	go func() {
		defer close(events)
		defer agent.tracker.Remove(ctx, task.ID)

		for update := range updates {
			event, ok := agent.relay(ctx, task.ID, update)

			if !ok {
				continue
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// relay advances the tracked task for one handler update and builds the
// matching stream event.
func (agent *Agent) relay(ctx context.Context, taskID string, update Update) (a2a.StreamEvent, bool) {
	state := tasks.StateFromEvent(update.Event)

	if state == a2a.TaskStateUnknown {
		log.Warn("dropping unknown handler event", "event", update.Event)
		return a2a.StreamEvent{}, false
	}

	var message *a2a.Message

	if update.Text != "" {
		msg := a2a.NewTextMessage(a2a.RoleAssistant, update.Text)
		message = &msg
	}

	if _, rpcErr := agent.tracker.Advance(ctx, taskID, state, message); rpcErr != nil {
		log.Warn("task transition rejected", "task", taskID, "state", state, "error", rpcErr)
	}

	switch state {
	case a2a.TaskStateWorking:
		return a2a.NewWorkingEvent(taskID, update.Text), true
	case a2a.TaskStateInputReq:
		return a2a.NewInputRequiredEvent(taskID, update.Text), true
	case a2a.TaskStateCompleted:
		return a2a.NewCompletedEvent(taskID, update.Text), true
	default:
		return a2a.NewErrorEvent(agent.card.Name, update.Text), true
	}
}

// Cancel cooperatively cancels a tracked task. In-flight handler work is
// not interrupted; only the bookkeeping is dropped.
func (agent *Agent) Cancel(ctx context.Context, taskID string) bool {
	return agent.tracker.Cancel(ctx, taskID)
}

// Status returns the status of an active task, nil if not tracked.
func (agent *Agent) Status(ctx context.Context, taskID string) *a2a.TaskStatus {
	return agent.tracker.Status(ctx, taskID)
}

// ActiveTasks lists the in-flight tasks.
func (agent *Agent) ActiveTasks(ctx context.Context) []a2a.Task {
	return agent.tracker.ListActive(ctx)
}
