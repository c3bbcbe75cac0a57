package agent

import (
	"context"

	"github.com/agentmesh/agentmesh/pkg/a2a"
)

/*
Update is one increment of a handler's work on a message. Event uses the
agent-internal vocabulary (working, input_required, completed, error); the
tasks package owns the translation to A2A task states.
*/
type Update struct {
	Event string
	Text  string
}

/*
Handler is the collaborator boundary between the A2A machinery and whatever
actually produces answers: an LLM provider, a tool runner, a rule engine.
The orchestration core never depends on which one is behind it.
*/
type Handler interface {
	// Handle processes a message synchronously and returns the reply.
	Handle(ctx context.Context, message a2a.Message) (a2a.Message, error)
	// HandleStream processes a message incrementally. The returned
	// channel is closed when the handler is done; the last update should
	// carry the completed (or error) event.
	HandleStream(ctx context.Context, message a2a.Message) (<-chan Update, error)
}

/*
EchoHandler answers with the input text. It keeps the platform runnable end
to end without a model behind it; swap it for a real Handler in production.
*/
type EchoHandler struct{}

func NewEchoHandler() *EchoHandler {
	return &EchoHandler{}
}

func (h *EchoHandler) Handle(ctx context.Context, message a2a.Message) (a2a.Message, error) {
	return a2a.NewTextMessage(a2a.RoleAssistant, message.Text()), nil
}

func (h *EchoHandler) HandleStream(ctx context.Context, message a2a.Message) (<-chan Update, error) {
	updates := make(chan Update, 2)

	updates <- Update{Event: "working", Text: "processing"}
	updates <- Update{Event: "completed", Text: message.Text()}
	close(updates)

	return updates, nil
}
