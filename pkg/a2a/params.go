package a2a

import "github.com/agentmesh/agentmesh/pkg/errors"

// A2A JSON-RPC method names.
const (
	MethodMessageSend   = "message/send"
	MethodMessageStream = "message/stream"
)

/*
MessageSendParams is the params shape of both message/send and
message/stream. The two methods share a schema; only the response transport
differs.
*/
type MessageSendParams struct {
	ID                  string   `json:"id"`
	SessionID           string   `json:"session_id,omitempty"`
	ContextID           string   `json:"context_id,omitempty"`
	AcceptedOutputModes []string `json:"accepted_output_modes,omitempty"`
	Message             Message  `json:"message"`
}

// Validate checks required fields and normalizes the output-mode default.
func (params *MessageSendParams) Validate() *errors.RpcError {
	if params.ID == "" {
		return errors.ErrInvalidParams.WithMessagef("missing request id")
	}

	if len(params.AcceptedOutputModes) == 0 {
		params.AcceptedOutputModes = []string{"text"}
	}

	return params.Message.Validate()
}
