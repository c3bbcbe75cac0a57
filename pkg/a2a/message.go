package a2a

import (
	"strings"
	"time"

	"github.com/agentmesh/agentmesh/pkg/errors"
	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

/*
Message represents all non-artifact communication between caller and agent.
A Message is immutable once constructed; a conversation is a sequence of
messages correlated by session and context ids.
*/
type Message struct {
	Role      Role           `json:"role"`
	Parts     []Part         `json:"parts"`
	MessageID string         `json:"message_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	ContextID string         `json:"context_id,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewTextMessage(role Role, text string) Message {
	return Message{
		Role:      role,
		Parts:     []Part{NewTextPart(text)},
		MessageID: uuid.NewString(),
		Timestamp: time.Now(),
	}
}

func NewDataMessage(role Role, mimeType string, data []byte) Message {
	return Message{
		Role:      role,
		Parts:     []Part{NewDataPart(mimeType, data)},
		MessageID: uuid.NewString(),
		Timestamp: time.Now(),
	}
}

// Text concatenates the text content of every text part.
func (msg *Message) Text() string {
	var sb strings.Builder

	for _, part := range msg.Parts {
		if part.Type == PartTypeText {
			sb.WriteString(part.Text)
		}
	}

	return sb.String()
}

// Validate checks role and part invariants.
func (msg *Message) Validate() *errors.RpcError {
	switch msg.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return errors.ErrInvalidParams.WithMessagef("unknown role: %q", msg.Role)
	}

	if len(msg.Parts) == 0 {
		return errors.ErrInvalidParams.WithMessagef("message has no parts")
	}

	for _, part := range msg.Parts {
		if rpcErr := part.Validate(); rpcErr != nil {
			return rpcErr
		}
	}

	return nil
}
