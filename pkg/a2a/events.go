package a2a

import "encoding/json"

// StreamEventType discriminates the closed set of streaming chunk kinds.
// Consumers switch on the type; there are no ad hoc keys to probe.
type StreamEventType string

const (
	StreamEventWorking   StreamEventType = "working"
	StreamEventInputReq  StreamEventType = "input_required"
	StreamEventChunk     StreamEventType = "chunk"
	StreamEventCompleted StreamEventType = "completed"
	StreamEventError     StreamEventType = "error"
)

/*
StreamEvent is one increment of a streaming response. Exactly one of Text,
Data, Summary and Error is meaningful, selected by Type: Working and
InputRequired carry Text, Chunk carries Data, Completed carries Summary,
Error carries Error.
*/
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Agent   string          `json:"agent,omitempty"`
	TaskID  string          `json:"task_id,omitempty"`
	Text    string          `json:"text,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Summary string          `json:"summary,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func NewWorkingEvent(taskID, text string) StreamEvent {
	return StreamEvent{Type: StreamEventWorking, TaskID: taskID, Text: text}
}

func NewInputRequiredEvent(taskID, text string) StreamEvent {
	return StreamEvent{Type: StreamEventInputReq, TaskID: taskID, Text: text}
}

func NewChunkEvent(agent string, data json.RawMessage) StreamEvent {
	return StreamEvent{Type: StreamEventChunk, Agent: agent, Data: data}
}

func NewCompletedEvent(taskID, summary string) StreamEvent {
	return StreamEvent{Type: StreamEventCompleted, TaskID: taskID, Summary: summary}
}

func NewErrorEvent(agent, message string) StreamEvent {
	return StreamEvent{Type: StreamEventError, Agent: agent, Error: message}
}
