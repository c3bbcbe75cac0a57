package errors

import "fmt"

/*
RpcError represents a JSON-RPC error response.
*/
type RpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

/*
Error implements the error interface for RpcError.
*/
func (e *RpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Convenience errors (JSON-RPC reserved codes -32700 .. -32600)
// Application specific codes use the -32000..-32099 range.
var (
	ErrParseError     = &RpcError{Code: -32700, Message: "Parse error"}
	ErrInvalidRequest = &RpcError{Code: -32600, Message: "Invalid Request"}
	ErrMethodNotFound = &RpcError{Code: -32601, Message: "Method not found"}
	ErrInvalidParams  = &RpcError{Code: -32602, Message: "Invalid params"}
	ErrInternal       = &RpcError{Code: -32603, Message: "Internal error"}

	// A2A specific errors.
	ErrCommunication = &RpcError{Code: -32000, Message: "Communication error"}
	ErrTaskNotFound  = &RpcError{Code: -32001, Message: "Task not found"}
	ErrTaskCanceled  = &RpcError{Code: -32002, Message: "Task was canceled"}
	ErrAgentNotFound = &RpcError{Code: -32004, Message: "Agent not found"}
)

// WithMessagef creates a *copy* of an RpcError with a formatted message.
// It does not modify the original error variable.
func (e *RpcError) WithMessagef(format string, args ...any) *RpcError {
	newErr := *e
	newErr.Message = fmt.Sprintf(format, args...)
	return &newErr
}

// WithData creates a copy of an RpcError carrying additional diagnostic data.
func (e *RpcError) WithData(data any) *RpcError {
	newErr := *e
	newErr.Data = data
	return &newErr
}
