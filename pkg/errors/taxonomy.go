package errors

import "fmt"

// Error types shared across the connection and orchestration layers.
type (
	// DiscoveryError indicates a remote agent's card could not be fetched
	// or parsed.
	DiscoveryError struct {
		URL     string
		Message string
		Err     error
	}

	// CommunicationError indicates a transport failure talking to a remote
	// agent: timeout, connection refused, non-2xx status, malformed JSON.
	CommunicationError struct {
		URL     string
		Message string
		Err     error
	}

	// RemoteAgentError indicates the remote agent answered with a JSON-RPC
	// error object of its own. The remote message is preserved for
	// diagnostics.
	RemoteAgentError struct {
		Agent   string
		Code    int
		Message string
	}

	// AgentNotFoundError indicates a lookup by name failed in the
	// connection pool or registry.
	AgentNotFoundError struct {
		Name string
	}
)

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to discover agent at %s: %s: %v", e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("failed to discover agent at %s: %s", e.URL, e.Message)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

func (e *CommunicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("communication with %s failed: %s: %v", e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("communication with %s failed: %s", e.URL, e.Message)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

func (e *RemoteAgentError) Error() string {
	return fmt.Sprintf("agent %s returned error %d: %s", e.Agent, e.Code, e.Message)
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent not found: %s", e.Name)
}

// RPC converts a taxonomy error into the JSON-RPC error that should cross
// the wire for it.
func RPC(err error) *RpcError {
	switch v := err.(type) {
	case *RpcError:
		return v
	case *AgentNotFoundError:
		return ErrAgentNotFound.WithMessagef("%s", v.Error())
	case *RemoteAgentError:
		return &RpcError{Code: v.Code, Message: v.Message}
	case *DiscoveryError, *CommunicationError:
		return ErrCommunication.WithMessagef("%s", err.Error())
	default:
		return ErrInternal.WithMessagef("%s", err.Error())
	}
}
