/*
Package jsonrpc holds the JSON-RPC 2.0 wire types shared by every A2A
participant. It is deliberately tiny: just the envelope structs and the
helpers to build well-formed responses. Transport lives elsewhere.
*/
package jsonrpc

import (
	"encoding/json"

	"github.com/agentmesh/agentmesh/pkg/errors"
)

const Version = "2.0"

// Request is an inbound or outbound JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"` // accepts string | number | null
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result and
// Error is populated.
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id,omitempty"`
	Result  any              `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

// NewRequest builds a request envelope, marshalling params in place. A
// marshalling failure is a programming error upstream and surfaces as
// ErrInvalidParams.
func NewRequest(id json.RawMessage, method string, params any) (Request, *errors.RpcError) {
	req := Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
	}

	if params != nil {
		buf, err := json.Marshal(params)

		if err != nil {
			return Request{}, errors.ErrInvalidParams.WithMessagef("failed to marshal params: %v", err)
		}

		req.Params = buf
	}

	return req, nil
}

// NewResponse wraps a result for the given request id.
func NewResponse(id json.RawMessage, result any) Response {
	return Response{
		JSONRPC: Version,
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse wraps an RpcError for the given request id.
func NewErrorResponse(id json.RawMessage, e *errors.RpcError) Response {
	if e == nil {
		e = errors.ErrInternal
	}

	return Response{
		JSONRPC: Version,
		ID:      id,
		Error:   e,
	}
}

// Validate checks the envelope-level invariants of an inbound request:
// the version marker and the presence of a method name.
func (req *Request) Validate() *errors.RpcError {
	if req.JSONRPC != Version {
		return errors.ErrInvalidRequest.WithMessagef("unsupported jsonrpc version: %q", req.JSONRPC)
	}

	if req.Method == "" {
		return errors.ErrInvalidRequest.WithMessagef("missing method")
	}

	return nil
}
