/*
Package service exposes the A2A protocol over HTTP. Two servers share the
glue here: AgentServer fronts one leaf agent, OrchestratorServer fronts the
coordinating side. Both speak JSON-RPC 2.0 on /a2a/message/send, SSE on
/a2a/message/stream, and answer card, discovery, health and metrics
requests.
*/
package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/errors"
	"github.com/agentmesh/agentmesh/pkg/jsonrpc"
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	fiberadaptor "github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DiscoverRequest is the body of POST /a2a/discover.
type DiscoverRequest struct {
	Query      string   `json:"query"`
	Tags       []string `json:"tags,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
}

// parseRequest decodes and validates the JSON-RPC envelope of a request
// body.
func parseRequest(body []byte) (jsonrpc.Request, *errors.RpcError) {
	var req jsonrpc.Request

	if err := json.Unmarshal(body, &req); err != nil {
		return req, errors.ErrParseError.WithMessagef("invalid request body: %v", err)
	}

	if rpcErr := req.Validate(); rpcErr != nil {
		return req, rpcErr
	}

	return req, nil
}

// decodeSendParams unmarshals and validates message/send params.
func decodeSendParams(req jsonrpc.Request) (a2a.MessageSendParams, *errors.RpcError) {
	var params a2a.MessageSendParams

	if err := json.Unmarshal(req.Params, &params); err != nil {
		return params, errors.ErrInvalidParams.WithMessagef("failed to unmarshal params: %v", err)
	}

	if rpcErr := params.Validate(); rpcErr != nil {
		return params, rpcErr
	}

	return params, nil
}

// respond writes a JSON-RPC success envelope. JSON-RPC errors ride on
// HTTP 200; only transport-level problems use HTTP status codes.
func respond(ctx fiber.Ctx, id json.RawMessage, result any) error {
	return ctx.JSON(jsonrpc.NewResponse(id, result))
}

func respondError(ctx fiber.Ctx, id json.RawMessage, e *errors.RpcError) error {
	return ctx.JSON(jsonrpc.NewErrorResponse(id, e))
}

/*
streamEvents writes the event sequence as SSE frames, each a JSON-RPC chunk
carrying one event, and always terminates with the [DONE] sentinel so that
a caller never sees a silent close.
*/
func streamEvents(ctx fiber.Ctx, id json.RawMessage, events <-chan a2a.StreamEvent) error {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)

		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		for event := range events {
			buf, err := json.Marshal(jsonrpc.NewResponse(id, event))

			if err != nil {
				log.Error("failed to marshal stream event", "error", err)
				continue
			}

			fmt.Fprintf(w, "data: %s\n\n", buf)
			flusher.Flush()
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}

	return fiberadaptor.HTTPHandler(http.HandlerFunc(handler))(ctx)
}

func handleHealth(ctx fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func metricsHandler() fiber.Handler {
	return fiberadaptor.HTTPHandler(promhttp.Handler())
}
