package service

import (
	"net/http"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/errors"
	"github.com/agentmesh/agentmesh/pkg/orchestrator"
	"github.com/agentmesh/agentmesh/pkg/service/sse"
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	fiberadaptor "github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

/*
OrchestratorServer fronts the coordinating agent. Besides the standard A2A
surface it exposes the remote-agent registry and the active sessions.
*/
type OrchestratorServer struct {
	app    *fiber.App
	orch   *orchestrator.Orchestrator
	broker *sse.Broker
}

func NewOrchestratorServer(orch *orchestrator.Orchestrator) *OrchestratorServer {
	srv := &OrchestratorServer{
		app: fiber.New(fiber.Config{
			AppName:           orch.Card.Name,
			ServerHeader:      "A2A-Orchestrator-Server",
			StreamRequestBody: true,
		}),
		orch:   orch,
		broker: sse.NewBroker(),
	}

	srv.routes()
	return srv
}

// App exposes the fiber app for tests.
func (srv *OrchestratorServer) App() *fiber.App { return srv.app }

func (srv *OrchestratorServer) routes() {
	srv.app.Use(logger.New(logger.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/a2a/events"
		},
	}))

	srv.app.Get("/health", handleHealth)
	srv.app.Get("/metrics", metricsHandler())
	srv.app.Get("/a2a/events", srv.handleEvents)
	srv.app.Get("/a2a/cards", srv.handleCards)
	srv.app.Get("/a2a/cards/:name", srv.handleCard)
	srv.app.Post("/a2a/discover", srv.handleDiscover)
	srv.app.Post("/a2a/message/send", srv.handleSend)
	srv.app.Post("/a2a/message/stream", srv.handleStream)

	srv.app.Get("/a2a/agents", srv.handleAgents)
	srv.app.Post("/a2a/agents/add", srv.handleAddAgent)
	srv.app.Delete("/a2a/agents/:name", srv.handleRemoveAgent)
	srv.app.Get("/a2a/health/agents", srv.handleAgentHealth)
	srv.app.Get("/a2a/sessions", srv.handleSessions)
	srv.app.Get("/a2a/sessions/:id", srv.handleSession)
	srv.app.Get("/a2a/plans/:id", srv.handlePlan)
	srv.app.Post("/a2a/orchestrate", srv.handleOrchestrate)
}

func (srv *OrchestratorServer) Listen(addr string) error {
	log.Info("orchestrator server listening", "addr", addr)
	return srv.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (srv *OrchestratorServer) handleCards(ctx fiber.Ctx) error {
	return ctx.JSON([]a2a.AgentCard{srv.orch.Card})
}

// handleCard answers with the orchestrator's own card or with the card of
// a known remote agent.
func (srv *OrchestratorServer) handleCard(ctx fiber.Ctx) error {
	name := ctx.Params("name")

	if name == srv.orch.Card.Name {
		return ctx.JSON(srv.orch.Card)
	}

	card, ok := srv.orch.Registry.Get(name)

	if !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown agent: " + name,
		})
	}

	return ctx.JSON(card)
}

func (srv *OrchestratorServer) handleDiscover(ctx fiber.Ctx) error {
	var req DiscoverRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid discover request: " + err.Error(),
		})
	}

	return ctx.JSON(srv.orch.Registry.Discover(req.Query, req.Tags, req.MaxResults))
}

/*
handleSend treats an inbound A2A message as an orchestration request: the
message text becomes the query, and the aggregated result is the JSON-RPC
result.
*/
func (srv *OrchestratorServer) handleSend(ctx fiber.Ctx) error {
	req, rpcErr := parseRequest(ctx.Body())

	if rpcErr != nil {
		return respondError(ctx, req.ID, rpcErr)
	}

	if req.Method != a2a.MethodMessageSend {
		return respondError(ctx, req.ID, errors.ErrMethodNotFound.WithMessagef("unknown method: %q", req.Method))
	}

	params, rpcErr := decodeSendParams(req)

	if rpcErr != nil {
		return respondError(ctx, req.ID, rpcErr)
	}

	result := srv.orch.Orchestrate(ctx, params.SessionID, params.Message.Text())
	return respond(ctx, req.ID, result)
}

func (srv *OrchestratorServer) handleStream(ctx fiber.Ctx) error {
	req, rpcErr := parseRequest(ctx.Body())

	if rpcErr != nil {
		return respondError(ctx, req.ID, rpcErr)
	}

	if req.Method != a2a.MethodMessageStream {
		return respondError(ctx, req.ID, errors.ErrMethodNotFound.WithMessagef("unknown method: %q", req.Method))
	}

	params, rpcErr := decodeSendParams(req)

	if rpcErr != nil {
		return respondError(ctx, req.ID, rpcErr)
	}

	events := srv.orch.OrchestrateStream(ctx, params.SessionID, params.Message.Text())
	return streamEvents(ctx, req.ID, srv.mirror(events))
}

// mirror forwards stream events while broadcasting each one on the
// monitoring broker.
func (srv *OrchestratorServer) mirror(events <-chan a2a.StreamEvent) <-chan a2a.StreamEvent {
	mirrored := make(chan a2a.StreamEvent)

	go func() {
		defer close(mirrored)

		for event := range events {
			if err := srv.broker.Broadcast(event); err != nil {
				log.Error("failed to broadcast stream event", "error", err)
			}

			mirrored <- event
		}
	}()

	return mirrored
}

func (srv *OrchestratorServer) handleAgents(ctx fiber.Ctx) error {
	return ctx.JSON(srv.orch.Pool.Infos())
}

func (srv *OrchestratorServer) handleAddAgent(ctx fiber.Ctx) error {
	url := ctx.Query("agent_url")

	if url == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "agent_url query parameter is required",
		})
	}

	card, err := srv.orch.AddAgent(ctx, url)

	if err != nil {
		log.Error("failed to add agent", "url", url, "error", err)
		return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return ctx.Status(fiber.StatusCreated).JSON(card)
}

func (srv *OrchestratorServer) handleRemoveAgent(ctx fiber.Ctx) error {
	name := ctx.Params("name")
	srv.orch.RemoveAgent(name)
	return ctx.JSON(fiber.Map{"removed": name})
}

func (srv *OrchestratorServer) handleAgentHealth(ctx fiber.Ctx) error {
	return ctx.JSON(srv.orch.Pool.HealthCheckAll(ctx))
}

func (srv *OrchestratorServer) handleSessions(ctx fiber.Ctx) error {
	sessions := srv.orch.Sessions.List()
	ids := make([]string, 0, len(sessions))

	for _, sc := range sessions {
		ids = append(ids, sc.SessionID)
	}

	return ctx.JSON(ids)
}

func (srv *OrchestratorServer) handleSession(ctx fiber.Ctx) error {
	sc, ok := srv.orch.Sessions.Get(ctx.Params("id"))

	if !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown session: " + ctx.Params("id"),
		})
	}

	return ctx.JSON(sc)
}

func (srv *OrchestratorServer) handlePlan(ctx fiber.Ctx) error {
	plan, ok := srv.orch.Planner.Plan(ctx.Params("id"))

	if !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown plan: " + ctx.Params("id"),
		})
	}

	return ctx.JSON(plan)
}

/*
handleOrchestrate is the direct entry point: query and session come from
query parameters, stream=true switches to the SSE response.
*/
func (srv *OrchestratorServer) handleOrchestrate(ctx fiber.Ctx) error {
	query := ctx.Query("query")

	if query == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query parameter is required",
		})
	}

	sessionID := ctx.Query("session_id")

	if ctx.Query("stream") == "true" {
		events := srv.orch.OrchestrateStream(ctx, sessionID, query)
		return streamEvents(ctx, nil, srv.mirror(events))
	}

	return ctx.JSON(srv.orch.Orchestrate(ctx, sessionID, query))
}

func (srv *OrchestratorServer) handleEvents(ctx fiber.Ctx) error {
	handler := func(w http.ResponseWriter, r *http.Request) {
		srv.broker.Subscribe(w, r)
	}
	return fiberadaptor.HTTPHandler(http.HandlerFunc(handler))(ctx)
}
