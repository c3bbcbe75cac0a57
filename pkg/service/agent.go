package service

import (
	"net/http"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/agent"
	"github.com/agentmesh/agentmesh/pkg/catalog"
	"github.com/agentmesh/agentmesh/pkg/errors"
	"github.com/agentmesh/agentmesh/pkg/service/sse"
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	fiberadaptor "github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

/*
AgentServer fronts one leaf agent. It is safe for concurrent use: the
agent's tracker and the broker are.
*/
type AgentServer struct {
	app      *fiber.App
	agent    *agent.Agent
	registry *catalog.Registry
	broker   *sse.Broker
}

func NewAgentServer(a *agent.Agent) *AgentServer {
	registry := catalog.NewRegistry()
	registry.Add(a.Card())

	srv := &AgentServer{
		app: fiber.New(fiber.Config{
			AppName:           a.Name(),
			ServerHeader:      "A2A-Agent-Server",
			StreamRequestBody: true,
		}),
		agent:    a,
		registry: registry,
		broker:   sse.NewBroker(),
	}

	srv.routes()
	return srv
}

// App exposes the fiber app for tests.
func (srv *AgentServer) App() *fiber.App { return srv.app }

func (srv *AgentServer) routes() {
	srv.app.Use(logger.New(logger.Config{
		// Skip logging on the event stream to reduce noise.
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
	srv.app.Get("/a2a/tasks", srv.handleTasks)
	srv.app.Delete("/a2a/tasks/:id", srv.handleCancelTask)
}

func (srv *AgentServer) Listen(addr string) error {
	log.Info("agent server listening", "addr", addr, "agent", srv.agent.Name())
	return srv.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (srv *AgentServer) handleCards(ctx fiber.Ctx) error {
	return ctx.JSON(srv.registry.List())
}

func (srv *AgentServer) handleCard(ctx fiber.Ctx) error {
	card, ok := srv.registry.Get(ctx.Params("name"))

	if !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown agent: " + ctx.Params("name"),
		})
	}

	return ctx.JSON(card)
}

func (srv *AgentServer) handleDiscover(ctx fiber.Ctx) error {
	var req DiscoverRequest

	if err := ctx.Bind().Body(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid discover request: " + err.Error(),
		})
	}

	return ctx.JSON(srv.registry.Discover(req.Query, req.Tags, req.MaxResults))
}

func (srv *AgentServer) handleSend(ctx fiber.Ctx) error {
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

	task, rpcErr := srv.agent.Send(ctx, params)

	if rpcErr != nil {
		return respondError(ctx, req.ID, rpcErr)
	}

	return respond(ctx, req.ID, task)
}

func (srv *AgentServer) handleStream(ctx fiber.Ctx) error {
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

	events, rpcErr := srv.agent.Stream(ctx, params)

	if rpcErr != nil {
		return respondError(ctx, req.ID, rpcErr)
	}

	// Mirror every event onto the monitoring broker as it goes out.
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

	return streamEvents(ctx, req.ID, mirrored)
}

func (srv *AgentServer) handleTasks(ctx fiber.Ctx) error {
	return ctx.JSON(srv.agent.ActiveTasks(ctx))
}

func (srv *AgentServer) handleCancelTask(ctx fiber.Ctx) error {
	id := ctx.Params("id")

	if !srv.agent.Cancel(ctx, id) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown task: " + id,
		})
	}

	return ctx.JSON(fiber.Map{"canceled": id})
}

func (srv *AgentServer) handleEvents(ctx fiber.Ctx) error {
	handler := func(w http.ResponseWriter, r *http.Request) {
		srv.broker.Subscribe(w, r)
	}
	return fiberadaptor.HTTPHandler(http.HandlerFunc(handler))(ctx)
}
