package orchestrator

import (
	"context"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/catalog"
	"github.com/agentmesh/agentmesh/pkg/connection"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

/*
Orchestrator bundles the registry, connection pool, planner, executor and
session map behind one constructor. Everything is wired explicitly at
startup and passed by reference; there are no lazily initialized globals.
*/
type Orchestrator struct {
	Card     a2a.AgentCard
	Registry *catalog.Registry
	Pool     *connection.Pool
	Planner  *Planner
	Executor *Executor
	Sessions *Sessions
}

func New(card a2a.AgentCard, cfg PlannerConfig) *Orchestrator {
	registry := catalog.NewRegistry()
	pool := connection.NewPool()
	sessions := NewSessions()

	return &Orchestrator{
		Card:     card,
		Registry: registry,
		Pool:     pool,
		Planner:  NewPlanner(registry, cfg),
		Executor: NewExecutor(pool, sessions),
		Sessions: sessions,
	}
}

/*
AddAgent discovers the agent at url, stores the connection and registers
the discovered card so discovery scoring can see it.
*/
func (orch *Orchestrator) AddAgent(ctx context.Context, url string) (a2a.AgentCard, error) {
	card, err := orch.Pool.Add(ctx, url)

	if err != nil {
		return a2a.AgentCard{}, err
	}

	orch.Registry.Add(card)
	return card, nil
}

// RemoveAgent drops the agent from both the pool and the registry.
func (orch *Orchestrator) RemoveAgent(name string) {
	orch.Pool.Remove(name)
	orch.Registry.Remove(name)
}

/*
RegisterAgents adds a list of agent urls at startup, logging and skipping
the ones that cannot be reached. Used for config-driven bootstrap.
*/
func (orch *Orchestrator) RegisterAgents(ctx context.Context, urls []string) {
	for _, url := range urls {
		if _, err := orch.AddAgent(ctx, url); err != nil {
			log.Warn("skipping unreachable agent", "url", url, "error", err)
		}
	}
}

// Orchestrate plans and executes a query in one shot.
func (orch *Orchestrator) Orchestrate(ctx context.Context, sessionID, query string) *Result {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	plan := orch.Planner.CreatePlan(sessionID, query)
	return orch.Executor.ExecutePlan(ctx, plan)
}

// OrchestrateStream plans and executes a query, streaming events.
func (orch *Orchestrator) OrchestrateStream(ctx context.Context, sessionID, query string) <-chan a2a.StreamEvent {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	plan := orch.Planner.CreatePlan(sessionID, query)
	return orch.Executor.ExecutePlanStream(ctx, plan)
}
