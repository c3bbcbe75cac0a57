package orchestrator

import (
	"sync"
	"time"

	"github.com/agentmesh/agentmesh/pkg/catalog"
	"github.com/agentmesh/agentmesh/pkg/metrics"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ActionProcessQuery is the only step action this planner emits: forward
// the user query to the selected agent.
const ActionProcessQuery = "process_query"

// stepDurationEstimate is a placeholder heuristic, not a measurement.
const stepDurationEstimate = 5.0

// Step is one unit of a plan: which agent, what to do, what it depends on.
type Step struct {
	Agent        string   `json:"agent"`
	Action       string   `json:"action"`
	Query        string   `json:"query"`
	Dependencies []string `json:"dependencies"`
}

/*
Plan is the immutable output of one planning pass. Steps are independent in
this version: the dependency map exists for forward compatibility and is
always empty. Re-planning produces a new plan with a new id.
*/
type Plan struct {
	ID                string              `json:"id"`
	SessionID         string              `json:"session_id"`
	Query             string              `json:"query"`
	Steps             []Step              `json:"steps"`
	SelectedAgents    []string            `json:"selected_agents"`
	Dependencies      map[string][]string `json:"dependencies"`
	EstimatedDuration float64             `json:"estimated_duration"`
	CreatedAt         time.Time           `json:"created_at"`
}

/*
Planner builds plans from discovery results. Plans are kept in an in-memory
map by id for later lookup and audit.
*/
type Planner struct {
	registry   *catalog.Registry
	maxResults int
	fallback   string

	mu    sync.RWMutex
	plans map[string]*Plan
}

// PlannerConfig tunes plan construction.
type PlannerConfig struct {
	// MaxResults caps how many agents discovery may select. Zero means
	// the default of 3.
	MaxResults int
	// Fallback names a general-purpose agent to target when discovery
	// comes up empty. Optional.
	Fallback string
}

func NewPlanner(registry *catalog.Registry, cfg PlannerConfig) *Planner {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}

	return &Planner{
		registry:   registry,
		maxResults: cfg.MaxResults,
		fallback:   cfg.Fallback,
		plans:      make(map[string]*Plan),
	}
}

/*
CreatePlan discovers candidate agents for the query and emits one
independent step per candidate. An empty discovery result is not an error:
with a registered fallback agent the plan gets a single step targeting it,
without one the plan simply has no steps and the executor classifies it.
*/
func (planner *Planner) CreatePlan(sessionID, query string) *Plan {
	scored := planner.registry.Discover(query, nil, planner.maxResults)

	plan := &Plan{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		Query:        query,
		Dependencies: make(map[string][]string),
		CreatedAt:    time.Now(),
	}

	for _, candidate := range scored {
		plan.Steps = append(plan.Steps, Step{
			Agent:        candidate.Card.Name,
			Action:       ActionProcessQuery,
			Query:        query,
			Dependencies: []string{},
		})
		plan.SelectedAgents = append(plan.SelectedAgents, candidate.Card.Name)
	}

	if len(plan.Steps) == 0 && planner.fallback != "" {
		if _, ok := planner.registry.Get(planner.fallback); ok {
			plan.Steps = append(plan.Steps, Step{
				Agent:        planner.fallback,
				Action:       ActionProcessQuery,
				Query:        query,
				Dependencies: []string{},
			})
			plan.SelectedAgents = append(plan.SelectedAgents, planner.fallback)
		}
	}

	plan.EstimatedDuration = float64(len(plan.Steps)) * stepDurationEstimate

	planner.mu.Lock()
	planner.plans[plan.ID] = plan
	planner.mu.Unlock()

	metrics.Metrics.PlansCreated.Inc()
	log.Info("plan created",
		"id", plan.ID,
		"session", sessionID,
		"agents", plan.SelectedAgents,
	)

	return plan
}

// Plan returns a previously created plan by id.
func (planner *Planner) Plan(id string) (*Plan, bool) {
	planner.mu.RLock()
	defer planner.mu.RUnlock()

	plan, ok := planner.plans[id]
	return plan, ok
}
