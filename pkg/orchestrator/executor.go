package orchestrator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/connection"
	"github.com/agentmesh/agentmesh/pkg/metrics"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// summaryExcerptLen bounds how much of each completed result the summary
// quotes.
const summaryExcerptLen = 100

// StepResult pairs a plan step's agent with the task it produced.
type StepResult struct {
	Agent string   `json:"agent"`
	Task  a2a.Task `json:"task"`
}

// Result is the final outcome of one plan execution.
type Result struct {
	PlanID        string        `json:"plan_id"`
	SessionID     string        `json:"session_id"`
	State         a2a.TaskState `json:"state"`
	Results       []StepResult  `json:"results"`
	Summary       string        `json:"summary"`
	ExecutionTime float64       `json:"execution_time"`
	CreatedAt     time.Time     `json:"created_at"`
}

/*
Executor runs plans against the connection pool. Aggregation is best
effort: partial success counts as success, and a failing step never aborts
its siblings.
*/
type Executor struct {
	pool     *connection.Pool
	sessions *Sessions
}

func NewExecutor(pool *connection.Pool, sessions *Sessions) *Executor {
	return &Executor{
		pool:     pool,
		sessions: sessions,
	}
}

/*
ExecutePlan dispatches every step concurrently and aggregates the settled
results. The session context is registered before execution and removed
when execution finishes, whatever the outcome.
*/
func (executor *Executor) ExecutePlan(ctx context.Context, plan *Plan) *Result {
	start := time.Now()

	sc := NewContext(plan.SessionID, plan.Query, plan.SelectedAgents)
	executor.sessions.Register(sc)
	defer executor.sessions.Remove(plan.SessionID)

	message := a2a.NewTextMessage(a2a.RoleUser, plan.Query)
	message.SessionID = plan.SessionID
	sc.AddHistory(message)

	var (
		mu      sync.Mutex
		results = make([]StepResult, len(plan.Steps))
		group   errgroup.Group
	)

	for i, step := range plan.Steps {
		group.Go(func() error {
			task := executor.runStep(ctx, sc, step, message)

			mu.Lock()
			results[i] = StepResult{Agent: step.Agent, Task: *task}
			mu.Unlock()

			return nil
		})
	}

	// Step failures are folded into synthetic failed tasks.
	_ = group.Wait()

	result := &Result{
		PlanID:        plan.ID,
		SessionID:     plan.SessionID,
		State:         classify(results),
		Results:       results,
		ExecutionTime: time.Since(start).Seconds(),
		CreatedAt:     time.Now(),
	}
	result.Summary = summarize(plan.Query, results)

	for _, sr := range results {
		metrics.Metrics.StepOutcomes.WithLabelValues(string(sr.Task.Status.State)).Inc()
	}

	log.Info("plan executed",
		"plan", plan.ID,
		"state", result.State,
		"steps", len(results),
		"duration", result.ExecutionTime,
	)

	return result
}

// runStep dispatches one step and converts any failure into a synthetic
// failed task so sibling steps are unaffected.
func (executor *Executor) runStep(ctx context.Context, sc *Context, step Step, message a2a.Message) *a2a.Task {
	task, err := executor.pool.SendTo(ctx, step.Agent, message, connection.SendOptions{
		SessionID: sc.SessionID,
		ContextID: sc.ContextID,
	})

	if err != nil {
		log.Warn("plan step failed", "agent", step.Agent, "error", err)
		task = a2a.FailedTask(sc.SessionID, err)
	}

	if trackErr := sc.TrackTask(*task); trackErr != nil {
		log.Warn("refusing to track foreign task", "error", trackErr)
	}

	return task
}

/*
ExecutePlanStream executes steps sequentially, re-yielding every chunk from
each agent's stream tagged with the agent name. A per-step stream failure
becomes an error event and the remaining steps still run. The sequence
always ends with a terminal event: a completed summary, never a silent
close.
*/
func (executor *Executor) ExecutePlanStream(ctx context.Context, plan *Plan) <-chan a2a.StreamEvent {
	events := make(chan a2a.StreamEvent)

	go func() {
		defer close(events)

		sc := NewContext(plan.SessionID, plan.Query, plan.SelectedAgents)
		executor.sessions.Register(sc)
		defer executor.sessions.Remove(plan.SessionID)

		message := a2a.NewTextMessage(a2a.RoleUser, plan.Query)
		message.SessionID = plan.SessionID
		sc.AddHistory(message)

		completed := 0
		failed := 0

		for _, step := range plan.Steps {
			if streamStep(ctx, executor.pool, step, message, sc, events) {
				completed++
			} else {
				failed++
			}
		}

		summary := fmt.Sprintf(
			"Processed %q across %d agent(s): %d completed, %d failed.",
			plan.Query, len(plan.Steps), completed, failed,
		)

		select {
		case events <- a2a.NewCompletedEvent("", summary):
		case <-ctx.Done():
		}
	}()

	return events
}

// streamStep relays one agent's stream; reports whether it ended cleanly.
func streamStep(ctx context.Context, pool *connection.Pool, step Step, message a2a.Message, sc *Context, events chan<- a2a.StreamEvent) bool {
	stream, err := pool.SendStreamTo(ctx, step.Agent, message, connection.SendOptions{
		SessionID: sc.SessionID,
		ContextID: sc.ContextID,
	})

	if err != nil {
		log.Warn("stream step failed to open", "agent", step.Agent, "error", err)

		select {
		case events <- a2a.NewErrorEvent(step.Agent, err.Error()):
		case <-ctx.Done():
		}

		return false
	}

	defer stream.Close()

	for {
		chunk, err := stream.Next()

		if err == io.EOF {
			return true
		}

		if err != nil {
			select {
			case events <- a2a.NewErrorEvent(step.Agent, err.Error()):
			case <-ctx.Done():
			}

			return false
		}

		select {
		case events <- a2a.NewChunkEvent(step.Agent, chunk):
		case <-ctx.Done():
			return false
		}
	}
}

// classify applies the at-least-one-success policy: failed only when every
// step failed (or there were no steps), completed otherwise.
func classify(results []StepResult) a2a.TaskState {
	if len(results) == 0 {
		return a2a.TaskStateFailed
	}

	for _, sr := range results {
		if sr.Task.Status.State != a2a.TaskStateFailed {
			return a2a.TaskStateCompleted
		}
	}

	return a2a.TaskStateFailed
}

/*
summarize produces a deterministic textual digest: the original query, step
counts, and an excerpt of up to three completed results. A placeholder for
model-generated summarization.
*/
func summarize(query string, results []StepResult) string {
	completed := 0
	failed := 0

	var excerpts []string

	for _, sr := range results {
		switch sr.Task.Status.State {
		case a2a.TaskStateCompleted:
			completed++

			if len(excerpts) < 3 {
				if text := sr.Task.Text(); text != "" {
					if len(text) > summaryExcerptLen {
						cut := summaryExcerptLen
						// Back up so the excerpt never splits a rune.
						for cut > 0 && !utf8.RuneStart(text[cut]) {
							cut--
						}
						text = text[:cut] + "..."
					}
					excerpts = append(excerpts, fmt.Sprintf("%s: %s", sr.Agent, text))
				}
			}
		case a2a.TaskStateFailed:
			failed++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query %q dispatched to %d agent(s): %d completed, %d failed.", query, len(results), completed, failed)

	for _, excerpt := range excerpts {
		sb.WriteString("\n- ")
		sb.WriteString(excerpt)
	}

	return sb.String()
}
