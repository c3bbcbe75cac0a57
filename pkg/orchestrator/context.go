/*
Package orchestrator turns a user query into a plan over discovered agents
and executes it through the connection pool. Planning and execution are
separate types wired together at startup; nothing here is a global.
*/
package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/metrics"
)

/*
Context is the ephemeral per-session orchestration state. It exists exactly
for the lifetime of one plan execution and lives only in process memory; a
restart loses it.
*/
type Context struct {
	SessionID   string              `json:"session_id"`
	ContextID   string              `json:"context_id,omitempty"`
	UserQuery   string              `json:"user_query"`
	Agents      []string            `json:"agents,omitempty"`
	ActiveTasks map[string]a2a.Task `json:"active_tasks,omitempty"`
	History     []a2a.Message       `json:"history,omitempty"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
	StartedAt   time.Time           `json:"started_at"`

	mu sync.Mutex
}

func NewContext(sessionID, query string, agents []string) *Context {
	return &Context{
		SessionID:   sessionID,
		UserQuery:   query,
		Agents:      agents,
		ActiveTasks: make(map[string]a2a.Task),
		StartedAt:   time.Now(),
	}
}

// TrackTask records a task under this session. A task belonging to another
// session is rejected.
func (sc *Context) TrackTask(task a2a.Task) error {
	if task.SessionID != "" && task.SessionID != sc.SessionID {
		return fmt.Errorf("task %s belongs to session %s, not %s", task.ID, task.SessionID, sc.SessionID)
	}

	sc.mu.Lock()
	sc.ActiveTasks[task.ID] = task
	sc.mu.Unlock()

	return nil
}

// AddHistory appends a message to the conversation history.
func (sc *Context) AddHistory(message a2a.Message) {
	sc.mu.Lock()
	sc.History = append(sc.History, message)
	sc.mu.Unlock()
}

/*
Sessions is the active-session map. A session is registered when execution
starts and always removed when it finishes, success or not.
*/
type Sessions struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

func NewSessions() *Sessions {
	return &Sessions{
		contexts: make(map[string]*Context),
	}
}

func (sessions *Sessions) Register(sc *Context) {
	sessions.mu.Lock()
	sessions.contexts[sc.SessionID] = sc
	sessions.mu.Unlock()

	metrics.Metrics.ActiveSessions.Inc()
}

func (sessions *Sessions) Remove(sessionID string) {
	sessions.mu.Lock()
	_, ok := sessions.contexts[sessionID]
	delete(sessions.contexts, sessionID)
	sessions.mu.Unlock()

	if ok {
		metrics.Metrics.ActiveSessions.Dec()
	}
}

func (sessions *Sessions) Get(sessionID string) (*Context, bool) {
	sessions.mu.RLock()
	defer sessions.mu.RUnlock()

	sc, ok := sessions.contexts[sessionID]
	return sc, ok
}

func (sessions *Sessions) List() []*Context {
	sessions.mu.RLock()
	defer sessions.mu.RUnlock()

	out := make([]*Context, 0, len(sessions.contexts))

	for _, sc := range sessions.contexts {
		out = append(out, sc)
	}

	return out
}
