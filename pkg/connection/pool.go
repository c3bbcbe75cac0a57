package connection

import (
	"context"
	"net/http"
	"sync"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/errors"
	"github.com/agentmesh/agentmesh/pkg/sse"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

/*
Pool is the name-indexed registry of remote agent connections. All
connections share one pooled http.Client so concurrent fan-out reuses
transport connections.
*/
type Pool struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	client *http.Client
}

func NewPool() *Pool {
	return &Pool{
		conns:  make(map[string]*Connection),
		client: &http.Client{},
	}
}

/*
Add discovers the agent at url and stores the connection keyed by the
card's name. Discovery failure propagates; nothing is stored.
*/
func (pool *Pool) Add(ctx context.Context, url string) (a2a.AgentCard, error) {
	conn, err := New(ctx, pool.client, url)

	if err != nil {
		return a2a.AgentCard{}, err
	}

	pool.mu.Lock()
	pool.conns[conn.Name()] = conn
	pool.mu.Unlock()

	log.Info("remote agent added", "name", conn.Name(), "url", url)
	return conn.Card(), nil
}

// Remove drops a connection by name. Removing an absent name is a no-op.
func (pool *Pool) Remove(name string) {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	delete(pool.conns, name)
}

// Get looks a connection up by agent name.
func (pool *Pool) Get(name string) (*Connection, bool) {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	conn, ok := pool.conns[name]
	return conn, ok
}

// Names returns the registered agent names.
func (pool *Pool) Names() []string {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	names := make([]string, 0, len(pool.conns))

	for name := range pool.conns {
		names = append(names, name)
	}

	return names
}

// Cards returns every registered agent's card.
func (pool *Pool) Cards() []a2a.AgentCard {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	cards := make([]a2a.AgentCard, 0, len(pool.conns))

	for _, conn := range pool.conns {
		cards = append(cards, conn.Card())
	}

	return cards
}

// Infos returns the registry view of every connection.
func (pool *Pool) Infos() []RemoteAgentInfo {
	pool.mu.RLock()
	defer pool.mu.RUnlock()

	infos := make([]RemoteAgentInfo, 0, len(pool.conns))

	for _, conn := range pool.conns {
		infos = append(infos, conn.Info())
	}

	return infos
}

// SendTo sends a message to the named agent.
func (pool *Pool) SendTo(ctx context.Context, name string, message a2a.Message, opts SendOptions) (*a2a.Task, error) {
	conn, ok := pool.Get(name)

	if !ok {
		return nil, &errors.AgentNotFoundError{Name: name}
	}

	return conn.Send(ctx, message, opts)
}

// SendStreamTo opens a streaming call to the named agent.
func (pool *Pool) SendStreamTo(ctx context.Context, name string, message a2a.Message, opts SendOptions) (*sse.Decoder, error) {
	conn, ok := pool.Get(name)

	if !ok {
		return nil, &errors.AgentNotFoundError{Name: name}
	}

	return conn.SendStream(ctx, message, opts)
}

// Refresh re-discovers the named agent's card.
func (pool *Pool) Refresh(ctx context.Context, name string) error {
	conn, ok := pool.Get(name)

	if !ok {
		return &errors.AgentNotFoundError{Name: name}
	}

	return conn.Refresh(ctx)
}

/*
Broadcast sends the message to every named connection concurrently
(default: all). A per-target failure is captured as a synthetic failed task
for that name; partial failure never loses the other results. The returned
map is keyed by agent name and carries no ordering guarantee.
*/
func (pool *Pool) Broadcast(ctx context.Context, message a2a.Message, opts SendOptions, names ...string) map[string]*a2a.Task {
	if len(names) == 0 {
		names = pool.Names()
	}

	var (
		mu      sync.Mutex
		results = make(map[string]*a2a.Task, len(names))
		group   errgroup.Group
	)

	for _, name := range names {
		group.Go(func() error {
			task, err := pool.SendTo(ctx, name, message, opts)

			if err != nil {
				log.Warn("broadcast target failed", "name", name, "error", err)
				task = a2a.FailedTask(opts.SessionID, err)
			}

			mu.Lock()
			results[name] = task
			mu.Unlock()

			return nil
		})
	}

	// Errors are folded into synthetic tasks, so Wait cannot fail.
	_ = group.Wait()

	return results
}

// HealthCheckAll probes every connection concurrently.
func (pool *Pool) HealthCheckAll(ctx context.Context) map[string]bool {
	names := pool.Names()

	var (
		mu      sync.Mutex
		results = make(map[string]bool, len(names))
		group   errgroup.Group
	)

	for _, name := range names {
		group.Go(func() error {
			conn, ok := pool.Get(name)
			healthy := ok && conn.HealthCheck(ctx)

			mu.Lock()
			results[name] = healthy
			mu.Unlock()

			return nil
		})
	}

	_ = group.Wait()

	return results
}
