/*
Package connection owns the HTTP relationship with remote A2A agents. A
Connection wraps exactly one remote agent: it discovers the agent's card,
sends synchronous and streaming JSON-RPC calls, and health-checks the
endpoint. A Pool manages a named set of connections.
*/
package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/errors"
	"github.com/agentmesh/agentmesh/pkg/jsonrpc"
	"github.com/agentmesh/agentmesh/pkg/metrics"
	"github.com/agentmesh/agentmesh/pkg/sse"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	// RequestTimeout bounds one outbound message/send call.
	RequestTimeout = 30 * time.Second
	// HealthTimeout bounds one health probe.
	HealthTimeout = 5 * time.Second
)

// refreshRetry bounds the re-discovery attempts a Refresh makes before
// giving up on a flaky remote.
var refreshRetry = &errors.RetryConfig{
	MaxAttempts:   3,
	InitialDelay:  100 * time.Millisecond,
	MaxDelay:      time.Second,
	BackoffFactor: 2.0,
}

// AgentStatus tracks the liveness of a remote agent as seen from here.
type AgentStatus string

const (
	StatusActive   AgentStatus = "active"
	StatusInactive AgentStatus = "inactive"
	StatusError    AgentStatus = "error"
)

// RemoteAgentInfo is the registry view of one remote agent.
type RemoteAgentInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url"`
	Card        a2a.AgentCard `json:"card"`
	LastSeen    time.Time     `json:"last_seen"`
	Status      AgentStatus   `json:"status"`
}

// SendOptions carries the optional correlation ids of one send.
type SendOptions struct {
	SessionID           string
	ContextID           string
	TaskID              string
	AcceptedOutputModes []string
}

// Connection is the client wrapper around one remote agent. Safe for
// concurrent use: the only shared state is the pooled http.Client.
type Connection struct {
	mu       sync.RWMutex
	card     a2a.AgentCard
	url      string
	client   *http.Client
	lastSeen time.Time
	status   AgentStatus
	failures int
}

/*
Discover fetches and parses the remote card at {url}/a2a/cards. The
endpoint may answer with a single card or a list; a list yields its first
element.
*/
func Discover(ctx context.Context, client *http.Client, url string) (a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/a2a/cards", nil)

	if err != nil {
		return a2a.AgentCard{}, &errors.DiscoveryError{URL: url, Message: "bad url", Err: err}
	}

	resp, err := client.Do(req)

	if err != nil {
		return a2a.AgentCard{}, &errors.DiscoveryError{URL: url, Message: "request failed", Err: err}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return a2a.AgentCard{}, &errors.DiscoveryError{
			URL:     url,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		return a2a.AgentCard{}, &errors.DiscoveryError{URL: url, Message: "read failed", Err: err}
	}

	card, err := parseCardPayload(body)

	if err != nil {
		return a2a.AgentCard{}, &errors.DiscoveryError{URL: url, Message: "bad card payload", Err: err}
	}

	if rpcErr := card.Validate(); rpcErr != nil {
		return a2a.AgentCard{}, &errors.DiscoveryError{URL: url, Message: rpcErr.Message}
	}

	return card, nil
}

func parseCardPayload(body []byte) (a2a.AgentCard, error) {
	body = bytes.TrimSpace(body)

	if len(body) > 0 && body[0] == '[' {
		var cards []a2a.AgentCard

		if err := json.Unmarshal(body, &cards); err != nil {
			return a2a.AgentCard{}, err
		}

		if len(cards) == 0 {
			return a2a.AgentCard{}, fmt.Errorf("empty card list")
		}

		return cards[0], nil
	}

	var card a2a.AgentCard

	if err := json.Unmarshal(body, &card); err != nil {
		return a2a.AgentCard{}, err
	}

	return card, nil
}

// New discovers the agent at url and wraps it in a Connection. The
// http.Client is shared with the owning pool for connection reuse.
func New(ctx context.Context, client *http.Client, url string) (*Connection, error) {
	if client == nil {
		client = &http.Client{}
	}

	card, err := Discover(ctx, client, url)

	if err != nil {
		return nil, err
	}

	return &Connection{
		card:     card,
		url:      url,
		client:   client,
		lastSeen: time.Now(),
		status:   StatusActive,
	}, nil
}

func (conn *Connection) Name() string { return conn.card.Name }
func (conn *Connection) URL() string  { return conn.url }

func (conn *Connection) Card() a2a.AgentCard {
	conn.mu.RLock()
	defer conn.mu.RUnlock()

	return conn.card
}

// Info returns the registry view of this connection.
func (conn *Connection) Info() RemoteAgentInfo {
	conn.mu.RLock()
	defer conn.mu.RUnlock()

	return RemoteAgentInfo{
		Name:        conn.card.Name,
		Description: conn.card.Description,
		URL:         conn.url,
		Card:        conn.card,
		LastSeen:    conn.lastSeen,
		Status:      conn.status,
	}
}

// Refresh re-discovers the remote card, retrying transient failures with
// backoff. The card is immutable between refreshes.
func (conn *Connection) Refresh(ctx context.Context) error {
	var card a2a.AgentCard

	err := errors.RetryWithBackoff(refreshRetry, func() error {
		var discoverErr error
		card, discoverErr = Discover(ctx, conn.client, conn.url)
		return discoverErr
	})

	if err != nil {
		conn.recordFailure()
		return err
	}

	conn.mu.Lock()
	conn.card = card
	conn.lastSeen = time.Now()
	conn.status = StatusActive
	conn.failures = 0
	conn.mu.Unlock()

	return nil
}

/*
Send posts a message/send JSON-RPC call and parses the result into a Task.
Transport failures surface as CommunicationError, a JSON-RPC error object
from the remote as RemoteAgentError with the remote's message preserved.
*/
func (conn *Connection) Send(ctx context.Context, message a2a.Message, opts SendOptions) (*a2a.Task, error) {
	start := time.Now()
	task, err := conn.send(ctx, a2a.MethodMessageSend, message, opts)

	status := "ok"
	if err != nil {
		status = "error"
	}

	metrics.Metrics.OutboundRequests.WithLabelValues(a2a.MethodMessageSend, status).Inc()
	metrics.Metrics.RequestDuration.WithLabelValues(a2a.MethodMessageSend).Observe(time.Since(start).Seconds())

	return task, err
}

func (conn *Connection) send(ctx context.Context, method string, message a2a.Message, opts SendOptions) (*a2a.Task, error) {
	// The timeout has to cover the body read below, so it is scoped
	// here rather than inside post.
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	resp, err := conn.post(ctx, method, message, opts)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		conn.recordFailure()
		return nil, &errors.CommunicationError{
			URL:     conn.url,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	var rpcResp jsonrpc.Response

	raw, err := io.ReadAll(resp.Body)

	if err != nil {
		conn.recordFailure()
		return nil, &errors.CommunicationError{URL: conn.url, Message: "read failed", Err: err}
	}

	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		conn.recordFailure()
		return nil, &errors.CommunicationError{URL: conn.url, Message: "malformed response", Err: err}
	}

	if rpcResp.Error != nil {
		// The remote answered; the protocol worked, the agent did not.
		conn.touch()
		return nil, &errors.RemoteAgentError{
			Agent:   conn.card.Name,
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
	}

	buf, err := json.Marshal(rpcResp.Result)

	if err != nil {
		return nil, &errors.CommunicationError{URL: conn.url, Message: "bad result payload", Err: err}
	}

	var task a2a.Task

	if err := json.Unmarshal(buf, &task); err != nil {
		return nil, &errors.CommunicationError{URL: conn.url, Message: "result is not a task", Err: err}
	}

	conn.touch()
	return &task, nil
}

/*
SendStream posts a message/stream call and returns a decoder over the SSE
response. The sequence is finite: it ends at the [DONE] sentinel or when
the remote closes the connection. A fresh call opens a new, independent
stream.
*/
func (conn *Connection) SendStream(ctx context.Context, message a2a.Message, opts SendOptions) (*sse.Decoder, error) {
	resp, err := conn.post(ctx, a2a.MethodMessageStream, message, opts)

	if err != nil {
		metrics.Metrics.OutboundRequests.WithLabelValues(a2a.MethodMessageStream, "error").Inc()
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		conn.recordFailure()
		metrics.Metrics.OutboundRequests.WithLabelValues(a2a.MethodMessageStream, "error").Inc()
		return nil, &errors.CommunicationError{
			URL:     conn.url,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	conn.touch()
	metrics.Metrics.OutboundRequests.WithLabelValues(a2a.MethodMessageStream, "ok").Inc()

	return sse.NewDecoder(resp.Body), nil
}

// post issues a JSON-RPC call and returns the raw response. Callers own
// the response body and the lifetime of ctx while they read it.
func (conn *Connection) post(ctx context.Context, method string, message a2a.Message, opts SendOptions) (*http.Response, error) {
	params := a2a.MessageSendParams{
		ID:                  uuid.NewString(),
		SessionID:           opts.SessionID,
		ContextID:           opts.ContextID,
		AcceptedOutputModes: opts.AcceptedOutputModes,
		Message:             message,
	}

	if opts.TaskID != "" {
		params.Message.TaskID = opts.TaskID
	}

	if rpcErr := params.Validate(); rpcErr != nil {
		return nil, rpcErr
	}

	req, rpcErr := jsonrpc.NewRequest(json.RawMessage(`"`+params.ID+`"`), method, params)

	if rpcErr != nil {
		return nil, rpcErr
	}

	body, err := json.Marshal(req)

	if err != nil {
		return nil, &errors.CommunicationError{URL: conn.url, Message: "marshal failed", Err: err}
	}

	endpoint := conn.url + "/a2a/" + method
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))

	if err != nil {
		return nil, &errors.CommunicationError{URL: conn.url, Message: "bad request", Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")

	if method == a2a.MethodMessageStream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := conn.client.Do(httpReq)

	if err != nil {
		conn.recordFailure()
		return nil, &errors.CommunicationError{URL: conn.url, Message: "request failed", Err: err}
	}

	return resp, nil
}

/*
HealthCheck probes {url}/health with a short timeout. It never returns an
error: any failure, timeout or non-200 yields false.
*/
func (conn *Connection) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, conn.url+"/health", nil)

	if err != nil {
		metrics.Metrics.HealthChecks.WithLabelValues("error").Inc()
		return false
	}

	resp, err := conn.client.Do(req)

	if err != nil {
		conn.recordFailure()
		metrics.Metrics.HealthChecks.WithLabelValues("error").Inc()
		return false
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		conn.recordFailure()
		metrics.Metrics.HealthChecks.WithLabelValues("unhealthy").Inc()
		return false
	}

	conn.touch()
	metrics.Metrics.HealthChecks.WithLabelValues("healthy").Inc()
	return true
}

func (conn *Connection) touch() {
	conn.mu.Lock()
	conn.lastSeen = time.Now()
	conn.status = StatusActive
	conn.failures = 0
	conn.mu.Unlock()
}

// recordFailure marks failed contact; three consecutive failures flip the
// agent to inactive.
func (conn *Connection) recordFailure() {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	conn.failures++
	conn.status = StatusError

	if conn.failures >= 3 {
		conn.status = StatusInactive
		log.Warn("remote agent marked inactive", "name", conn.card.Name, "failures", conn.failures)
	}
}
