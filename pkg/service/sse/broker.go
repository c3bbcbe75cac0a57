/*
Package sse implements the serving side of the streaming transport: a
broadcast broker for monitoring subscribers, and the frame writer used by
the per-request message/stream responses.
*/
package sse

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

/*
Broker maintains a set of subscribers and broadcasts JSON-encoded events to
all of them. Each event is sent as a single-line SSE message of the form:

data: {json}\n\n
*/
type Broker struct {
	mu        sync.RWMutex
	clients   map[chan []byte]struct{}
	closed    bool
	heartbeat time.Duration
}

func NewBroker() *Broker {
	return &Broker{
		clients:   make(map[chan []byte]struct{}),
		heartbeat: 25 * time.Second,
	}
}

// NewTestBroker creates a broker with a short heartbeat for tests.
func NewTestBroker() *Broker {
	broker := NewBroker()
	broker.heartbeat = 100 * time.Millisecond
	return broker
}

/*
Subscribe upgrades the HTTP connection to an SSE stream and blocks until
the client disconnects. Use from an HTTP handler.
*/
func (broker *Broker) Subscribe(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)

	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan []byte, 8)
	broker.mu.Lock()

	if broker.closed {
		broker.mu.Unlock()
		http.Error(w, "broker closed", http.StatusGone)
		return
	}

	broker.clients[ch] = struct{}{}
	broker.mu.Unlock()

	// heartbeat ticker keeps the connection alive through proxies.
	ticker := time.NewTicker(broker.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			broker.remove(ch)
			return
		case msg, ok := <-ch:
			if !ok {
				// Close shut the channel under us.
				return
			}

			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(msg)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ticker.C:
			_, _ = w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()
		}
	}
}

/*
Broadcast marshals v to JSON and sends it to all connected clients. A slow
client drops the message rather than blocking the broadcast.
*/
func (broker *Broker) Broadcast(v any) error {
	msg, err := json.Marshal(v)

	if err != nil {
		return err
	}

	broker.mu.RLock()
	defer broker.mu.RUnlock()

	if broker.closed {
		return nil
	}

	for ch := range broker.clients {
		select {
		case ch <- msg:
		default:
		}
	}

	return nil
}

/*
Close disconnects all clients and prevents further subscriptions.
*/
func (broker *Broker) Close() {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	if broker.closed {
		return
	}

	broker.closed = true

	for ch := range broker.clients {
		close(ch)
	}

	broker.clients = map[chan []byte]struct{}{}
}

func (broker *Broker) remove(ch chan []byte) {
	broker.mu.Lock()

	if _, ok := broker.clients[ch]; ok {
		delete(broker.clients, ch)
		close(ch)
	}

	broker.mu.Unlock()
}
