package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agentmesh/agentmesh/pkg/a2a"
)

func TestBrokerBroadcast(t *testing.T) {
	broker := NewTestBroker()
	defer broker.Close()

	ts, errTS := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		broker.Subscribe(w, r)
	}))
	if errTS != nil {
		t.Skip("network disabled; skipping SSE test")
	}
	defer ts.Close()

	client, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("client get: %v", err)
	}
	defer client.Body.Close()

	// Wait briefly to ensure subscription established.
	time.Sleep(50 * time.Millisecond)

	ev := a2a.NewCompletedEvent("task-1", "all done")
	if err := broker.Broadcast(ev); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	reader := bufio.NewReader(client.Body)
	var line string
	deadline := time.After(5 * time.Second)
L:
	for {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for SSE data line")
		default:
			var err error
			line, err = reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			// Skip blank lines and heartbeats
			if strings.TrimSpace(line) == "" || strings.HasPrefix(line, ":") {
				continue
			}
			if strings.HasPrefix(line, "data: ") {
				break L
			}
		}
	}

	payload := strings.TrimPrefix(strings.TrimSpace(line), "data: ")

	var got a2a.StreamEvent
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Type != a2a.StreamEventCompleted || got.TaskID != "task-1" || got.Summary != "all done" {
		t.Fatalf("event mismatch: %+v vs %+v", got, ev)
	}
}

func TestBrokerClose(t *testing.T) {
	broker := NewTestBroker()
	broker.Close()

	// Broadcast after close is a silent no-op.
	if err := broker.Broadcast(a2a.NewWorkingEvent("task-1", "still here")); err != nil {
		t.Fatalf("broadcast after close: %v", err)
	}

	// Subscribing after close is refused.
	rec := httptest.NewRecorder()
	broker.Subscribe(rec, httptest.NewRequest("GET", "/a2a/events", nil))

	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410 after close, got %d", rec.Code)
	}
}

func TestBrokerCloseEndsSubscribers(t *testing.T) {
	broker := NewTestBroker()

	ts, errTS := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		broker.Subscribe(w, r)
	}))
	if errTS != nil {
		t.Skip("network disabled; skipping SSE test")
	}
	defer ts.Close()

	client, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("client get: %v", err)
	}
	defer client.Body.Close()

	time.Sleep(50 * time.Millisecond)
	broker.Close()

	// The stream must end cleanly, not spin out empty frames.
	scanner := bufio.NewScanner(client.Body)
	for scanner.Scan() {
		if line := scanner.Text(); strings.TrimSpace(line) == "data:" {
			t.Fatalf("empty frame after close: %q", line)
		}
	}
}

// newTestServer wraps httptest.NewServer with a recover so sandboxed
// environments without listeners skip instead of panic.
func newTestServer(h http.Handler) (*httptest.Server, error) {
	var srv *httptest.Server
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("listener not permitted: %v", r)
			}
		}()
		srv = httptest.NewServer(h)
	}()
	return srv, err
}
