package service

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/agent"
	"github.com/agentmesh/agentmesh/pkg/jsonrpc"
	"github.com/agentmesh/agentmesh/pkg/stores"
	"github.com/agentmesh/agentmesh/pkg/tasks"
)

func newTestAgentServer() *AgentServer {
	return NewAgentServer(agent.New(
		a2a.AgentCard{
			Name:        "echo-agent",
			Description: "Echoes messages back",
			Version:     "0.0.1",
			URL:         "http://test.local",
		},
		agent.NewEchoHandler(),
		tasks.NewTracker(stores.NewInMemoryTaskStore()),
	))
}

func rpcBody(method string, params any) *bytes.Reader {
	req, rpcErr := jsonrpc.NewRequest(json.RawMessage(`"req-1"`), method, params)
	if rpcErr != nil {
		panic(rpcErr)
	}

	buf, err := json.Marshal(req)
	if err != nil {
		panic(err)
	}

	return bytes.NewReader(buf)
}

func decodeResponse(body io.Reader) jsonrpc.Response {
	var resp jsonrpc.Response
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		panic(err)
	}
	return resp
}

func TestAgentServerHealth(t *testing.T) {
	Convey("Given an agent server", t, func() {
		srv := newTestAgentServer()

		Convey("GET /health answers ok", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/health", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)
		})

		Convey("GET /metrics exposes the prometheus registry", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/metrics", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			body, _ := io.ReadAll(resp.Body)
			So(string(body), ShouldContainSubstring, "agentmesh")
		})
	})
}

func TestAgentServerCards(t *testing.T) {
	Convey("Given an agent server", t, func() {
		srv := newTestAgentServer()

		Convey("GET /a2a/cards lists the agent's own card", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/cards", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			var cards []a2a.AgentCard
			So(json.NewDecoder(resp.Body).Decode(&cards), ShouldBeNil)
			So(len(cards), ShouldEqual, 1)
			So(cards[0].Name, ShouldEqual, "echo-agent")
		})

		Convey("GET /a2a/cards/:name fetches one card", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/cards/echo-agent", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)
		})

		Convey("An unknown name is a 404", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/cards/ghost", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 404)
		})
	})
}

func TestAgentServerDiscover(t *testing.T) {
	Convey("Given an agent server", t, func() {
		srv := newTestAgentServer()

		Convey("POST /a2a/discover scores the query", func() {
			body, _ := json.Marshal(DiscoverRequest{Query: "echoes messages"})
			req := httptest.NewRequest("POST", "/a2a/discover", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := srv.App().Test(req)

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			var scored []map[string]any
			So(json.NewDecoder(resp.Body).Decode(&scored), ShouldBeNil)
			So(len(scored), ShouldEqual, 1)
		})
	})
}

func TestAgentServerSend(t *testing.T) {
	Convey("Given an agent server", t, func() {
		srv := newTestAgentServer()

		params := a2a.MessageSendParams{
			ID:        "req-1",
			SessionID: "session-1",
			Message:   a2a.NewTextMessage(a2a.RoleUser, "hello"),
		}

		Convey("A valid message/send returns the completed task", func() {
			req := httptest.NewRequest("POST", "/a2a/message/send", rpcBody(a2a.MethodMessageSend, params))
			req.Header.Set("Content-Type", "application/json")

			resp, err := srv.App().Test(req)

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			rpcResp := decodeResponse(resp.Body)
			So(rpcResp.Error, ShouldBeNil)

			buf, _ := json.Marshal(rpcResp.Result)
			var task a2a.Task
			So(json.Unmarshal(buf, &task), ShouldBeNil)
			So(task.Status.State, ShouldEqual, a2a.TaskStateCompleted)
			So(task.Text(), ShouldEqual, "hello")
		})

		Convey("A wrong method is -32601 on HTTP 200", func() {
			req := httptest.NewRequest("POST", "/a2a/message/send", rpcBody("tasks/steal", params))
			req.Header.Set("Content-Type", "application/json")

			resp, err := srv.App().Test(req)

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			rpcResp := decodeResponse(resp.Body)
			So(rpcResp.Error, ShouldNotBeNil)
			So(rpcResp.Error.Code, ShouldEqual, -32601)
		})

		Convey("A malformed body is -32700 on HTTP 200", func() {
			req := httptest.NewRequest("POST", "/a2a/message/send", strings.NewReader("{not json"))
			req.Header.Set("Content-Type", "application/json")

			resp, err := srv.App().Test(req)

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			rpcResp := decodeResponse(resp.Body)
			So(rpcResp.Error, ShouldNotBeNil)
			So(rpcResp.Error.Code, ShouldEqual, -32700)
		})

		Convey("Invalid params are -32602 on HTTP 200", func() {
			bad := a2a.MessageSendParams{ID: "req-1"}
			req := httptest.NewRequest("POST", "/a2a/message/send", rpcBody(a2a.MethodMessageSend, bad))
			req.Header.Set("Content-Type", "application/json")

			resp, err := srv.App().Test(req)

			So(err, ShouldBeNil)

			rpcResp := decodeResponse(resp.Body)
			So(rpcResp.Error, ShouldNotBeNil)
			So(rpcResp.Error.Code, ShouldEqual, -32602)
		})
	})
}

func TestAgentServerStream(t *testing.T) {
	Convey("Given an agent server", t, func() {
		srv := newTestAgentServer()

		params := a2a.MessageSendParams{
			ID:        "req-1",
			SessionID: "session-1",
			Message:   a2a.NewTextMessage(a2a.RoleUser, "hello"),
		}

		Convey("message/stream answers SSE frames ending with [DONE]", func() {
			req := httptest.NewRequest("POST", "/a2a/message/stream", rpcBody(a2a.MethodMessageStream, params))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "text/event-stream")

			resp, err := srv.App().Test(req, fiber.TestConfig{Timeout: 5 * time.Second})

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			body, _ := io.ReadAll(resp.Body)
			text := string(body)

			So(text, ShouldContainSubstring, `"type":"working"`)
			So(text, ShouldContainSubstring, `"type":"completed"`)
			So(strings.TrimSpace(text), ShouldEndWith, "data: [DONE]")
		})
	})
}

func TestAgentServerTasks(t *testing.T) {
	Convey("Given an agent server", t, func() {
		srv := newTestAgentServer()

		Convey("GET /a2a/tasks starts empty", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/tasks", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			var active []a2a.Task
			So(json.NewDecoder(resp.Body).Decode(&active), ShouldBeNil)
			So(active, ShouldBeEmpty)
		})

		Convey("DELETE of an unknown task is a 404", func() {
			resp, err := srv.App().Test(httptest.NewRequest("DELETE", "/a2a/tasks/nonexistent", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 404)
		})
	})
}
