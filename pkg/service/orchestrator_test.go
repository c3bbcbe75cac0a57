package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/connection"
	"github.com/agentmesh/agentmesh/pkg/jsonrpc"
	"github.com/agentmesh/agentmesh/pkg/orchestrator"
)

// newRemoteAgent runs a real AgentServer on a random port via httptest so
// the orchestrator can discover and call it over HTTP.
func newRemoteAgent(name, description string) *httptest.Server {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)

	card := a2a.AgentCard{
		Name:        name,
		Description: description,
		Version:     "0.0.1",
		URL:         server.URL,
	}

	mux.HandleFunc("/a2a/cards", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]a2a.AgentCard{card})
	})

	mux.HandleFunc("/a2a/message/send", func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpc.Request
		_ = json.NewDecoder(r.Body).Decode(&req)

		var params a2a.MessageSendParams
		_ = json.Unmarshal(req.Params, &params)

		task := a2a.NewTask(params.SessionID)
		_ = task.Transition(a2a.TaskStateCompleted, nil)
		task.AddArtifact(a2a.NewTextArtifact("response", name+" answered"))

		json.NewEncoder(w).Encode(jsonrpc.NewResponse(req.ID, task))
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return server
}

func newTestOrchestratorServer() *OrchestratorServer {
	return NewOrchestratorServer(orchestrator.New(
		a2a.AgentCard{
			Name:        "orchestrator",
			Description: "Coordinates the registered agents",
			Version:     "0.0.1",
			URL:         "http://test.local",
		},
		orchestrator.PlannerConfig{},
	))
}

func TestOrchestratorServerCards(t *testing.T) {
	Convey("Given an orchestrator server", t, func() {
		srv := newTestOrchestratorServer()

		Convey("GET /a2a/cards lists the orchestrator's own card", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/cards", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			var cards []a2a.AgentCard
			So(json.NewDecoder(resp.Body).Decode(&cards), ShouldBeNil)
			So(len(cards), ShouldEqual, 1)
			So(cards[0].Name, ShouldEqual, "orchestrator")
		})

		Convey("GET /a2a/cards/orchestrator answers the own card", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/cards/orchestrator", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)
		})

		Convey("An unknown card name is a 404", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/cards/ghost", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 404)
		})
	})
}

func TestOrchestratorServerAgents(t *testing.T) {
	Convey("Given an orchestrator server and a reachable remote agent", t, func() {
		srv := newTestOrchestratorServer()

		remote := newRemoteAgent("math-agent", "Solves math and arithmetic problems")
		defer remote.Close()

		Convey("POST /a2a/agents/add registers the agent", func() {
			target := fmt.Sprintf("/a2a/agents/add?agent_url=%s", remote.URL)
			resp, err := srv.App().Test(httptest.NewRequest("POST", target, nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 201)

			Convey("GET /a2a/agents now lists it", func() {
				resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/agents", nil))

				So(err, ShouldBeNil)

				var infos []connection.RemoteAgentInfo
				So(json.NewDecoder(resp.Body).Decode(&infos), ShouldBeNil)
				So(len(infos), ShouldEqual, 1)
				So(infos[0].Name, ShouldEqual, "math-agent")
			})

			Convey("GET /a2a/health/agents probes it", func() {
				resp, err := srv.App().Test(
					httptest.NewRequest("GET", "/a2a/health/agents", nil),
					fiber.TestConfig{Timeout: 10 * time.Second},
				)

				So(err, ShouldBeNil)

				var health map[string]bool
				So(json.NewDecoder(resp.Body).Decode(&health), ShouldBeNil)
				So(health["math-agent"], ShouldBeTrue)
			})

			Convey("DELETE /a2a/agents/:name removes it", func() {
				resp, err := srv.App().Test(httptest.NewRequest("DELETE", "/a2a/agents/math-agent", nil))

				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, 200)

				resp, err = srv.App().Test(httptest.NewRequest("GET", "/a2a/agents", nil))
				So(err, ShouldBeNil)

				var infos []connection.RemoteAgentInfo
				So(json.NewDecoder(resp.Body).Decode(&infos), ShouldBeNil)
				So(infos, ShouldBeEmpty)
			})
		})

		Convey("Adding an unreachable url fails without registering", func() {
			resp, err := srv.App().Test(
				httptest.NewRequest("POST", "/a2a/agents/add?agent_url=http://127.0.0.1:1", nil),
				fiber.TestConfig{Timeout: 10 * time.Second},
			)

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldNotEqual, 201)
		})
	})
}

func TestOrchestratorServerOrchestrate(t *testing.T) {
	Convey("Given an orchestrator server with one registered agent", t, func() {
		srv := newTestOrchestratorServer()

		remote := newRemoteAgent("math-agent", "Solves math and arithmetic problems")
		defer remote.Close()

		target := fmt.Sprintf("/a2a/agents/add?agent_url=%s", remote.URL)
		resp, err := srv.App().Test(httptest.NewRequest("POST", target, nil))
		So(err, ShouldBeNil)
		So(resp.StatusCode, ShouldEqual, 201)

		Convey("POST /a2a/orchestrate executes the query", func() {
			resp, err := srv.App().Test(
				httptest.NewRequest("POST", "/a2a/orchestrate?query=solve+this+math+problem&session_id=session-1", nil),
				fiber.TestConfig{Timeout: 10 * time.Second},
			)

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			var result orchestrator.Result
			So(json.NewDecoder(resp.Body).Decode(&result), ShouldBeNil)
			So(result.State, ShouldEqual, a2a.TaskStateCompleted)
			So(result.SessionID, ShouldEqual, "session-1")

			Convey("The plan is retrievable for audit", func() {
				resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/plans/"+result.PlanID, nil))

				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, 200)
			})
		})

		Convey("A missing query is a 400", func() {
			resp, err := srv.App().Test(httptest.NewRequest("POST", "/a2a/orchestrate", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 400)
		})

		Convey("message/send drives an orchestration", func() {
			params := a2a.MessageSendParams{
				ID:        "req-1",
				SessionID: "session-2",
				Message:   a2a.NewTextMessage(a2a.RoleUser, "solve this math problem"),
			}

			req := httptest.NewRequest("POST", "/a2a/message/send", rpcBody(a2a.MethodMessageSend, params))
			req.Header.Set("Content-Type", "application/json")

			resp, err := srv.App().Test(req, fiber.TestConfig{Timeout: 10 * time.Second})

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 200)

			rpcResp := decodeResponse(resp.Body)
			So(rpcResp.Error, ShouldBeNil)
		})

		Convey("message/send with the wrong method is -32601", func() {
			params := a2a.MessageSendParams{
				ID:      "req-1",
				Message: a2a.NewTextMessage(a2a.RoleUser, "hello"),
			}

			req := httptest.NewRequest("POST", "/a2a/message/send", rpcBody("message/stream", params))
			req.Header.Set("Content-Type", "application/json")

			resp, err := srv.App().Test(req)

			So(err, ShouldBeNil)

			rpcResp := decodeResponse(resp.Body)
			So(rpcResp.Error, ShouldNotBeNil)
			So(rpcResp.Error.Code, ShouldEqual, -32601)
		})

		Convey("GET /a2a/sessions is empty outside an execution", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/sessions", nil))

			So(err, ShouldBeNil)

			var ids []string
			So(json.NewDecoder(resp.Body).Decode(&ids), ShouldBeNil)
			So(ids, ShouldBeEmpty)
		})

		Convey("GET /a2a/sessions/:id for an unknown session is a 404", func() {
			resp, err := srv.App().Test(httptest.NewRequest("GET", "/a2a/sessions/ghost", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, 404)
		})
	})
}
