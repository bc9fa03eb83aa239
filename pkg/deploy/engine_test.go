package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"rulewarden/warden/pkg/rule"
)

var testCreateEndpoints = []string{"/security/rules", "/siem/rules", "/correlation-rules"}

// fakeRemote is a scripted rule service. Responses are keyed by
// "METHOD path"; anything unscripted answers 404. Every call is recorded in
// arrival order.
type fakeRemote struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]fakeResponse
	server    *httptest.Server
}

type fakeResponse struct {
	status int
	body   string
	// hangUp closes the connection without answering, simulating a
	// transport-level failure.
	hangUp bool
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	f := &fakeRemote{responses: map[string]fakeResponse{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeRemote) handle(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.calls = append(f.calls, key)
	resp, ok := f.responses[key]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if resp.hangUp {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	if resp.body != "" {
		io.WriteString(w, resp.body)
	}
}

func (f *fakeRemote) script(key string, resp fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = resp
}

func (f *fakeRemote) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// stubIndex is a fixed RemoteIndex for engine tests; the search-backed
// implementation has its own tests.
type stubIndex struct {
	match Match
	err   error
}

func (s stubIndex) FindByTitle(ctx context.Context, title string) (Match, error) {
	return s.match, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(f *fakeRemote, index RemoteIndex) *Engine {
	client := NewClient(ClientConfig{BaseURL: f.server.URL, APIToken: "test-token"}, quietLogger(), nil)
	return NewEngine(EngineConfig{
		UpdateEndpoint:  "/security/rules",
		CreateEndpoints: testCreateEndpoints,
	}, client, index, quietLogger(), nil)
}

func testDoc(title string) rule.Document {
	return rule.Document{
		"title":                  title,
		"enabled":                true,
		"searchTimeFrameMinutes": 60,
		"subComponents": []any{
			rule.Document{
				"queryDefinition": rule.Document{"query": "status:failed"},
				"trigger": rule.Document{
					"operator":               "GREATER_THAN",
					"severityThresholdTiers": rule.Document{"HIGH": 10},
				},
			},
		},
	}
}

// A found title means exactly one update call against the id-parameterized
// target and no create calls.
func TestEngine_Apply_UpdatesExistingRule(t *testing.T) {
	f := newFakeRemote(t)
	f.script("PUT /security/rules/r-42", fakeResponse{status: 200, body: `{}`})

	engine := newTestEngine(f, stubIndex{match: Match{Exists: true, RemoteID: "r-42"}})
	outcome := engine.Apply(context.Background(), testDoc("Alert X"))

	if outcome.Status != StatusUpdated {
		t.Fatalf("status = %s, want UPDATED (%s)", outcome.Status, outcome.Message)
	}
	if outcome.RemoteID != "r-42" {
		t.Errorf("remote id = %q, want r-42", outcome.RemoteID)
	}

	calls := f.recorded()
	if len(calls) != 1 || calls[0] != "PUT /security/rules/r-42" {
		t.Errorf("expected exactly one update call, got %v", calls)
	}
}

// Updates have an unambiguous target, so a rejection is terminal: no retry,
// no fallback to the create endpoints.
func TestEngine_Apply_UpdateFailureIsTerminal(t *testing.T) {
	f := newFakeRemote(t)
	f.script("PUT /security/rules/r-42", fakeResponse{status: 400, body: `{"message":"bad tiers"}`})

	engine := newTestEngine(f, stubIndex{match: Match{Exists: true, RemoteID: "r-42"}})
	outcome := engine.Apply(context.Background(), testDoc("Alert X"))

	if outcome.Status != StatusFailed {
		t.Fatalf("status = %s, want FAILED", outcome.Status)
	}
	if !strings.Contains(outcome.Message, "bad tiers") {
		t.Errorf("message should carry the remote detail, got %q", outcome.Message)
	}
	if calls := f.recorded(); len(calls) != 1 {
		t.Errorf("expected no fallback after update rejection, got %v", calls)
	}
}

// 404 and 400 both advance to the next candidate; the first 2xx wins and
// carries the assigned id.
func TestEngine_Apply_CreateFallbackOrder(t *testing.T) {
	f := newFakeRemote(t)
	f.script("POST /siem/rules", fakeResponse{status: 400, body: `{"error":"wrong family"}`})
	f.script("POST /correlation-rules", fakeResponse{status: 200, body: `{"id":"r-99"}`})

	engine := newTestEngine(f, stubIndex{})
	outcome := engine.Apply(context.Background(), testDoc("New Alert"))

	if outcome.Status != StatusCreated {
		t.Fatalf("status = %s, want CREATED (%s)", outcome.Status, outcome.Message)
	}
	if outcome.RemoteID != "r-99" {
		t.Errorf("remote id = %q, want r-99", outcome.RemoteID)
	}
	if outcome.Endpoint != "/correlation-rules" {
		t.Errorf("endpoint = %q, want /correlation-rules", outcome.Endpoint)
	}

	want := []string{"POST /security/rules", "POST /siem/rules", "POST /correlation-rules"}
	if got := f.recorded(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("call order = %v, want %v", got, want)
	}
}

// Once a candidate accepts, later candidates are never invoked.
func TestEngine_Apply_CreateStopsAtFirstSuccess(t *testing.T) {
	f := newFakeRemote(t)
	f.script("POST /siem/rules", fakeResponse{status: 201, body: `{"id":"r-7"}`})
	f.script("POST /correlation-rules", fakeResponse{status: 200, body: `{"id":"never"}`})

	engine := newTestEngine(f, stubIndex{})
	outcome := engine.Apply(context.Background(), testDoc("New Alert"))

	if outcome.Status != StatusCreated || outcome.Endpoint != "/siem/rules" {
		t.Fatalf("outcome = %+v, want CREATED at /siem/rules", outcome)
	}
	for _, call := range f.recorded() {
		if call == "POST /correlation-rules" {
			t.Error("third candidate should never be invoked after a success")
		}
	}
}

func TestEngine_Apply_AllCandidatesRejected(t *testing.T) {
	f := newFakeRemote(t)
	f.script("POST /security/rules", fakeResponse{status: 400, body: `{"message":"nope"}`})
	f.script("POST /siem/rules", fakeResponse{status: 400, body: `{"message":"nope"}`})
	f.script("POST /correlation-rules", fakeResponse{status: 400, body: `{"message":"nope"}`})

	engine := newTestEngine(f, stubIndex{})
	outcome := engine.Apply(context.Background(), testDoc("Rejected Alert"))

	if outcome.Status != StatusFailed {
		t.Fatalf("status = %s, want FAILED", outcome.Status)
	}
	if !strings.Contains(outcome.Message, "no endpoint accepted") {
		t.Errorf("message should say no endpoint accepted the document, got %q", outcome.Message)
	}
}

// A dropped connection on one candidate is recoverable: the engine moves on.
func TestEngine_Apply_TransportFailureAdvances(t *testing.T) {
	f := newFakeRemote(t)
	f.script("POST /security/rules", fakeResponse{hangUp: true})
	f.script("POST /siem/rules", fakeResponse{status: 200, body: `{"id":"r-3"}`})

	engine := newTestEngine(f, stubIndex{})
	outcome := engine.Apply(context.Background(), testDoc("Flaky Alert"))

	if outcome.Status != StatusCreated || outcome.RemoteID != "r-3" {
		t.Fatalf("outcome = %+v, want CREATED with id r-3", outcome)
	}
}

// The document sent over the wire is the normalized one: server-owned
// fields never reach the remote service.
func TestEngine_Apply_SendsNormalizedDocument(t *testing.T) {
	var sent map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &sent)
		w.WriteHeader(200)
		io.WriteString(w, `{"id":"r-1"}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{BaseURL: server.URL, APIToken: "t"}, quietLogger(), nil)
	engine := NewEngine(EngineConfig{
		UpdateEndpoint:  "/security/rules",
		CreateEndpoints: []string{"/security/rules"},
	}, client, stubIndex{}, quietLogger(), nil)

	doc := testDoc("Exported Alert")
	doc["id"] = "r-old"
	doc["createdBy"] = "exporter"

	if outcome := engine.Apply(context.Background(), doc); outcome.Status != StatusCreated {
		t.Fatalf("outcome = %+v", outcome)
	}

	if _, ok := sent["id"]; ok {
		t.Error("server-owned id was sent to the remote service")
	}
	if _, ok := sent["createdBy"]; ok {
		t.Error("server-owned createdBy was sent to the remote service")
	}
	if _, ok := doc["id"]; !ok {
		t.Error("input document must not be mutated by Apply")
	}
}

// Given fixed remote responses, Apply is deterministic.
func TestEngine_Apply_Deterministic(t *testing.T) {
	f := newFakeRemote(t)
	f.script("POST /siem/rules", fakeResponse{status: 200, body: `{"id":"r-9"}`})

	engine := newTestEngine(f, stubIndex{})

	first := engine.Apply(context.Background(), testDoc("Stable Alert"))
	for i := 0; i < 5; i++ {
		again := engine.Apply(context.Background(), testDoc("Stable Alert"))
		if again != first {
			t.Fatalf("outcome changed between runs: %+v vs %+v", first, again)
		}
	}
}

// Candidate order comes from configuration, not from a package constant.
func TestEngine_Apply_HonorsConfiguredOrder(t *testing.T) {
	f := newFakeRemote(t)
	f.script("POST /correlation-rules", fakeResponse{status: 200, body: `{"id":"r-1"}`})
	f.script("POST /security/rules", fakeResponse{status: 200, body: `{"id":"r-2"}`})

	client := NewClient(ClientConfig{BaseURL: f.server.URL, APIToken: "t"}, quietLogger(), nil)
	engine := NewEngine(EngineConfig{
		UpdateEndpoint:  "/security/rules",
		CreateEndpoints: []string{"/correlation-rules", "/security/rules"},
	}, client, stubIndex{}, quietLogger(), nil)

	outcome := engine.Apply(context.Background(), testDoc("Reordered"))
	if outcome.Endpoint != "/correlation-rules" {
		t.Errorf("endpoint = %q, want the first configured candidate", outcome.Endpoint)
	}
}

func TestEngine_Plan_DoesNotWrite(t *testing.T) {
	f := newFakeRemote(t)

	engine := newTestEngine(f, stubIndex{match: Match{Exists: true, RemoteID: "r-5"}})
	match, err := engine.Plan(context.Background(), testDoc("Planned"))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !match.Exists || match.RemoteID != "r-5" {
		t.Errorf("match = %+v", match)
	}
	if calls := f.recorded(); len(calls) != 0 {
		t.Errorf("Plan must not touch the remote service, got %v", calls)
	}
}
