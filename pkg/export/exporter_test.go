package export

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rulewarden/warden/pkg/deploy"
	"rulewarden/warden/pkg/rule"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "FailedLogins", "FailedLogins"},
		{"spaces collapse", "Failed   Login Attempts", "Failed-Login-Attempts"},
		{"invalid chars", `a/b\c:d*e?f"g<h>i|j`, "a-b-c-d-e-f-g-h-i-j"},
		{"mixed runs collapse", "a / : b", "a-b"},
		{"kept punctuation", "rule_v1.2-final", "rule_v1.2-final"},
		{"leading and trailing junk trimmed", "  (alert)  ", "alert"},
		{"empty becomes untitled", "", "untitled"},
		{"only junk becomes untitled", "///", "untitled"},
		{"long title capped", strings.Repeat("a", 150), strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.title); got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name   string
		doc    rule.Document
		want   string
		wantOK bool
	}{
		{"string id", rule.Document{"id": "r-1", "title": "Failed Logins"}, "r-1_Failed-Logins.json", true},
		{"numeric id", rule.Document{"id": float64(42), "title": "X"}, "42_X.json", true},
		{"missing id", rule.Document{"title": "X"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Filename(tt.doc)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Filename() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// pagedServer serves a fixed rule set over paginated search requests.
func pagedServer(t *testing.T, rules []map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req deploy.SearchRequest
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)

		start := (req.Pagination.PageNumber - 1) * req.Pagination.PageSize
		end := start + req.Pagination.PageSize
		if start > len(rules) {
			start = len(rules)
		}
		if end > len(rules) {
			end = len(rules)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"total":   len(rules),
			"results": rules[start:end],
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExporter_Run_PaginatesWholeAccount(t *testing.T) {
	rules := make([]map[string]any, 0, 5)
	for _, id := range []string{"r-1", "r-2", "r-3", "r-4", "r-5"} {
		rules = append(rules, map[string]any{"id": id, "title": "Rule " + id})
	}
	server := pagedServer(t, rules)

	outDir := t.TempDir()
	client := deploy.NewClient(deploy.ClientConfig{BaseURL: server.URL, APIToken: "t"}, quietLogger(), nil)
	exporter := New(client, Config{
		SearchEndpoints: []string{"/security/rules/search"},
		OutputDir:       outDir,
		PageSize:        2,
	}, quietLogger())

	summary, err := exporter.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Total != 5 || summary.Written != 5 || summary.Skipped != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Fatalf("got %d files, want 5", len(entries))
	}

	doc, err := rule.Load(filepath.Join(outDir, "r-1_Rule-r-1.json"))
	if err != nil {
		t.Fatalf("exported file unreadable: %v", err)
	}
	if doc.Title() != "Rule r-1" {
		t.Errorf("exported title = %q", doc.Title())
	}
}

func TestExporter_Run_EndpointFallback(t *testing.T) {
	rules := []map[string]any{{"id": "r-1", "title": "Only Rule"}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/siem/rules/search" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"total": 1, "results": rules})
	}))
	t.Cleanup(server.Close)

	client := deploy.NewClient(deploy.ClientConfig{BaseURL: server.URL, APIToken: "t"}, quietLogger(), nil)
	exporter := New(client, Config{
		SearchEndpoints: []string{"/security/rules/search", "/siem/rules/search"},
		OutputDir:       t.TempDir(),
	}, quietLogger())

	summary, err := exporter.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Endpoint != "/siem/rules/search" {
		t.Errorf("endpoint = %q, want the fallback", summary.Endpoint)
	}
	if summary.Written != 1 {
		t.Errorf("written = %d", summary.Written)
	}
}

func TestExporter_Run_NoEndpointAnswers(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	client := deploy.NewClient(deploy.ClientConfig{BaseURL: server.URL, APIToken: "t"}, quietLogger(), nil)
	exporter := New(client, Config{
		SearchEndpoints: []string{"/security/rules/search"},
		OutputDir:       t.TempDir(),
	}, quietLogger())

	if _, err := exporter.Run(context.Background()); err == nil {
		t.Fatal("expected error when no endpoint answers")
	}
}

func TestExporter_Run_SkipsRulesWithoutID(t *testing.T) {
	rules := []map[string]any{
		{"id": "r-1", "title": "Fine"},
		{"title": "No ID Here"},
	}
	server := pagedServer(t, rules)

	client := deploy.NewClient(deploy.ClientConfig{BaseURL: server.URL, APIToken: "t"}, quietLogger(), nil)
	exporter := New(client, Config{
		SearchEndpoints: []string{"/security/rules/search"},
		OutputDir:       t.TempDir(),
	}, quietLogger())

	summary, err := exporter.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Written != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestExporter_Run_SendsTagFilter(t *testing.T) {
	var gotTags []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req deploy.SearchRequest
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &req)
		gotTags = req.Filter.Tags
		json.NewEncoder(w).Encode(map[string]any{"total": 0, "results": []any{}})
	}))
	t.Cleanup(server.Close)

	client := deploy.NewClient(deploy.ClientConfig{BaseURL: server.URL, APIToken: "t"}, quietLogger(), nil)
	exporter := New(client, Config{
		SearchEndpoints: []string{"/security/rules/search"},
		OutputDir:       t.TempDir(),
		Tags:            []string{"soc", "prod"},
	}, quietLogger())

	if _, err := exporter.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(gotTags) != 2 || gotTags[0] != "soc" {
		t.Errorf("tags sent = %v", gotTags)
	}
}

// countingProgress captures progress events for assertion.
type countingProgress struct {
	total    int
	steps    []string
	finished bool
}

func (p *countingProgress) Start(total int) { p.total = total }
func (p *countingProgress) Step(label string) {
	p.steps = append(p.steps, label)
}
func (p *countingProgress) Finish() { p.finished = true }

func TestExporter_Run_ReportsProgress(t *testing.T) {
	rules := []map[string]any{
		{"id": "r-1", "title": "Rule r-1"},
		{"title": "no id, skipped"},
		{"id": "r-2", "title": "Rule r-2"},
	}
	server := pagedServer(t, rules)

	client := deploy.NewClient(deploy.ClientConfig{BaseURL: server.URL, APIToken: "t"}, quietLogger(), nil)
	exporter := New(client, Config{
		SearchEndpoints: []string{"/security/rules/search"},
		OutputDir:       t.TempDir(),
		PageSize:        10,
	}, quietLogger())
	progress := &countingProgress{}
	exporter.SetProgress(progress)

	if _, err := exporter.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if progress.total != 3 {
		t.Errorf("Start(total) = %d, want 3", progress.total)
	}
	// Only written files step the counter; skipped rules are reported in
	// the summary instead.
	want := []string{"r-1_Rule-r-1.json", "r-2_Rule-r-2.json"}
	if len(progress.steps) != len(want) {
		t.Fatalf("steps = %v, want %v", progress.steps, want)
	}
	for i, label := range want {
		if progress.steps[i] != label {
			t.Errorf("steps[%d] = %q, want %q", i, progress.steps[i], label)
		}
	}
	if !progress.finished {
		t.Error("Finish() not called")
	}
}
