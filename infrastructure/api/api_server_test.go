package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/repokeeper/repokeeper/application/service"
	"github.com/repokeeper/repokeeper/domain/operation"
	domainservice "github.com/repokeeper/repokeeper/domain/service"
	"github.com/repokeeper/repokeeper/infrastructure/persistence"
	"github.com/repokeeper/repokeeper/infrastructure/tracking"
	"github.com/repokeeper/repokeeper/internal/config"
	mcpinternal "github.com/repokeeper/repokeeper/internal/mcp"
)

type cloneOnly struct{}

func (cloneOnly) Run(_ context.Context, cmd domainservice.Command) (domainservice.Result, error) {
	if cmd.Program == "git" && len(cmd.Args) == 3 && cmd.Args[0] == "clone" {
		return domainservice.Result{}, os.MkdirAll(cmd.Args[2], 0o755)
	}
	return domainservice.Result{}, nil
}

func newTestAPI(t *testing.T) (*APIServer, *operation.Journal) {
	t.Helper()
	roots := config.NewRoots(t.TempDir())
	repos := service.NewRepositories(roots, cloneOnly{}, persistence.NewConfigStore(roots.ConfigDir(), nil))
	memory := tracking.NewMemory(10)
	journal := operation.NewJournal(persistence.NewLogStore(roots.LogDir(), nil), operation.WithSink(memory))
	mcpSrv := mcpinternal.NewServer(repos, journal, memory, "test", nil)
	return NewAPIServer(repos, journal, memory, mcpSrv, nil), journal
}

func TestAPIServer_Health(t *testing.T) {
	a, _ := newTestAPI(t)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAPIServer_RoutesMounted(t *testing.T) {
	a, _ := newTestAPI(t)

	for _, path := range []string{"/api/v1/repositories", "/api/v1/operations", "/api/v1/operations/history"} {
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func TestAPIServer_MCPInitialize(t *testing.T) {
	a, _ := newTestAPI(t)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "repokeeper") {
		t.Errorf("expected server info in %s", w.Body.String())
	}
}

func TestAPIServer_OperationStream(t *testing.T) {
	a, journal := newTestAPI(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/operations/stream", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	event, _ := readEvent(t, reader)
	if event != "refresh" {
		t.Fatalf("first event = %q, want refresh", event)
	}

	log := journal.Start(service.OperationUpdate, "repo")
	event, _ = readEvent(t, reader)
	if event != "refresh" {
		t.Fatalf("event after start = %q, want refresh", event)
	}

	log.AddInstantStep("Pulling changes", "", operation.StatusNormal)
	event, data := readEvent(t, reader)
	if event != "update" {
		t.Fatalf("event after step = %q, want update", event)
	}
	var payload struct {
		Operation struct {
			Total int `json:"total"`
		} `json:"operation"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if payload.Operation.Total != 1 {
		t.Errorf("total = %d, want 1", payload.Operation.Total)
	}
}

// readEvent reads one server-sent event, skipping comments.
func readEvent(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && event != "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}
