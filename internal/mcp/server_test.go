package mcp

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/repokeeper/repokeeper/application/service"
	"github.com/repokeeper/repokeeper/domain/operation"
	domainservice "github.com/repokeeper/repokeeper/domain/service"
	"github.com/repokeeper/repokeeper/infrastructure/persistence"
	"github.com/repokeeper/repokeeper/infrastructure/tracking"
	"github.com/repokeeper/repokeeper/internal/config"
)

// fakeGit creates the clone target and answers ls with a fixed listing.
type fakeGit struct {
	mu   sync.Mutex
	runs []domainservice.Command
}

func (f *fakeGit) Run(_ context.Context, cmd domainservice.Command) (domainservice.Result, error) {
	f.mu.Lock()
	f.runs = append(f.runs, cmd)
	f.mu.Unlock()

	switch {
	case cmd.Program == "git" && len(cmd.Args) == 3 && cmd.Args[0] == "clone":
		if err := os.MkdirAll(cmd.Args[2], 0o755); err != nil {
			return domainservice.Result{}, err
		}
	case cmd.Program == "ls":
		return domainservice.Result{Output: []byte("api/\nmain.go\nweb/\n")}, nil
	}
	return domainservice.Result{}, nil
}

func newTestServer(t *testing.T) (*Server, *tracking.Memory) {
	t.Helper()
	roots := config.NewRoots(t.TempDir())
	repos := service.NewRepositories(roots, &fakeGit{}, persistence.NewConfigStore(roots.ConfigDir(), nil))
	memory := tracking.NewMemory(10)
	journal := operation.NewJournal(persistence.NewLogStore(roots.LogDir(), nil), operation.WithSink(memory))
	return NewServer(repos, journal, memory, "test", nil), memory
}

// sendMessage marshals a JSON-RPC request, sends it through HandleMessage,
// and returns the JSONRPCResponse.
func sendMessage(t *testing.T, srv *Server, method string, id int, params map[string]any) mcp.JSONRPCResponse {
	t.Helper()

	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	result := srv.MCPServer().HandleMessage(context.Background(), raw)

	resp, ok := result.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T: %+v", result, result)
	}
	return resp
}

// callTool invokes a tool and decodes its text content into dst. It
// returns whether the tool reported an error.
func callTool(t *testing.T, srv *Server, name string, args map[string]any, dst any) bool {
	t.Helper()

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      name,
		"arguments": args,
	})

	b, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("tool %s returned no content", name)
	}
	if result.IsError {
		return true
	}
	if dst != nil {
		if err := json.Unmarshal([]byte(result.Content[0].Text), dst); err != nil {
			t.Fatalf("decode %s output %q: %v", name, result.Content[0].Text, err)
		}
	}
	return false
}

func TestToolsList(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := sendMessage(t, srv, "tools/list", 1, nil)

	b, _ := json.Marshal(resp.Result)
	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(b, &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]bool{
		"list_repositories":   false,
		"list_operations":     false,
		"clone_repository":    false,
		"update_repository":   false,
		"compress_repository": false,
		"list_directory":      false,
	}
	for _, tool := range list.Tools {
		want[tool.Name] = true
	}
	for name, found := range want {
		if !found {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestCloneThenList(t *testing.T) {
	srv, memory := newTestServer(t)

	var cloned operationResult
	if callTool(t, srv, "clone_repository", map[string]any{"url": "https://github.com/user/repo.git"}, &cloned) {
		t.Fatal("clone_repository reported an error")
	}
	if cloned.Outcome != string(service.OutcomeSucceeded) {
		t.Fatalf("outcome = %q, want succeeded", cloned.Outcome)
	}
	if cloned.Running {
		t.Error("operation should be stopped once the tool returns")
	}

	var repos []repositoryResult
	callTool(t, srv, "list_repositories", map[string]any{}, &repos)
	if len(repos) != 1 || repos[0].ProjectName != "repo" || !repos[0].Cloned {
		t.Fatalf("unexpected repositories %+v", repos)
	}

	var dirs []string
	callTool(t, srv, "list_directory", map[string]any{"name": "repo"}, &dirs)
	if len(dirs) != 2 || dirs[0] != "api" || dirs[1] != "web" {
		t.Fatalf("unexpected directories %v", dirs)
	}

	var ops []operationResult
	callTool(t, srv, "list_operations", map[string]any{}, &ops)
	if len(ops) != 1 || ops[0].Operation != service.OperationClone {
		t.Fatalf("unexpected operations %+v", ops)
	}
	if len(memory.List()) != 1 {
		t.Fatalf("expected one operation in memory")
	}

	var history []operationResult
	callTool(t, srv, "list_operations", map[string]any{"history": true}, &history)
	if len(history) != 1 {
		t.Fatalf("expected one persisted operation, got %d", len(history))
	}
}

func TestUpdateAndCompress(t *testing.T) {
	srv, _ := newTestServer(t)
	callTool(t, srv, "clone_repository", map[string]any{"url": "git@github.com:user/tool.git"}, nil)

	var updated operationResult
	if callTool(t, srv, "update_repository", map[string]any{"name": "tool"}, &updated) {
		t.Fatal("update_repository reported an error")
	}
	if updated.Outcome != string(service.OutcomeSucceeded) {
		t.Fatalf("update outcome = %q", updated.Outcome)
	}

	var compressed operationResult
	callTool(t, srv, "compress_repository", map[string]any{"name": "tool"}, &compressed)
	if compressed.Outcome != string(service.OutcomeSucceeded) {
		t.Fatalf("compress outcome = %q", compressed.Outcome)
	}
}

func TestToolErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	if !callTool(t, srv, "clone_repository", map[string]any{"url": "ftp://example.com/x"}, nil) {
		t.Error("invalid url should be a tool error")
	}
	if !callTool(t, srv, "update_repository", map[string]any{"name": "ghost"}, nil) {
		t.Error("unknown repository should be a tool error")
	}
	if !callTool(t, srv, "list_directory", map[string]any{}, nil) {
		t.Error("missing name should be a tool error")
	}
}
