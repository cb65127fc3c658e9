// Package mcp exposes the repository manager as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/repokeeper/repokeeper/application/service"
	"github.com/repokeeper/repokeeper/domain/operation"
	"github.com/repokeeper/repokeeper/infrastructure/tracking"
)

// Server wraps the MCP server with repository tools.
type Server struct {
	mcpServer *server.MCPServer
	repos     *service.Repositories
	journal   *operation.Journal
	memory    *tracking.Memory
	logger    *slog.Logger
}

// NewServer creates a new MCP server. memory may be nil, in which case
// list_operations only reports persisted logs.
func NewServer(
	repos *service.Repositories,
	journal *operation.Journal,
	memory *tracking.Memory,
	version string,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		repos:   repos,
		journal: journal,
		memory:  memory,
		logger:  logger,
	}

	mcpServer := server.NewMCPServer(
		"repokeeper",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("list_repositories",
		mcp.WithDescription("List every tracked git repository"),
	), s.handleListRepositories)

	mcpServer.AddTool(mcp.NewTool("list_operations",
		mcp.WithDescription("List repository operations and their steps"),
		mcp.WithBoolean("history",
			mcp.Description("Return persisted operation logs instead of the ones run by this process"),
		),
	), s.handleListOperations)

	mcpServer.AddTool(mcp.NewTool("clone_repository",
		mcp.WithDescription("Clone a git repository over HTTPS, HTTP or SSH and start tracking it"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The repository URL"),
		),
		mcp.WithString("username",
			mcp.Description("Username for HTTP(S) authentication"),
		),
		mcp.WithString("password",
			mcp.Description("Password or token for HTTP(S) authentication"),
		),
	), s.handleClone)

	mcpServer.AddTool(mcp.NewTool("update_repository",
		mcp.WithDescription("Pull the latest changes of a tracked repository"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The project name of the repository"),
		),
	), s.handleUpdate)

	mcpServer.AddTool(mcp.NewTool("compress_repository",
		mcp.WithDescription("Zip a tracked repository, or one of its subdirectories, into the archive directory"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The project name of the repository"),
		),
		mcp.WithString("subdirectory",
			mcp.Description("Subdirectory to archive instead of the whole working copy"),
		),
	), s.handleCompress)

	mcpServer.AddTool(mcp.NewTool("list_directory",
		mcp.WithDescription("List the directories under a path of a tracked repository"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The project name of the repository"),
		),
		mcp.WithString("path",
			mcp.Description("Path relative to the repository root (default: root)"),
		),
	), s.handleListDirectory)
}

type repositoryResult struct {
	ProjectName string `json:"project_name"`
	URL         string `json:"url"`
	URLType     string `json:"url_type"`
	Location    string `json:"location"`
	Cloned      bool   `json:"cloned"`
}

type stepResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type operationResult struct {
	ProjectName string       `json:"project_name,omitempty"`
	Operation   string       `json:"operation"`
	Outcome     string       `json:"outcome,omitempty"`
	Error       string       `json:"error,omitempty"`
	Running     bool         `json:"running"`
	StartTime   string       `json:"start_time"`
	StopTime    string       `json:"stop_time,omitempty"`
	Steps       []stepResult `json:"steps"`
}

func (s *Server) handleListRepositories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.repos.LoadAll(ctx)
	if err != nil {
		s.logger.Error("failed to list repositories", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to list repositories: %v", err)), nil
	}

	results := make([]repositoryResult, 0, len(records))
	for _, rec := range records {
		results = append(results, toRepositoryResult(rec))
	}
	return jsonResult(results)
}

func (s *Server) handleListOperations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var snaps []operation.Snapshot
	if request.GetBool("history", false) || s.memory == nil {
		logs, err := s.journal.LoadAll(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load operation logs: %v", err)), nil
		}
		snaps = logs
	} else {
		snaps = s.memory.List()
	}

	results := make([]operationResult, 0, len(snaps))
	for _, snap := range snaps {
		results = append(results, toOperationResult(snap))
	}
	return jsonResult(results)
}

func (s *Server) handleClone(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url is required"), nil
	}

	rec := s.repos.Open(url, request.GetString("username", ""), request.GetString("password", ""))
	if rec.Invalid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid repository url: %s", url)), nil
	}
	if rec.Tracked() {
		return jsonResult(toRepositoryResult(rec))
	}

	log := service.StartLog(s.journal, service.OperationClone, rec.RedactedURL())
	outcome, err := s.repos.Complete(ctx, log, rec.Clone(ctx, log))
	return s.outcomeResult(rec, log, outcome, err)
}

func (s *Server) handleUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, errResult := s.tracked(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	log := service.StartLog(s.journal, service.OperationUpdate, rec.ProjectName())
	outcome, err := s.repos.Complete(ctx, log, rec.Update(ctx, log))
	return s.outcomeResult(rec, log, outcome, err)
}

func (s *Server) handleCompress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, errResult := s.tracked(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	log := service.StartLog(s.journal, service.OperationCompress, rec.ProjectName())
	outcome, err := s.repos.Complete(ctx, log, rec.Compress(ctx, request.GetString("subdirectory", ""), log))
	return s.outcomeResult(rec, log, outcome, err)
}

func (s *Server) handleListDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, errResult := s.tracked(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	dirs, err := rec.ListDirectory(ctx, request.GetString("path", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list directory: %v", err)), nil
	}
	return jsonResult(dirs)
}

// tracked resolves the name argument to a tracked record.
func (s *Server) tracked(ctx context.Context, request mcp.CallToolRequest) (*service.Record, *mcp.CallToolResult) {
	name, err := request.RequireString("name")
	if err != nil {
		return nil, mcp.NewToolResultError("name is required")
	}
	rec, err := s.repos.Get(ctx, name)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("repository %s: %v", name, err))
	}
	return rec, nil
}

func (s *Server) outcomeResult(rec *service.Record, log *operation.Log, outcome service.Outcome, err error) (*mcp.CallToolResult, error) {
	result := toOperationResult(log.Snapshot())
	result.ProjectName = rec.ProjectName()
	result.Outcome = string(outcome)
	if err != nil {
		result.Error = err.Error()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return mcp.NewToolResultError(fmt.Sprintf("operation interrupted: %v", err)), nil
		}
	}
	return jsonResult(result)
}

func toRepositoryResult(rec *service.Record) repositoryResult {
	return repositoryResult{
		ProjectName: rec.ProjectName(),
		URL:         rec.RedactedURL(),
		URLType:     string(rec.URLType()),
		Location:    rec.Location(),
		Cloned:      rec.Cloned(),
	}
}

func toOperationResult(snap operation.Snapshot) operationResult {
	steps := make([]stepResult, 0, len(snap.Steps))
	for _, st := range snap.Steps {
		steps = append(steps, stepResult{Name: st.Name, Description: st.Description, Status: string(st.Status)})
	}
	return operationResult{
		Operation: snap.Operation,
		Running:   snap.Running,
		StartTime: snap.StartTime,
		StopTime:  snap.StopTime,
		Steps:     steps,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
