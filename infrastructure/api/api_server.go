package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/repokeeper/repokeeper/application/service"
	"github.com/repokeeper/repokeeper/domain/operation"
	apimiddleware "github.com/repokeeper/repokeeper/infrastructure/api/middleware"
	v1 "github.com/repokeeper/repokeeper/infrastructure/api/v1"
	"github.com/repokeeper/repokeeper/infrastructure/tracking"
	mcpinternal "github.com/repokeeper/repokeeper/internal/mcp"
)

// requestTimeout bounds the non-streaming API routes.
const requestTimeout = 60 * time.Second

// APIServer provides the HTTP API over the repository manager.
type APIServer struct {
	repos   *service.Repositories
	journal *operation.Journal
	memory  *tracking.Memory
	mcp     *mcpinternal.Server
	server  *Server
	router  chi.Router
	logger  *slog.Logger
}

// NewAPIServer creates a new APIServer. mcpSrv may be nil to leave /mcp unmounted.
func NewAPIServer(
	repos *service.Repositories,
	journal *operation.Journal,
	memory *tracking.Memory,
	mcpSrv *mcpinternal.Server,
	logger *slog.Logger,
) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		repos:   repos,
		journal: journal,
		memory:  memory,
		mcp:     mcpSrv,
		logger:  logger,
	}
}

// mountRoutes wires up the health check, the v1 API and MCP on router.
func (a *APIServer) mountRoutes(router chi.Router) {
	router.Use(apimiddleware.Logging(a.logger))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	reposRouter := v1.NewRepositoriesRouter(a.repos, a.journal, a.logger)
	opsRouter := v1.NewOperationsRouter(a.memory, a.journal, a.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.With(chimiddleware.Timeout(requestTimeout)).Mount("/repositories", reposRouter.Routes())
		// No timeout: the operation event stream stays open.
		r.Mount("/operations", opsRouter.Routes())
	})

	if a.mcp != nil {
		router.Mount("/mcp", server.NewStreamableHTTPServer(a.mcp.MCPServer()))
	}
}

// Handler returns the fully routed http.Handler.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.router = chi.NewRouter()
		a.mountRoutes(a.router)
	}
	return a.router
}

// ListenAndServe starts the HTTP server on addr and blocks until Shutdown.
func (a *APIServer) ListenAndServe(addr string, corsOrigins []string) error {
	srv := NewServer(addr, corsOrigins, a.logger)
	a.server = &srv
	a.mountRoutes(srv.Router())
	return srv.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
