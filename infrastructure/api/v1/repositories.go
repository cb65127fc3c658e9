// Package v1 provides the v1 API routes.
package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/repokeeper/repokeeper/application/service"
	"github.com/repokeeper/repokeeper/domain/operation"
	"github.com/repokeeper/repokeeper/domain/repository"
	domainservice "github.com/repokeeper/repokeeper/domain/service"
	"github.com/repokeeper/repokeeper/infrastructure/api/middleware"
	"github.com/repokeeper/repokeeper/infrastructure/api/v1/dto"
)

// RepositoriesRouter handles repository API endpoints.
type RepositoriesRouter struct {
	repos   *service.Repositories
	journal *operation.Journal
	logger  *slog.Logger
}

// NewRepositoriesRouter creates a new RepositoriesRouter.
func NewRepositoriesRouter(repos *service.Repositories, journal *operation.Journal, logger *slog.Logger) *RepositoriesRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoriesRouter{
		repos:   repos,
		journal: journal,
		logger:  logger,
	}
}

// Routes returns the chi router for repository endpoints.
func (r *RepositoriesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Post("/", r.Add)
	router.Get("/{name}", r.Get)
	router.Delete("/{name}", r.Delete)
	router.Post("/{name}/update", r.Update)
	router.Post("/{name}/compress", r.Compress)
	router.Get("/{name}/directories", r.ListDirectories)

	return router
}

// List handles GET /api/v1/repositories.
func (r *RepositoriesRouter) List(w http.ResponseWriter, req *http.Request) {
	records, err := r.repos.LoadAll(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	data := make([]dto.RepositoryResponse, 0, len(records))
	for _, rec := range records {
		data = append(data, RepositoryToDTO(rec))
	}
	middleware.WriteJSON(w, http.StatusOK, dto.RepositoryListResponse{Data: data})
}

// Add handles POST /api/v1/repositories. A new repository is cloned in
// the background and 202 is returned with the operation to follow; an
// already tracked one is returned as is.
func (r *RepositoriesRouter) Add(w http.ResponseWriter, req *http.Request) {
	var body dto.RepositoryCreateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, fmt.Errorf("decode request: %w: %w", middleware.ErrBadRequest, err), r.logger)
		return
	}

	rec := r.repos.Open(body.URL, body.Username, body.Password)
	if rec.Invalid() {
		middleware.WriteError(w, req, fmt.Errorf("%q: %w", body.URL, repository.ErrInvalidURL), r.logger)
		return
	}
	if rec.Tracked() {
		middleware.WriteJSON(w, http.StatusOK, RepositoryToDTO(rec))
		return
	}

	ctx := context.WithoutCancel(req.Context())
	log := service.StartLog(r.journal, service.OperationClone, rec.RedactedURL())
	r.background(ctx, rec, log, rec.Clone(ctx, log))
	middleware.WriteJSON(w, http.StatusAccepted, accepted(rec, log))
}

// Get handles GET /api/v1/repositories/{name}.
func (r *RepositoriesRouter) Get(w http.ResponseWriter, req *http.Request) {
	rec, err := r.repos.Get(req.Context(), chi.URLParam(req, "name"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, RepositoryToDTO(rec))
}

// Update handles POST /api/v1/repositories/{name}/update.
func (r *RepositoriesRouter) Update(w http.ResponseWriter, req *http.Request) {
	rec, err := r.repos.Get(req.Context(), chi.URLParam(req, "name"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	ctx := context.WithoutCancel(req.Context())
	log := service.StartLog(r.journal, service.OperationUpdate, rec.ProjectName())
	r.background(ctx, rec, log, rec.Update(ctx, log))
	middleware.WriteJSON(w, http.StatusAccepted, accepted(rec, log))
}

// Compress handles POST /api/v1/repositories/{name}/compress. The body
// is optional.
func (r *RepositoriesRouter) Compress(w http.ResponseWriter, req *http.Request) {
	var body dto.CompressRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, req, fmt.Errorf("decode request: %w: %w", middleware.ErrBadRequest, err), r.logger)
		return
	}

	rec, err := r.repos.Get(req.Context(), chi.URLParam(req, "name"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	ctx := context.WithoutCancel(req.Context())
	log := service.StartLog(r.journal, service.OperationCompress, rec.ProjectName())
	r.background(ctx, rec, log, rec.Compress(ctx, body.Subdirectory, log))
	middleware.WriteJSON(w, http.StatusAccepted, accepted(rec, log))
}

// Delete handles DELETE /api/v1/repositories/{name}. It removes the
// config file, the working copy and the archive before responding.
func (r *RepositoriesRouter) Delete(w http.ResponseWriter, req *http.Request) {
	rec, err := r.repos.Get(req.Context(), chi.URLParam(req, "name"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if rec.Invalid() {
		middleware.WriteError(w, req, repository.ErrInvalidURL, r.logger)
		return
	}

	log := service.StartLog(r.journal, service.OperationDeleteAll, rec.ProjectName())
	if err := rec.DeleteAll(req.Context(), log); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDirectories handles GET /api/v1/repositories/{name}/directories?path=.
func (r *RepositoriesRouter) ListDirectories(w http.ResponseWriter, req *http.Request) {
	rec, err := r.repos.Get(req.Context(), chi.URLParam(req, "name"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	path := req.URL.Query().Get("path")
	dirs, err := rec.ListDirectory(req.Context(), path)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.DirectoryListResponse{Path: path, Directories: dirs})
}

// background completes an operation after the response has been sent.
func (r *RepositoriesRouter) background(
	ctx context.Context,
	rec *service.Record,
	log *operation.Log,
	f *domainservice.Future[service.Outcome],
) {
	go func() {
		outcome, err := r.repos.Complete(ctx, log, f)
		if err != nil {
			r.logger.Warn("operation failed",
				slog.String("project", rec.ProjectName()),
				slog.String("outcome", string(outcome)),
				slog.Any("error", err),
			)
		}
	}()
}

func accepted(rec *service.Record, log *operation.Log) dto.AcceptedResponse {
	return dto.AcceptedResponse{
		ProjectName:   rec.ProjectName(),
		OperationID:   log.ID(),
		OperationCode: log.Code(),
	}
}

// RepositoryToDTO converts a record to its response body.
func RepositoryToDTO(rec *service.Record) dto.RepositoryResponse {
	return dto.RepositoryResponse{
		ProjectName: rec.ProjectName(),
		URL:         rec.RedactedURL(),
		URLType:     string(rec.URLType()),
		Location:    rec.Location(),
		Cloned:      rec.Cloned(),
		Tracked:     rec.Tracked(),
		ConfigPath:  rec.ConfigPath(),
		ArchivePath: rec.ArchivePath(),
	}
}
