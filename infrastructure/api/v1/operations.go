package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/repokeeper/repokeeper/domain/operation"
	"github.com/repokeeper/repokeeper/infrastructure/api/middleware"
	"github.com/repokeeper/repokeeper/infrastructure/api/v1/dto"
	"github.com/repokeeper/repokeeper/infrastructure/tracking"
)

// keepAliveInterval is how often an idle event stream sends a comment.
const keepAliveInterval = 15 * time.Second

// OperationsRouter handles operation log endpoints.
type OperationsRouter struct {
	memory  *tracking.Memory
	journal *operation.Journal
	logger  *slog.Logger
}

// NewOperationsRouter creates a new OperationsRouter.
func NewOperationsRouter(memory *tracking.Memory, journal *operation.Journal, logger *slog.Logger) *OperationsRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationsRouter{
		memory:  memory,
		journal: journal,
		logger:  logger,
	}
}

// Routes returns the chi router for operation endpoints.
func (o *OperationsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", o.List)
	router.Get("/history", o.History)
	router.Get("/stream", o.Stream)

	return router
}

// List handles GET /api/v1/operations: the operations of this process.
func (o *OperationsRouter) List(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, OperationsToDTO(o.memory.List()))
}

// History handles GET /api/v1/operations/history: every persisted log.
func (o *OperationsRouter) History(w http.ResponseWriter, req *http.Request) {
	logs, err := o.journal.LoadAll(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, o.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, OperationsToDTO(logs))
}

// Stream handles GET /api/v1/operations/stream. It sends server-sent
// events: "refresh" with the full list when an operation starts (and once
// on connect), and "update" with a single operation when it changes.
func (o *OperationsRouter) Stream(w http.ResponseWriter, req *http.Request) {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	events, cancel := o.memory.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := o.send(w, rc, string(tracking.EventRefresh), OperationsToDTO(o.memory.List())); err != nil {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			var data any
			if e.Kind == tracking.EventRefresh {
				data = OperationsToDTO(o.memory.List())
			} else {
				op := OperationToDTO(e.Snapshot)
				data = dto.OperationEvent{Index: e.Index, Operation: &op}
			}
			if err := o.send(w, rc, string(e.Kind), data); err != nil {
				return
			}
		}
	}
}

func (o *OperationsRouter) send(w http.ResponseWriter, rc *http.ResponseController, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		o.logger.Error("failed to encode operation event", slog.Any("error", err))
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return rc.Flush()
}

// OperationsToDTO converts snapshots to a list response.
func OperationsToDTO(snaps []operation.Snapshot) dto.OperationListResponse {
	data := make([]dto.OperationResponse, 0, len(snaps))
	for _, s := range snaps {
		data = append(data, OperationToDTO(s))
	}
	return dto.OperationListResponse{Data: data}
}

// OperationToDTO converts a snapshot to its response body.
func OperationToDTO(s operation.Snapshot) dto.OperationResponse {
	steps := make([]dto.StepResponse, 0, len(s.Steps))
	for _, st := range s.Steps {
		steps = append(steps, dto.StepResponse{
			Name:        st.Name,
			Description: st.Description,
			Status:      string(st.Status),
			StartTime:   st.StartTime,
			StopTime:    st.StopTime,
			Finished:    st.Finished,
		})
	}
	return dto.OperationResponse{
		ID:          s.ID,
		Code:        s.Code,
		Operation:   s.Operation,
		Message:     s.Message,
		Running:     s.Running,
		StartTime:   s.StartTime,
		StopTime:    s.StopTime,
		Total:       s.Total,
		Finished:    s.Finished,
		NotFinished: s.NotFinished,
		Steps:       steps,
	}
}
