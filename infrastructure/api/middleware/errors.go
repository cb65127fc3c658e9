package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/repokeeper/repokeeper/application/service"
	"github.com/repokeeper/repokeeper/domain/repository"
	domainservice "github.com/repokeeper/repokeeper/domain/service"
)

// ErrBadRequest marks a malformed request body or parameter.
var ErrBadRequest = errors.New("bad request")

// APIError is one entry of an error response.
type APIError struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	ID     string `json:"id,omitempty"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Errors []APIError `json:"errors"`
}

// StatusOf maps an error to its HTTP status and title.
func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrNotTracked):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, repository.ErrInvalidURL):
		return http.StatusBadRequest, "Invalid Repository URL"
	case errors.Is(err, service.ErrInvalidPath), errors.Is(err, repository.ErrInvalidName),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "Validation Error"
	case errors.Is(err, domainservice.ErrProcessFailed):
		return http.StatusBadGateway, "External Command Failed"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// WriteError writes err as an error response.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status, title := StatusOf(err)
	requestID := middleware.GetReqID(r.Context())

	if logger != nil && status >= http.StatusInternalServerError {
		logger.Error("request error",
			slog.String("request_id", requestID),
			slog.Int("status", status),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}

	WriteJSON(w, status, ErrorResponse{
		Errors: []APIError{{
			Status: http.StatusText(status),
			Title:  title,
			Detail: err.Error(),
			ID:     requestID,
		}},
	})
}

// WriteJSON writes data as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
