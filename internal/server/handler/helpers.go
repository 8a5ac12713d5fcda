package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/collectibles/internal/domain"
)

// timestampLayout is the wall-clock format used in error bodies.
const timestampLayout = "2006-01-02 15:04:05"

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
	Field     string `json:"field,omitempty"`
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, newErrorResponse(r, status, msg))
}

func newErrorResponse(r *http.Request, status int, msg string) errorResponse {
	return errorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   msg,
		Path:      r.URL.Path,
		Timestamp: time.Now().Format(timestampLayout),
	}
}

// writeDomainError maps a service error onto the API error taxonomy:
// field errors are 400, unknown items 404, anything else a logged 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	var fe *domain.FieldError
	switch {
	case errors.As(err, &fe):
		logger.WarnContext(r.Context(), "handler: invalid request",
			slog.String("op", op),
			slog.String("field", fe.Field),
			slog.String("error", fe.Message),
		)
		body := newErrorResponse(r, http.StatusBadRequest, fe.Message)
		body.Field = fe.Field
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, domain.ErrNotFound):
		logger.WarnContext(r.Context(), "handler: not found",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		writeError(w, r, http.StatusNotFound, notFoundMessage(err))
	default:
		logger.ErrorContext(r.Context(), "handler: "+op+" failed",
			slog.String("error", err.Error()),
		)
		writeError(w, r, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
	}
}

func notFoundMessage(err error) string {
	var nf *domain.ItemNotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	return "resource not found"
}

// decodeBody decodes the JSON request body into v, limited to 1 MiB.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v)
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
