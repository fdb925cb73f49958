package handler

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"prayer-tracker/internal/sessions/models"
	"prayer-tracker/internal/sessions/service"

	"prayer-tracker/internal/shared/clock"
	"prayer-tracker/internal/shared/config"
	"prayer-tracker/internal/shared/errors"
	"prayer-tracker/internal/shared/utils"
	"prayer-tracker/internal/shared/validation"
)

// SessionReader is the ledger read side used by the HTTP layer.
type SessionReader interface {
	GetSessions(ctx context.Context, limit, offset int) (*models.PaginatedResponse[models.SessionResponse], error)
	GetSession(ctx context.Context, id string) (*models.SessionResponse, error)
	DeleteSession(ctx context.Context, id string) error
	ExportCSV(ctx context.Context) ([]byte, error)
	Stats(ctx context.Context) (*service.StatsResponse, error)
}

// SessionsHandler handles HTTP requests for recorded sessions.
type SessionsHandler struct {
	service SessionReader
	clock   clock.Clock
}

// NewSessionsHandler creates a new SessionsHandler. The clock dates export
// filenames.
func NewSessionsHandler(svc SessionReader, clk clock.Clock) *SessionsHandler {
	if clk == nil {
		clk = clock.System
	}
	return &SessionsHandler{service: svc, clock: clk}
}

// List handles GET /api/v1/sessions - retrieves paginated sessions, newest first.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := utils.ParsePaginationParams(r.URL.Query(), config.DefaultPageSize, config.MaxPageSize)

	result, err := h.service.GetSessions(r.Context(), limit, offset)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Delete handles DELETE /api/v1/sessions/{id}.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteSession(r.Context(), id); err != nil {
		writeSessionError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportCSV handles GET /api/v1/sessions.csv - exports sessions as CSV.
func (h *SessionsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	csvData, err := h.service.ExportCSV(r.Context())
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	filename := fmt.Sprintf("prayer_sessions_%s.csv", h.clock.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(csvData)
}

// Stats handles GET /api/v1/stats - session count, total minutes and streak.
func (h *SessionsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Stats(r.Context())
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := validation.SanitizeString(chi.URLParam(r, "id"))
	if id == "" || len(id) > 64 {
		errors.WriteError(w, errors.ValidationError("Invalid session id"))
		return "", false
	}
	return id, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	if stderrors.Is(err, service.ErrSessionNotFound) {
		errors.WriteError(w, errors.NotFoundError("Session not found"))
		return
	}
	errors.WriteError(w, err)
}
