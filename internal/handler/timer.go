package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log"
	"net/http"

	"prayer-tracker/internal/sessions/models"
	"prayer-tracker/internal/timer"

	"prayer-tracker/internal/shared/errors"
	"prayer-tracker/internal/shared/utils"
)

// TimerController is the subset of *timer.Controller the HTTP layer drives.
type TimerController interface {
	Status() timer.Status
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Reset(ctx context.Context) error
	CommitAndReset(ctx context.Context, label string) (*models.SessionRecord, error)
	ResumeFromPersisted(ctx context.Context) error
}

// TimerResponse is the API view of the timer.
type TimerResponse struct {
	State          timer.State `json:"state"`
	ElapsedSeconds int64       `json:"elapsed_seconds"`
	Display        string      `json:"display"`
}

// CommitResponse is returned after a successful commit.
type CommitResponse struct {
	Session models.SessionResponse `json:"session"`
	Timer   TimerResponse          `json:"timer"`
}

// TimerHandler handles HTTP requests for the prayer timer.
type TimerHandler struct {
	timer TimerController
}

// NewTimerHandler creates a new TimerHandler.
func NewTimerHandler(ctrl TimerController) *TimerHandler {
	return &TimerHandler{timer: ctrl}
}

// Status handles GET /api/v1/timer.
func (h *TimerHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.current())
}

// Start handles POST /api/v1/timer/start.
func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.timer.Start)
}

// Pause handles POST /api/v1/timer/pause.
func (h *TimerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.timer.Pause)
}

// Reset handles POST /api/v1/timer/reset.
func (h *TimerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.timer.Reset)
}

// Resume handles POST /api/v1/timer/resume - reloads the persisted snapshot.
func (h *TimerHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.timer.ResumeFromPersisted)
}

// Commit handles POST /api/v1/timer/commit - records the run and resets.
// The body is optional: {"label": "..."}.
func (h *TimerHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var input models.SessionCommit
	if r.Body != nil && r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !stderrors.Is(err, io.EOF) {
			errors.WriteError(w, errors.ValidationError("Invalid JSON body"))
			return
		}
	}

	rec, err := h.timer.CommitAndReset(r.Context(), input.Label)
	if err != nil {
		h.writeTimerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CommitResponse{
		Session: rec.ToResponse(),
		Timer:   h.current(),
	})
}

func (h *TimerHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context) error) {
	if err := op(r.Context()); err != nil {
		h.writeTimerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.current())
}

func (h *TimerHandler) current() TimerResponse {
	st := h.timer.Status()
	return TimerResponse{
		State:          st.State,
		ElapsedSeconds: st.ElapsedSeconds,
		Display:        utils.FormatElapsed(st.ElapsedSeconds),
	}
}

func (h *TimerHandler) writeTimerError(w http.ResponseWriter, err error) {
	var rejected *models.RejectedError
	switch {
	case stderrors.Is(err, timer.ErrInvalidTransition):
		st := h.timer.Status()
		errors.WriteError(w, errors.InvalidTransitionError(err.Error(), string(st.State), st.ElapsedSeconds))
	case stderrors.As(err, &rejected):
		errors.WriteError(w, errors.SessionTooShortError(rejected.ElapsedSeconds, rejected.MinSeconds))
	case stderrors.Is(err, models.ErrLabelTooLong):
		errors.WriteError(w, errors.ValidationError(models.ErrLabelTooLong.Error()))
	default:
		log.Printf("timer: request failed: %v", err)
		errors.WriteError(w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
