package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/profile"
	"github.com/homewarden/homewarden/internal/session"
	"github.com/homewarden/homewarden/internal/workflow"
)

// adviceHandler exposes the advisory workflows as JSON endpoints. The
// request/response shapes are the same as the Genkit flow inputs so CLI
// and API clients see identical contracts.
type adviceHandler struct {
	asker          *workflow.Asker
	planner        *workflow.Planner
	troubleshooter *workflow.Troubleshooter
	parts          *workflow.PartsHelper
	loadProfile    workflow.ProfileLoader
	logger         log.Logger
}

func (h *adviceHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.ask)
	mux.HandleFunc("POST /api/maintenance-plan", h.maintenancePlan)
	mux.HandleFunc("POST /api/troubleshoot/intake", h.intake)
	mux.HandleFunc("POST /api/troubleshoot/answers", h.answers)
	mux.HandleFunc("POST /api/parts", h.partsLookup)
}

// profileOrNil loads the house profile, degrading to nil when it is
// missing. Most workflows work without one, just less precisely.
func (h *adviceHandler) profileOrNil(ctx context.Context) *profile.HouseProfile {
	prof, err := h.loadProfile(ctx)
	if err != nil {
		h.logger.Warn("house profile unavailable", "error", err)
		return nil
	}
	return prof
}

func (h *adviceHandler) ask(w http.ResponseWriter, r *http.Request) {
	var in workflow.AskInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(in.Question) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "question is required")
		return
	}

	res, err := h.asker.Ask(r.Context(), in.Question, h.profileOrNil(r.Context()))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *adviceHandler) maintenancePlan(w http.ResponseWriter, r *http.Request) {
	var in workflow.PlanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	season, err := profile.ParseSeason(in.Season)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	prof, err := h.loadProfile(r.Context())
	if err != nil {
		writeError(w, http.StatusBadRequest, "profile_required",
			"a house profile is required for maintenance planning")
		return
	}

	res, err := h.planner.Plan(r.Context(), season, prof)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *adviceHandler) intake(w http.ResponseWriter, r *http.Request) {
	var in workflow.IntakeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	res, err := h.troubleshooter.Intake(r.Context(), workflow.IntakeRequest{
		DeviceType:        in.DeviceType,
		Symptom:           in.Symptom,
		Urgency:           in.Urgency,
		AdditionalContext: in.AdditionalContext,
		Profile:           h.profileOrNil(r.Context()),
	})
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *adviceHandler) answers(w http.ResponseWriter, r *http.Request) {
	var in workflow.AnswersInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(in.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "session_id is required")
		return
	}

	res, err := h.troubleshooter.SubmitAnswers(r.Context(), in.SessionID, in.Answers, h.profileOrNil(r.Context()))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *adviceHandler) partsLookup(w http.ResponseWriter, r *http.Request) {
	var in workflow.PartsInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	res, err := h.parts.Lookup(r.Context(), in.Query, in.DeviceType, h.profileOrNil(r.Context()))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeWorkflowError maps workflow and session errors to HTTP statuses.
// Internal error details are logged, not leaked to clients.
func (h *adviceHandler) writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "session not found or expired")
	case errors.Is(err, session.ErrInvalidPhase):
		writeError(w, http.StatusConflict, "invalid_phase", "session is not in the expected phase")
	case errors.Is(err, workflow.ErrMissingInput),
		errors.Is(err, workflow.ErrEmptyQuery),
		errors.Is(err, workflow.ErrNoProfile):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "timeout", "request cancelled or timed out")
	default:
		h.logger.Error("workflow failed",
			"error", err,
			"path", r.URL.Path,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
