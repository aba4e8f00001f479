package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Axees-0/axeesBE-sub017/internal/application"
	"github.com/Axees-0/axeesBE-sub017/internal/contracts"
	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// Handler exposes the operator surface of the release engine.
type Handler struct {
	svc    *application.Service
	logger *slog.Logger
	ready  func() error
}

func NewHandler(svc *application.Service, logger *slog.Logger, ready func() error) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if ready == nil {
		ready = func() error { return nil }
	}
	return &Handler{svc: svc, logger: logger, ready: ready}
}

func actorFrom(r *http.Request) application.Actor {
	return application.Actor{
		SubjectID: r.Header.Get("X-User-ID"),
		Role:      r.Header.Get("X-User-Role"),
		RequestID: requestIDFrom(r.Context()),
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code := mapDomainError(err)
	requestID := requestIDFrom(r.Context())
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "operation failed",
			"layer", "http",
			"operation", operation,
			"outcome", "error",
			"request_id", requestID,
			"error", err,
		)
		writeError(w, status, code, "internal server error", requestID)
		return
	}
	writeError(w, status, code, err.Error(), requestID)
}

// TriggerRun starts a release run synchronously and returns its summary.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req contracts.TriggerRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, r, "trigger_run", domain.ErrInvalidInput)
			return
		}
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = "manual"
	}
	summary, err := h.svc.RunOnce(r.Context(), trigger)
	if err != nil && !errors.Is(err, domain.ErrScanFailed) && !errors.Is(err, context.Canceled) {
		h.respondError(w, r, "trigger_run", err)
		return
	}
	if err != nil {
		// Partial summaries still carry operator value; surface them with
		// the failure code instead of discarding the run record.
		status, code := mapDomainError(err)
		writeJSON(w, status, map[string]interface{}{
			"status": "error",
			"error": contracts.ErrorPayload{
				Code:      code,
				Message:   err.Error(),
				RequestID: requestIDFrom(r.Context()),
			},
			"data": summary,
		})
		return
	}
	writeSuccess(w, http.StatusOK, "release run completed", summary)
}

// LatestRun returns the most recent run summary.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.LatestRunSummary(r.Context())
	if err != nil {
		h.respondError(w, r, "latest_run", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", summary)
}

// ApproveEarning records operator approval on a gated earning.
func (h *Handler) ApproveEarning(w http.ResponseWriter, r *http.Request) {
	earningID := chi.URLParam(r, "earningID")
	earning, err := h.svc.ApproveEarning(r.Context(), actorFrom(r), earningID)
	if err != nil {
		h.respondError(w, r, "approve_earning", err)
		return
	}
	writeSuccess(w, http.StatusOK, "earning approved", earning)
}

// ScheduleRelease records a marketer-requested release date.
func (h *Handler) ScheduleRelease(w http.ResponseWriter, r *http.Request) {
	earningID := chi.URLParam(r, "earningID")
	var req contracts.ScheduleReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, "schedule_release", domain.ErrInvalidInput)
		return
	}
	earning, err := h.svc.ScheduleRelease(r.Context(), actorFrom(r), earningID, req.ReleaseAt)
	if err != nil {
		h.respondError(w, r, "schedule_release", err)
		return
	}
	writeSuccess(w, http.StatusOK, "release scheduled", earning)
}

// GetEarning is a read-through for operators inspecting a single earning.
func (h *Handler) GetEarning(w http.ResponseWriter, r *http.Request) {
	earningID := chi.URLParam(r, "earningID")
	earning, err := h.svc.GetEarning(r.Context(), earningID)
	if err != nil {
		h.respondError(w, r, "get_earning", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", earning)
}

// Healthz reports process liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "ok", nil)
}

// Readyz reports dependency readiness.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.ready(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", err.Error(), requestIDFrom(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "ready", nil)
}
