// Package api exposes the monitoring query surface over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
	"codeberg.org/mutker/usagemon/internal/monitor"
	"codeberg.org/mutker/usagemon/internal/window"
	"github.com/gorilla/mux"
)

// Service is the query surface served by the handlers.
type Service interface {
	Resources() []string
	Realtime(ctx context.Context, resource string) (monitor.Snapshot, error)
	RollingWindow(resource string) ([]window.Entry, error)
	MergedWindow(limit int) []monitor.MergedPoint
}

type Handler struct {
	service Service
	started time.Time
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, started: time.Now()}
}

func (h *Handler) HandleResources(w http.ResponseWriter, _ *http.Request) {
	RespondJSON(w, http.StatusOK, map[string][]string{"resources": h.service.Resources()})
}

func (h *Handler) HandleRealtime(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Realtime(r.Context(), mux.Vars(r)["resource"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) HandleWindow(w http.ResponseWriter, r *http.Request) {
	resource := mux.Vars(r)["resource"]

	entries, err := h.service.RollingWindow(resource)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"resource": resource,
		"entries":  entries,
	})
}

func (h *Handler) HandleMergedWindow(w http.ResponseWriter, r *http.Request) {
	limit := window.DefaultCapacity

	if raw := r.URL.Query().Get("minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondError(w, http.StatusBadRequest, string(errors.ErrInvalidArgument),
				errors.New().WithMessage(errors.ErrInvalidArgument, "minutes must be a positive integer"))
			return
		}
		limit = n
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"minutes": limit,
		"points":  h.service.MergedWindow(limit),
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)

	switch code {
	case errors.ErrUnknownResource:
		RespondError(w, http.StatusNotFound, string(code), err)
	case errors.ErrSampling:
		logger.Warn().Err(err).Msg("Realtime sampling failed")
		RespondError(w, http.StatusServiceUnavailable, string(code), err)
	default:
		logger.Error().Err(err).Msg("Request failed")
		RespondError(w, http.StatusInternalServerError, string(code), err)
	}
}
