package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"labtrail/internal/audit"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000

	defaultRecentWindow = 24 * time.Hour
)

type eventResponse struct {
	ID              string         `json:"id"`
	OccurredAt      time.Time      `json:"occurred_at"`
	ActorID         string         `json:"actor_id,omitempty"`
	ActorStableCode string         `json:"actor_stable_code"`
	Action          string         `json:"action"`
	EntityName      string         `json:"entity_name"`
	EntityID        string         `json:"entity_id"`
	Before          map[string]any `json:"before,omitempty"`
	After           map[string]any `json:"after,omitempty"`
	ReasonCode      string         `json:"reason_code,omitempty"`
	ReasonDetail    string         `json:"reason_detail,omitempty"`
	Source          string         `json:"source"`
}

func toEventResponses(events []audit.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:              e.ID.String(),
			OccurredAt:      e.OccurredAt,
			ActorID:         e.ActorID,
			ActorStableCode: e.ActorStableCode,
			Action:          string(e.Action),
			EntityName:      e.EntityName,
			EntityID:        e.EntityID,
			Before:          e.Before,
			After:           e.After,
			ReasonCode:      e.ReasonCode,
			ReasonDetail:    e.ReasonDetail,
			Source:          e.Source,
		})
	}
	return out
}

func (h *Handler) entityHistory(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id := chi.URLParam(r, "id")

	events, err := h.events.History(r.Context(), entity, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": toEventResponses(events)})
}

type timelineEntryResponse struct {
	OccurredAt    time.Time `json:"occurred_at"`
	Action        string    `json:"action"`
	Actor         string    `json:"actor"`
	ReasonCode    string    `json:"reason_code,omitempty"`
	ReasonDetail  string    `json:"reason_detail,omitempty"`
	Source        string    `json:"source"`
	ChangeSummary string    `json:"change_summary,omitempty"`
}

func (h *Handler) entityTimeline(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id := chi.URLParam(r, "id")

	entries, err := h.timelines.Timeline(r.Context(), entity, id)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]timelineEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, timelineEntryResponse{
			OccurredAt:    e.OccurredAt,
			Action:        string(e.Action),
			Actor:         e.Actor,
			ReasonCode:    e.ReasonCode,
			ReasonDetail:  e.ReasonDetail,
			Source:        e.Source,
			ChangeSummary: e.ChangeSummary,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeline": out})
}

func (h *Handler) recentChanges(w http.ResponseWriter, r *http.Request) {
	window := defaultRecentWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "validation_failed",
				"error_description": "window must be a positive duration such as 24h",
			})
			return
		}
		window = parsed
	}

	events, err := h.events.RecentChanges(r.Context(), window, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": toEventResponses(events)})
}

func (h *Handler) systemOperations(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.SystemOperations(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": toEventResponses(events)})
}

type driftResponse struct {
	Entity  string `json:"entity"`
	Problem string `json:"problem"`
}

func (h *Handler) complianceReport(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.registry.ComplianceReport(r.Context(), h.inspector)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ComplianceDrift.Set(float64(len(drifts)))
	}

	out := make([]driftResponse, 0, len(drifts))
	for _, d := range drifts {
		out = append(out, driftResponse{Entity: d.Entity, Problem: d.Problem})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"compliant": len(out) == 0,
		"drift":     out,
	})
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
