// Package api exposes the sync daemon's local HTTP surface: status, stats,
// and a manual sync trigger.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"example.com/liftsync/internal/domain"
	"example.com/liftsync/internal/engine"
)

// Handler coordinates HTTP requests with the sync engine.
type Handler struct {
	engine *engine.Engine
}

// NewHandler builds a Handler.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{engine: eng}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/status", h.status)
	mux.HandleFunc("/v1/sync", h.sync)
	mux.HandleFunc("/v1/stats", h.stats)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for process health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// StatusResponse describes the engine's current condition.
type StatusResponse struct {
	State        string     `json:"state"`
	Online       bool       `json:"online"`
	Syncing      bool       `json:"syncing"`
	LastSync     *time.Time `json:"last_sync,omitempty"`
	PendingCount int        `json:"pending_count"`
	UserID       string     `json:"user_id,omitempty"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	resp := StatusResponse{
		State:        string(h.engine.State()),
		Online:       h.engine.Online(),
		Syncing:      h.engine.Syncing(),
		PendingCount: h.engine.PendingCount(r.Context()),
	}
	if last := h.engine.LastSync(); !last.IsZero() {
		resp.LastSync = &last
	}
	if user := h.engine.CurrentUser(); user != nil {
		resp.UserID = user.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// SyncResponse reports the outcome of a manual sync trigger.
type SyncResponse struct {
	Refreshed    bool `json:"refreshed"`
	PendingCount int  `json:"pending_count"`
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !h.engine.Authenticated() {
		writeError(w, http.StatusConflict, "auth_required", "no user signed in")
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := h.engine.LoadData(r.Context(), force); err != nil {
		writeError(w, http.StatusBadGateway, "sync_failed", err.Error())
		return
	}
	if err := h.engine.SyncPendingChanges(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "replay_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Refreshed:    true,
		PendingCount: h.engine.PendingCount(r.Context()),
	})
}

// StatsResponse packages the derived read-only views.
type StatsResponse struct {
	CompletedSessions int                    `json:"completed_sessions"`
	LifetimeVolume    float64                `json:"lifetime_volume"`
	AverageDuration   float64                `json:"average_duration_minutes"`
	MostUsedExercises []domain.ExerciseUsage `json:"most_used_exercises"`
	WeeklyVolumes     []domain.WeeklyVolume  `json:"weekly_volumes"`
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("exercise_limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		CompletedSessions: len(h.engine.CompletedSessions()),
		LifetimeVolume:    h.engine.LifetimeVolume(),
		AverageDuration:   h.engine.AverageDuration(),
		MostUsedExercises: h.engine.MostUsedExercises(limit),
		WeeklyVolumes:     h.engine.WeeklyVolumes(),
	})
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
