package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jepsonlabs/immich-monitor/pkg/collector"
	"github.com/jepsonlabs/immich-monitor/pkg/health"
	"github.com/jepsonlabs/immich-monitor/pkg/logging"
	"github.com/jepsonlabs/immich-monitor/pkg/models"
)

const (
	defaultHistoryLimit = 24
	maxHistoryLimit     = 500
)

// Handler handles the monitoring API requests
type Handler struct {
	collector *collector.Collector
	tracker   *health.Tracker
	log       *logging.Logger
}

// NewHandler creates a new API handler
func NewHandler(c *collector.Collector, tracker *health.Tracker, log *logging.Logger) *Handler {
	return &Handler{
		collector: c,
		tracker:   tracker,
		log:       log,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET", "HEAD")
	r.HandleFunc("/health/report", h.HealthReport).Methods("GET")
	r.HandleFunc("/immich", h.Immich).Methods("GET", "HEAD")
	r.HandleFunc("/cloudflare", h.Cloudflare).Methods("GET", "HEAD")
	r.HandleFunc("/history", h.History).Methods("GET")
	r.HandleFunc("/all", h.All).Methods("GET", "HEAD")
	r.HandleFunc("/", h.All).Methods("GET", "HEAD")
}

// Health handles the liveness endpoint. It answers as long as the
// process is serving; dependency state is reported separately.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:        "healthy",
		UptimeSeconds: int64(h.tracker.Uptime().Seconds()),
	})
}

// HealthReport returns the detailed probe report
func (h *Handler) HealthReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Report())
}

// Immich handles the Immich metrics endpoint
func (h *Handler) Immich(w http.ResponseWriter, r *http.Request) {
	metrics := h.collector.ImmichMetrics(r.Context())
	if metrics.Error != "" {
		h.log.Warn("Immich collection failed", map[string]interface{}{"error": metrics.Error})
	}
	writeJSON(w, http.StatusOK, metrics)
}

// Cloudflare handles the CloudFlare metrics endpoint
func (h *Handler) Cloudflare(w http.ResponseWriter, r *http.Request) {
	metrics := h.collector.CloudflareMetrics(r.Context())
	if metrics.Error != "" {
		h.log.Warn("CloudFlare collection failed", map[string]interface{}{"error": metrics.Error})
	}
	writeJSON(w, http.StatusOK, metrics)
}

// All handles the combined metrics endpoint
func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collector.Combined(r.Context()))
}

// History returns recent metric snapshots, newest first
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	snapshots, err := h.collector.History(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to read history", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}
	if snapshots == nil {
		snapshots = []*models.Snapshot{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
