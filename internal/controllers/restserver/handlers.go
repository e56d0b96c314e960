package restserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chrissnell/remoteweather-lightning/internal/log"
	"github.com/gorilla/mux"
)

// maxStrikeSpan bounds /api/lightning/strikes requests
const maxStrikeSpan = 365 * 24 * time.Hour

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	now        func() time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		now:        time.Now,
	}
}

// LightningStatus is the body of /api/lightning/status
type LightningStatus struct {
	PendingStrikes int    `json:"pending_strikes"`
	Binding        string `json:"binding"`
	UnitSystem     string `json:"unit_system"`
}

// Strike is one archived strike in /api/lightning/strikes output.
// DistanceKm is null for a strike beyond the sensor's range.
type Strike struct {
	Timestamp  int64    `json:"ts"`
	DistanceKm *float64 `json:"distance_km"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("error encoding response to JSON: %v", err)
	}
}

// GetHealth reports whether the service and its archive are reachable
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	if h.controller.pinger != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := h.controller.pinger.Ping(ctx); err != nil {
			log.Errorf("health check: archive unreachable: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  "archive unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetLightningStatus returns the strikes buffered for the next record
func (h *Handlers) GetLightningStatus(w http.ResponseWriter, req *http.Request) {
	c := h.controller
	writeJSON(w, http.StatusOK, LightningStatus{
		PendingStrikes: c.status.Pending(),
		Binding:        c.status.Binding().String(),
		UnitSystem:     c.units.String(),
	})
}

// GetStrikeSpan returns the archived strikes from the last {span}
func (h *Handlers) GetStrikeSpan(w http.ResponseWriter, req *http.Request) {
	if h.controller.querier == nil {
		http.Error(w, "strike archive not enabled", http.StatusNotFound)
		return
	}

	vars := mux.Vars(req)
	span, err := time.ParseDuration(vars["span"])
	if err != nil || span <= 0 {
		log.Errorf("invalid request: unable to parse duration: %v", vars["span"])
		http.Error(w, "error: invalid span duration", http.StatusBadRequest)
		return
	}
	if span > maxStrikeSpan {
		http.Error(w, "time span exceeds maximum allowed duration of 1 year", http.StatusBadRequest)
		return
	}

	now := h.now()
	records, err := h.controller.querier.Strikes(req.Context(), now.Add(-span).Unix(), now.Unix()+1)
	if err != nil {
		log.Errorf("error fetching strikes: %v", err)
		http.Error(w, "error fetching strike data", http.StatusInternalServerError)
		return
	}

	strikes := make([]Strike, len(records))
	for i, r := range records {
		strikes[i] = Strike{Timestamp: r.DateTime, DistanceKm: r.Distance}
	}
	writeJSON(w, http.StatusOK, strikes)
}
