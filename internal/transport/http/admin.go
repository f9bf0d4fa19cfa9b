package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bridge-monitor/server/internal/domain"
	"bridge-monitor/server/internal/store"
)

// UpsertBridge handles POST /admin/bridge.
func (h *Handler) UpsertBridge(w http.ResponseWriter, r *http.Request) {
	var b domain.Bridge
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if b.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if b.Status == "" {
		b.Status = domain.StatusOK
	}

	if err := h.store.UpsertBridge(r.Context(), &b); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to upsert bridge")
		return
	}
	h.cache.InvalidateDashboard(r.Context())

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "id": b.ID})
}

// DeleteBridge handles DELETE /admin/bridge/{bridgeID}. Sensors,
// measurements, KPIs and events cascade away in the database.
func (h *Handler) DeleteBridge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bridgeID")

	if err := h.store.DeleteBridge(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bridge not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete bridge")
		return
	}
	h.cache.InvalidateDashboard(r.Context())

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// UpsertSensor handles POST /admin/sensor.
func (h *Handler) UpsertSensor(w http.ResponseWriter, r *http.Request) {
	var s domain.Sensor
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if s.ID == "" || s.BridgeID == "" {
		writeError(w, http.StatusBadRequest, "id and bridge_id are required")
		return
	}
	if s.Status == "" {
		s.Status = domain.StatusOK
	}

	if err := h.store.UpsertSensor(r.Context(), &s); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to upsert sensor")
		return
	}
	h.cache.InvalidateDashboard(r.Context())

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "id": s.ID})
}

// DeleteSensor handles DELETE /admin/sensor/{sensorID}; the sensor's
// measurements cascade away with it.
func (h *Handler) DeleteSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sensorID")

	if err := h.store.DeleteSensor(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sensor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete sensor")
		return
	}
	h.cache.InvalidateDashboard(r.Context())

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// AckEvent handles POST /admin/events/{eventID}/ack, stamping the
// authenticated operator on the event.
func (h *Handler) AckEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	operator := Operator(r.Context())

	if err := h.store.AckEvent(r.Context(), id, operator); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found or already acknowledged")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to acknowledge event")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged", "id": id})
}
