package http

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bridge-monitor/server/internal/domain"
	"bridge-monitor/server/internal/simulate"
	"bridge-monitor/server/internal/ws"
)

// Store is the Postgres surface the handlers need. *store.PostgresStore
// implements it; tests substitute a fake.
type Store interface {
	ListBridges(ctx context.Context) ([]domain.Bridge, error)
	ListSensors(ctx context.Context) ([]domain.Sensor, error)
	ListKPIs(ctx context.Context) (map[string][]*domain.KPI, error)
	LatestMeasurements(ctx context.Context) (map[string]*domain.Measurement, error)
	ActiveAlarms(ctx context.Context) (map[string][]domain.Alarm, error)
	RecentTrend(ctx context.Context, sensorID string, limit int) ([]domain.TrendPoint, error)

	UpsertBridge(ctx context.Context, b *domain.Bridge) error
	DeleteBridge(ctx context.Context, id string) error
	UpsertSensor(ctx context.Context, s *domain.Sensor) error
	DeleteSensor(ctx context.Context, id string) error

	ListEvents(ctx context.Context, bridgeID string, limit int) ([]domain.Event, error)
	AckEvent(ctx context.Context, id, by string) error

	Ping(ctx context.Context) error
}

// StateCache is the Redis surface the handlers need.
type StateCache interface {
	SensorState(ctx context.Context, sensorID string) (*domain.Measurement, error)
	CachedDashboard(ctx context.Context) ([]byte, error)
	CacheDashboard(ctx context.Context, payload []byte, ttl time.Duration) error
	InvalidateDashboard(ctx context.Context) error
	Ping(ctx context.Context) error
}

const dashboardCacheTTL = 2 * time.Second

type Handler struct {
	store Store
	cache StateCache
	hub   *ws.Hub

	exportHz         int
	exportMaxSeconds int
}

func NewHandler(store Store, cache StateCache, hub *ws.Hub, exportHz, exportMaxSeconds int) *Handler {
	return &Handler{
		store:            store,
		cache:            cache,
		hub:              hub,
		exportHz:         exportHz,
		exportMaxSeconds: exportMaxSeconds,
	}
}

// Dashboard handles GET /: the full bridge list with KPIs and node
// snapshots, assembled from Postgres plus the Redis hot state.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cached, err := h.cache.CachedDashboard(ctx); err == nil && cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached)
		return
	}

	doc, err := h.assembleDashboard(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to assemble dashboard")
		return
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode dashboard")
		return
	}
	h.cache.CacheDashboard(ctx, payload, dashboardCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (h *Handler) assembleDashboard(ctx context.Context) ([]domain.DashboardBridge, error) {
	bridges, err := h.store.ListBridges(ctx)
	if err != nil {
		return nil, err
	}
	sensors, err := h.store.ListSensors(ctx)
	if err != nil {
		return nil, err
	}
	kpisByBridge, err := h.store.ListKPIs(ctx)
	if err != nil {
		return nil, err
	}
	alarmsBySensor, err := h.store.ActiveAlarms(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := h.store.LatestMeasurements(ctx)
	if err != nil {
		return nil, err
	}

	sensorsByBridge := make(map[string][]domain.Sensor)
	for _, s := range sensors {
		sensorsByBridge[s.BridgeID] = append(sensorsByBridge[s.BridgeID], s)
	}

	doc := make([]domain.DashboardBridge, 0, len(bridges))
	for _, b := range bridges {
		entry := domain.DashboardBridge{
			ID:         b.ID,
			Name:       b.Name,
			Location:   b.Location,
			Status:     b.Status,
			LastUpdate: b.LastUpdate,
			Meta:       b.Meta,
			KPIs:       make(map[string]*domain.KPI),
			Nodes:      []domain.DashboardNode{},
		}

		statuses := []domain.Status{b.Status}
		for _, k := range kpisByBridge[b.ID] {
			entry.KPIs[k.Key] = k
			statuses = append(statuses, k.Status)
		}

		for _, s := range sensorsByBridge[b.ID] {
			node := h.assembleNode(ctx, s, alarmsBySensor[s.ID], latest[s.ID])
			entry.Nodes = append(entry.Nodes, node)
			statuses = append(statuses, node.Status)
		}

		entry.Status = domain.WorstStatus(statuses...)
		doc = append(doc, entry)
	}
	return doc, nil
}

func (h *Handler) assembleNode(ctx context.Context, s domain.Sensor, alarms []domain.Alarm, fallback *domain.Measurement) domain.DashboardNode {
	// Hot snapshot first, Postgres latest row when the key expired.
	m, err := h.cache.SensorState(ctx, s.ID)
	if err != nil || m == nil {
		m = fallback
	}

	node := domain.DashboardNode{
		ID:     s.ID,
		Alias:  s.Alias,
		X:      s.X,
		Y:      s.Y,
		Config: s.Config,
		Alarms: []domain.Alarm{},
	}

	statuses := []domain.Status{s.Status}
	for _, a := range alarms {
		node.Alarms = append(node.Alarms, a)
		statuses = append(statuses, domain.SeverityStatus(a.Severity))
	}
	node.Status = domain.WorstStatus(statuses...)

	if m != nil {
		node.Health = domain.SensorHealth{
			Battery:        m.Battery,
			SignalStrength: m.RSSI,
			BoardTemp:      m.BoardTemp,
			LastSeen:       m.Timestamp,
		}
		node.Telemetry = domain.SensorTelemetry{
			AccelRMS: domain.AccelRMS{
				X: m.AccelRMSX,
				Y: m.AccelRMSY,
				Z: m.AccelRMSZ,
			},
			SensorTemp: m.SensorTemp,
		}
	}
	return node
}

// TrendSummary handles GET /summary/{resourceID}: 24 chart points from real
// rows when the series exists, synthesized from the resource's profile when
// it does not (KPI series and freshly added sensors).
func (h *Handler) TrendSummary(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resourceID")

	points, err := h.store.RecentTrend(r.Context(), resourceID, simulate.TrendPoints)
	if err != nil || len(points) == 0 {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		points = simulate.TrendSeries(resourceID, rng)
	}

	writeJSON(w, http.StatusOK, points)
}

// ListEvents handles GET /events?bridge_id=&limit=.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	bridgeID := r.URL.Query().Get("bridge_id")
	if bridgeID == "" {
		writeError(w, http.StatusBadRequest, "bridge_id parameter is required")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := h.store.ListEvents(r.Context(), bridgeID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// WebSocket handles GET /ws.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	ws.ServeWS(h.hub, w, r)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbOK := h.store.Ping(r.Context()) == nil
	redisOK := h.cache.Ping(r.Context()) == nil

	status := "healthy"
	httpStatus := http.StatusOK
	if !dbOK || !redisOK {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"postgres":  dbOK,
		"redis":     redisOK,
		"timestamp": time.Now(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
