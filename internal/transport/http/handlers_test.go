package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bridge-monitor/server/internal/domain"
	"bridge-monitor/server/internal/store"
)

// ─── Fakes ──────────────────────────────────────────────────

type fakeStore struct {
	bridges []domain.Bridge
	sensors []domain.Sensor
	kpis    map[string][]*domain.KPI
	latest  map[string]*domain.Measurement
	alarms  map[string][]domain.Alarm
	trend   []domain.TrendPoint
	events  []domain.Event

	upsertedBridges []domain.Bridge
	upsertedSensors []domain.Sensor
	deletedBridges  []string
	deletedSensors  []string
	ackedBy         string

	pingErr error
	failAll bool
}

var errFake = errors.New("fake store failure")

func (f *fakeStore) ListBridges(ctx context.Context) ([]domain.Bridge, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.bridges, nil
}

func (f *fakeStore) ListSensors(ctx context.Context) ([]domain.Sensor, error) {
	return f.sensors, nil
}

func (f *fakeStore) ListKPIs(ctx context.Context) (map[string][]*domain.KPI, error) {
	return f.kpis, nil
}

func (f *fakeStore) LatestMeasurements(ctx context.Context) (map[string]*domain.Measurement, error) {
	return f.latest, nil
}

func (f *fakeStore) ActiveAlarms(ctx context.Context) (map[string][]domain.Alarm, error) {
	return f.alarms, nil
}

func (f *fakeStore) RecentTrend(ctx context.Context, sensorID string, limit int) ([]domain.TrendPoint, error) {
	return f.trend, nil
}

func (f *fakeStore) UpsertBridge(ctx context.Context, b *domain.Bridge) error {
	f.upsertedBridges = append(f.upsertedBridges, *b)
	return nil
}

func (f *fakeStore) DeleteBridge(ctx context.Context, id string) error {
	for _, b := range f.bridges {
		if b.ID == id {
			f.deletedBridges = append(f.deletedBridges, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) UpsertSensor(ctx context.Context, s *domain.Sensor) error {
	f.upsertedSensors = append(f.upsertedSensors, *s)
	return nil
}

func (f *fakeStore) DeleteSensor(ctx context.Context, id string) error {
	for _, s := range f.sensors {
		if s.ID == id {
			f.deletedSensors = append(f.deletedSensors, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ListEvents(ctx context.Context, bridgeID string, limit int) ([]domain.Event, error) {
	return f.events, nil
}

func (f *fakeStore) AckEvent(ctx context.Context, id, by string) error {
	for _, e := range f.events {
		if e.ID == id {
			f.ackedBy = by
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

type fakeCache struct {
	states      map[string]*domain.Measurement
	cached      []byte
	stored      []byte
	invalidated int
	pingErr     error
}

func (f *fakeCache) SensorState(ctx context.Context, sensorID string) (*domain.Measurement, error) {
	return f.states[sensorID], nil
}

func (f *fakeCache) CachedDashboard(ctx context.Context) ([]byte, error) {
	return f.cached, nil
}

func (f *fakeCache) CacheDashboard(ctx context.Context, payload []byte, ttl time.Duration) error {
	f.stored = payload
	return nil
}

func (f *fakeCache) InvalidateDashboard(ctx context.Context) error {
	f.invalidated++
	return nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return f.pingErr }

type fakeValidator struct{}

func (fakeValidator) Validate(ctx context.Context, apiKey string) (string, bool) {
	if apiKey == "valid-key" {
		return "test-operator", true
	}
	return "", false
}

func intp(v int) *int { return &v }

func demoFixtures() (*fakeStore, *fakeCache) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st := &fakeStore{
		bridges: []domain.Bridge{
			{
				ID:         "br-001",
				Name:       "Puente 1 — Las Cucharas",
				Location:   domain.Location{Region: "Valparaíso", Lat: -33.036, Lng: -71.522},
				Status:     domain.StatusOK,
				LastUpdate: now,
				Meta:       domain.BridgeMeta{Type: "Arco de Hormigón", Length: "180m"},
			},
		},
		sensors: []domain.Sensor{
			{ID: "node-a1", BridgeID: "br-001", Alias: "Pilar Central - Base", Status: domain.StatusOK,
				Config: domain.SensorConfig{ODR: 125, Range: 2, Filter: "high-pass"}},
			{ID: "node-a2", BridgeID: "br-001", Alias: "Tablero - Tramo Norte", Status: domain.StatusOK,
				Config: domain.SensorConfig{ODR: 125, Range: 2}},
		},
		kpis: map[string][]*domain.KPI{
			"br-001": {
				{ID: "b1-kpi-health", BridgeID: "br-001", Key: "structuralHealth",
					Label: "Integridad Estructural", Unit: "%", Score: intp(98),
					Status: domain.StatusOK, Trend: "stable"},
			},
		},
		latest: map[string]*domain.Measurement{
			"node-a2": {SensorID: "node-a2", BridgeID: "br-001", Battery: 15,
				RSSI: -98, BoardTemp: 32.1, AccelRMSZ: 0.06, Timestamp: now},
		},
		alarms: map[string][]domain.Alarm{
			"node-a2": {{Type: domain.AlarmBatteryLow, Severity: domain.SeverityWarn, Message: "Batería < 20%"}},
		},
		events: []domain.Event{
			{ID: "ev-1", BridgeID: "br-001", SensorID: "node-a2",
				Type: domain.AlarmBatteryLow, Severity: domain.SeverityWarn},
		},
	}

	cache := &fakeCache{
		states: map[string]*domain.Measurement{
			"node-a1": {SensorID: "node-a1", BridgeID: "br-001", Battery: 88,
				RSSI: -65, BoardTemp: 34.2, AccelRMSX: 0.002, AccelRMSY: 0.003,
				AccelRMSZ: 0.045, SensorTemp: 22.5, Timestamp: now},
		},
	}
	return st, cache
}

func newTestRouter(st Store, cache StateCache) http.Handler {
	h := NewHandler(st, cache, nil, 200, 3600)
	return NewRouter(h, NewAuthMiddleware(fakeValidator{}))
}

// ─── Dashboard ──────────────────────────────────────────────

func TestDashboardAssembly(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var doc []domain.DashboardBridge
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if len(doc) != 1 {
		t.Fatalf("expected 1 bridge, got %d", len(doc))
	}

	b := doc[0]
	if b.ID != "br-001" || len(b.Nodes) != 2 {
		t.Fatalf("unexpected bridge shape: %+v", b)
	}
	if b.KPIs["structuralHealth"] == nil || *b.KPIs["structuralHealth"].Score != 98 {
		t.Fatalf("missing structuralHealth KPI: %+v", b.KPIs)
	}

	nodes := make(map[string]domain.DashboardNode)
	for _, n := range b.Nodes {
		nodes[n.ID] = n
	}

	// node-a1 snapshot came from the hot cache
	a1 := nodes["node-a1"]
	if a1.Health.Battery != 88 || a1.Telemetry.AccelRMS.Z != 0.045 {
		t.Fatalf("node-a1 snapshot not from cache: %+v", a1)
	}
	if a1.Status != domain.StatusOK || len(a1.Alarms) != 0 {
		t.Fatalf("node-a1 should be nominal: %+v", a1)
	}

	// node-a2 fell back to the Postgres latest row and carries its alarm
	a2 := nodes["node-a2"]
	if a2.Health.Battery != 15 || a2.Health.SignalStrength != -98 {
		t.Fatalf("node-a2 snapshot not from fallback: %+v", a2)
	}
	if len(a2.Alarms) != 1 || a2.Alarms[0].Type != domain.AlarmBatteryLow {
		t.Fatalf("node-a2 alarm missing: %+v", a2.Alarms)
	}
	if a2.Status != domain.StatusWarn {
		t.Fatalf("node-a2 should be warn, got %s", a2.Status)
	}

	// Bridge status is dragged up by the warn node.
	if b.Status != domain.StatusWarn {
		t.Fatalf("bridge should be warn, got %s", b.Status)
	}
}

func TestDashboardCarriesWindAlarm(t *testing.T) {
	st, cache := demoFixtures()
	st.sensors = append(st.sensors, domain.Sensor{
		ID: "node-c1", BridgeID: "br-001", Alias: "Pilono Central - Cima",
		Status: domain.StatusOK,
	})
	st.alarms["node-c1"] = []domain.Alarm{
		{Type: domain.AlarmWindVibration, Severity: domain.SeverityWarn,
			Message: "Vibración lateral alta (Viento)"},
	}
	router := newTestRouter(st, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	var doc []domain.DashboardBridge
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}

	var c1 *domain.DashboardNode
	for i := range doc[0].Nodes {
		if doc[0].Nodes[i].ID == "node-c1" {
			c1 = &doc[0].Nodes[i]
		}
	}
	if c1 == nil {
		t.Fatal("node-c1 missing from dashboard")
	}
	if len(c1.Alarms) != 1 || c1.Alarms[0].Type != domain.AlarmWindVibration {
		t.Fatalf("wind alarm missing: %+v", c1.Alarms)
	}
	if c1.Status != domain.StatusWarn {
		t.Fatalf("node-c1 should be warn, got %s", c1.Status)
	}
}

func TestDashboardServesCachedPayload(t *testing.T) {
	st, cache := demoFixtures()
	cache.cached = []byte(`[{"id":"cached"}]`)
	router := newTestRouter(st, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Body.String() != `[{"id":"cached"}]` {
		t.Fatalf("expected cached payload, got %s", rec.Body.String())
	}
}

func TestDashboardStoreFailure(t *testing.T) {
	st, cache := demoFixtures()
	st.failAll = true
	router := newTestRouter(st, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

// ─── Trend summary ──────────────────────────────────────────

func TestTrendSummarySynthesizesWhenEmpty(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/summary/b1-kpi-health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var points []domain.TrendPoint
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode points: %v", err)
	}
	if len(points) != 24 {
		t.Fatalf("expected 24 synthetic points, got %d", len(points))
	}
	if points[0].T != "00:00" || points[23].T != "23:00" {
		t.Fatalf("unexpected labels: %s .. %s", points[0].T, points[23].T)
	}
}

func TestTrendSummaryPrefersStoredRows(t *testing.T) {
	st, cache := demoFixtures()
	st.trend = []domain.TrendPoint{{T: "11:58", V: 0.05}, {T: "11:59", V: 0.06}}
	router := newTestRouter(st, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/summary/node-a1", nil))

	var points []domain.TrendPoint
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode points: %v", err)
	}
	if len(points) != 2 || points[1].V != 0.06 {
		t.Fatalf("expected stored rows, got %+v", points)
	}
}

// ─── Events ─────────────────────────────────────────────────

func TestListEventsRequiresBridgeID(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/events", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListEventsRejectsBadLimit(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/events?bridge_id=br-001&limit=9001", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListEventsReturnsRows(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/events?bridge_id=br-001", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var events []domain.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ev-1" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

// ─── Health ─────────────────────────────────────────────────

func TestHealthDegradedWhenDBDown(t *testing.T) {
	st, cache := demoFixtures()
	st.pingErr = errFake
	router := newTestRouter(st, cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "degraded" || body["postgres"] != false {
		t.Fatalf("unexpected health body: %v", body)
	}
}
