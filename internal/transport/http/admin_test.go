package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAdminRequiresAPIKey(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	req := httptest.NewRequest("POST", "/admin/bridge", strings.NewReader(`{"id":"br-009"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	req = httptest.NewRequest("POST", "/admin/bridge", strings.NewReader(`{"id":"br-009"}`))
	req.Header.Set("X-API-Key", "wrong-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad key, got %d", rec.Code)
	}
}

func TestUpsertBridge(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	body := `{
		"id": "br-004",
		"nombre": "Puente 4 — Maipo",
		"ubicacion": {"region": "Metropolitana", "lat": -33.7, "lng": -70.8},
		"meta": {"tipo": "Viga Cajón", "largo": "410m", "imagen": "/bridges/maipo.jpg"}
	}`
	req := httptest.NewRequest("POST", "/admin/bridge", strings.NewReader(body))
	req.Header.Set("X-API-Key", "valid-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(st.upsertedBridges) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(st.upsertedBridges))
	}

	b := st.upsertedBridges[0]
	if b.ID != "br-004" || b.Location.Region != "Metropolitana" {
		t.Fatalf("bad upserted bridge: %+v", b)
	}
	if b.Status != "ok" {
		t.Fatalf("omitted status should default to ok, got %q", b.Status)
	}
	if cache.invalidated == 0 {
		t.Fatal("dashboard cache should be invalidated after upsert")
	}
}

func TestUpsertBridgeValidation(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"id": `},
		{"missing id", `{"nombre": "sin id"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/admin/bridge", strings.NewReader(tt.body))
			req.Header.Set("X-API-Key", "valid-key")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestDeleteBridge(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	req := httptest.NewRequest("DELETE", "/admin/bridge/br-001", nil)
	req.Header.Set("X-API-Key", "valid-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(st.deletedBridges) != 1 || st.deletedBridges[0] != "br-001" {
		t.Fatalf("unexpected deletions: %v", st.deletedBridges)
	}

	req = httptest.NewRequest("DELETE", "/admin/bridge/br-404", nil)
	req.Header.Set("X-API-Key", "valid-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown bridge, got %d", rec.Code)
	}
}

func TestUpsertSensorRequiresBridgeID(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	req := httptest.NewRequest("POST", "/admin/sensor", strings.NewReader(`{"id":"node-x1"}`))
	req.Header.Set("X-API-Key", "valid-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without bridge_id, got %d", rec.Code)
	}
}

func TestUpsertAndDeleteSensor(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	body := `{
		"id": "node-a3",
		"bridge_id": "br-001",
		"alias": "Estribo Sur",
		"x": 80, "y": 85,
		"config": {"odr": 250, "range": 4, "filter": "band-pass"}
	}`
	req := httptest.NewRequest("POST", "/admin/sensor", strings.NewReader(body))
	req.Header.Set("X-API-Key", "valid-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	s := st.upsertedSensors[0]
	if s.BridgeID != "br-001" || s.Config.ODR != 250 {
		t.Fatalf("bad upserted sensor: %+v", s)
	}

	req = httptest.NewRequest("DELETE", "/admin/sensor/node-a1", nil)
	req.Header.Set("X-API-Key", "valid-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(st.deletedSensors) != 1 || st.deletedSensors[0] != "node-a1" {
		t.Fatalf("unexpected deletions: %v", st.deletedSensors)
	}
}

func TestAckEventStampsOperator(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	req := httptest.NewRequest("POST", "/admin/events/ev-1/ack", nil)
	req.Header.Set("X-API-Key", "valid-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if st.ackedBy != "test-operator" {
		t.Fatalf("expected operator from auth context, got %q", st.ackedBy)
	}

	req = httptest.NewRequest("POST", "/admin/events/ev-404/ack", nil)
	req.Header.Set("X-API-Key", "valid-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown event, got %d", rec.Code)
	}
}
