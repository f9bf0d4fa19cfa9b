package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExportCSVSensorRows(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	url := "/export/csv?id=node-a1&start=2026-03-01T10:00:00&end=2026-03-01T10:00:02"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", url, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("expected text/csv, got %s", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=export_node-a1_20260301.csv" {
		t.Fatalf("unexpected disposition: %s", got)
	}

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if lines[0] != "Timestamp,Accel_X(g),Accel_Y(g),Accel_Z(g),Battery(%),RSSI(dBm)" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	// 2 seconds at 200Hz plus the header.
	if len(lines) != 401 {
		t.Fatalf("expected 401 lines, got %d", len(lines))
	}

	first := strings.Split(lines[1], ",")
	if len(first) != 6 || first[4] == "" {
		t.Fatalf("first row should carry battery: %v", first)
	}
	second := strings.Split(lines[2], ",")
	if second[4] != "" {
		t.Fatalf("second row should omit battery: %v", second)
	}
}

func TestExportCSVKPIHeader(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	url := "/export/csv?id=b1-kpi-health&type=kpi&start=2026-03-01T10:00:00&end=2026-03-01T10:00:01"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", url, nil))

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if lines[0] != "Timestamp,Value,Status,Confidence(%)" {
		t.Fatalf("unexpected kpi header: %s", lines[0])
	}
	if len(lines) != 201 {
		t.Fatalf("expected 201 lines, got %d", len(lines))
	}
}

func TestExportCSVValidation(t *testing.T) {
	st, cache := demoFixtures()
	router := newTestRouter(st, cache)

	tests := []struct {
		name string
		url  string
	}{
		{"missing id", "/export/csv?start=2026-03-01&end=2026-03-01"},
		{"bad type", "/export/csv?id=x&type=bogus&start=2026-03-01&end=2026-03-01"},
		{"bad dates", "/export/csv?id=x&start=yesterday&end=today"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.url, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestExportCSVClampsLongRange(t *testing.T) {
	st, cache := demoFixtures()
	h := NewHandler(st, cache, nil, 2, 10) // 2Hz, 10s cap: tiny for the test
	router := NewRouter(h, NewAuthMiddleware(fakeValidator{}))

	url := "/export/csv?id=node-a1&start=2026-03-01&end=2026-03-05"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", url, nil))

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	// 10 seconds at 2Hz plus header, regardless of the 4-day request.
	if len(lines) != 21 {
		t.Fatalf("expected 21 lines after clamp, got %d", len(lines))
	}
}
