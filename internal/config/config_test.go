package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != "8000" {
		t.Fatalf("expected default HTTP port 8000, got %s", cfg.HTTPPort)
	}
	if cfg.DBName != "bridge_monitor" {
		t.Fatalf("expected default db name bridge_monitor, got %s", cfg.DBName)
	}
	if cfg.ExportSampleHz != 200 {
		t.Fatalf("expected default export rate 200Hz, got %d", cfg.ExportSampleHz)
	}
	if cfg.ExportMaxSeconds != 3600 {
		t.Fatalf("expected default export cap 3600s, got %d", cfg.ExportMaxSeconds)
	}
	if cfg.DBBatchSize != 500 {
		t.Fatalf("expected default batch size 500, got %d", cfg.DBBatchSize)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("DB_MAX_CONNS", "42")
	t.Setenv("ADMIN_API_KEYS", "key-a,key-b")

	cfg := Load()

	if cfg.HTTPPort != "9999" {
		t.Fatalf("expected HTTP port 9999, got %s", cfg.HTTPPort)
	}
	if cfg.DBMaxConns != 42 {
		t.Fatalf("expected 42 max conns, got %d", cfg.DBMaxConns)
	}
	if len(cfg.AdminAPIKeys) != 2 || cfg.AdminAPIKeys[0] != "key-a" {
		t.Fatalf("unexpected admin keys: %v", cfg.AdminAPIKeys)
	}
}

func TestLoadIgnoresMalformedInts(t *testing.T) {
	t.Setenv("SAMPLE_INTERVAL_MS", "not-a-number")

	cfg := Load()

	if cfg.SampleIntervalMS != 1000 {
		t.Fatalf("expected fallback 1000, got %d", cfg.SampleIntervalMS)
	}
}
