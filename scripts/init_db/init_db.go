package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using system environment variables")
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		dbGetEnv("DB_USER", "bridge_user"),
		dbGetEnv("DB_PASSWORD", "bridge_password"),
		dbGetEnv("DB_HOST", "localhost"),
		dbGetEnv("DB_PORT", "5432"),
		dbGetEnv("DB_NAME", "bridge_monitor"),
	)

	ctx := context.Background()

	fmt.Println("Connecting to Postgres...")
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Postgres is running:\n  docker-compose up -d postgres", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	step1_extensions(ctx, conn)
	step2_config_tables(ctx, conn)
	step3_measurements_table(ctx, conn)
	step4_kpi_event_tables(ctx, conn)
	step5_indexes(ctx, conn)
	step6_verify(ctx, conn)

	fmt.Println("\n✅ Database initialised successfully")
	fmt.Println("   Run next: go run scripts/seed_demo/seed_demo.go")
}

// ─────────────────────────────────────────────────────────────
// Step 1 — Extensions
// ─────────────────────────────────────────────────────────────
func step1_extensions(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 1: Extensions ──────────────────────────")

	// TimescaleDB — required for the measurements hypertable
	execOrFatal(ctx, conn,
		"CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;",
		"timescaledb extension",
	)
}

// ─────────────────────────────────────────────────────────────
// Step 2 — bridges and sensors tables
// ─────────────────────────────────────────────────────────────
func step2_config_tables(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 2: bridges / sensors tables ────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS bridges (
			id             TEXT             PRIMARY KEY,
			name           TEXT             NOT NULL,
			region         TEXT             NOT NULL DEFAULT '',
			lat            DOUBLE PRECISION NOT NULL DEFAULT 0,
			lng            DOUBLE PRECISION NOT NULL DEFAULT 0,
			status         TEXT             NOT NULL DEFAULT 'ok',
			structure_type TEXT             NOT NULL DEFAULT '',
			length         TEXT             NOT NULL DEFAULT '',
			image          TEXT             NOT NULL DEFAULT '',
			last_update    TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

			CONSTRAINT chk_bridge_status CHECK (
				status IN ('ok', 'warn', 'alert')
			)
		);
	`, "bridges table created")

	// Deleting a bridge takes its sensors with it; the sensors' cascade
	// then clears measurements.
	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS sensors (
			id          TEXT             PRIMARY KEY,
			bridge_id   TEXT             NOT NULL
			            REFERENCES bridges(id) ON DELETE CASCADE,
			alias       TEXT             NOT NULL DEFAULT '',
			x           DOUBLE PRECISION NOT NULL DEFAULT 0,
			y           DOUBLE PRECISION NOT NULL DEFAULT 0,
			status      TEXT             NOT NULL DEFAULT 'ok',
			odr         INTEGER          NOT NULL DEFAULT 125,
			accel_range INTEGER          NOT NULL DEFAULT 2,
			filter      TEXT             NOT NULL DEFAULT '',

			CONSTRAINT chk_sensor_status CHECK (
				status IN ('ok', 'warn', 'alert')
			)
		);
	`, "sensors table created")
}

// ─────────────────────────────────────────────────────────────
// Step 3 — measurements hypertable
// ─────────────────────────────────────────────────────────────
func step3_measurements_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 3: measurements table ──────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS measurements (

			-- Sample time — TimescaleDB partitions by this
			ts          TIMESTAMPTZ      NOT NULL,

			-- Server receipt time; node clocks drift
			received_at TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

			sensor_id   TEXT             NOT NULL
			            REFERENCES sensors(id) ON DELETE CASCADE,
			bridge_id   TEXT             NOT NULL,

			-- Accelerometer RMS per axis, in g
			accel_rms_x DOUBLE PRECISION NOT NULL DEFAULT 0,
			accel_rms_y DOUBLE PRECISION NOT NULL DEFAULT 0,
			accel_rms_z DOUBLE PRECISION NOT NULL DEFAULT 0,

			sensor_temp DOUBLE PRECISION NOT NULL DEFAULT 0,
			board_temp  DOUBLE PRECISION NOT NULL DEFAULT 0,
			battery     DOUBLE PRECISION NOT NULL DEFAULT 0,
			rssi        DOUBLE PRECISION NOT NULL DEFAULT 0
		);
	`, "measurements table created")

	execOrFatal(ctx, conn, `
		SELECT create_hypertable(
			'measurements',
			'ts',
			if_not_exists => TRUE
		);
	`, "measurements converted to hypertable")
}

// ─────────────────────────────────────────────────────────────
// Step 4 — kpis and events tables
// ─────────────────────────────────────────────────────────────
func step4_kpi_event_tables(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 4: kpis / events tables ────────────────")

	// One row per (bridge, key): structuralHealth, accelX/Y/Z,
	// naturalFreq, aiAnalysis.
	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS kpis (
			id         TEXT             NOT NULL,
			bridge_id  TEXT             NOT NULL
			           REFERENCES bridges(id) ON DELETE CASCADE,
			key        TEXT             NOT NULL,
			kind       TEXT             NOT NULL DEFAULT '',
			label      TEXT             NOT NULL DEFAULT '',
			unit       TEXT             NOT NULL DEFAULT '',
			score      INTEGER,
			val        DOUBLE PRECISION,
			status     TEXT             NOT NULL DEFAULT 'ok',
			trend      TEXT             NOT NULL DEFAULT '',
			text       TEXT             NOT NULL DEFAULT '',
			confidence INTEGER,
			updated_at TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

			PRIMARY KEY (bridge_id, key)
		);
	`, "kpis table created")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS events (
			id              TEXT             PRIMARY KEY,
			bridge_id       TEXT             NOT NULL
			                REFERENCES bridges(id) ON DELETE CASCADE,
			sensor_id       TEXT             NOT NULL DEFAULT '',
			event_type      TEXT             NOT NULL,
			severity        TEXT             NOT NULL,
			msg             TEXT             NOT NULL DEFAULT '',
			triggered_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

			-- NULL means not yet acknowledged
			acknowledged_at TIMESTAMPTZ,
			acknowledged_by TEXT,

			CONSTRAINT chk_event_type CHECK (
				event_type IN ('BATTERY_LOW', 'SHOCK_DETECTED', 'WEAK_SIGNAL', 'WIND_VIBRATION')
			),
			CONSTRAINT chk_event_severity CHECK (
				severity IN ('info', 'warn', 'alert')
			)
		);
	`, "events table created")
}

// ─────────────────────────────────────────────────────────────
// Step 5 — Indexes
// ─────────────────────────────────────────────────────────────
func step5_indexes(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 5: Indexes ─────────────────────────────")

	indexes := []struct {
		name string
		sql  string
		why  string
	}{
		{
			name: "idx_measurements_sensor_ts",
			sql: `CREATE INDEX IF NOT EXISTS idx_measurements_sensor_ts
				  ON measurements (sensor_id, ts DESC);`,
			why: "query: latest / recent rows for one sensor",
		},
		{
			name: "idx_measurements_bridge_ts",
			sql: `CREATE INDEX IF NOT EXISTS idx_measurements_bridge_ts
				  ON measurements (bridge_id, ts DESC);`,
			why: "query: all sensors of a bridge",
		},
		{
			name: "idx_sensors_bridge",
			sql: `CREATE INDEX IF NOT EXISTS idx_sensors_bridge
				  ON sensors (bridge_id);`,
			why: "query: sensors per bridge (dashboard join)",
		},
		{
			name: "idx_events_bridge",
			sql: `CREATE INDEX IF NOT EXISTS idx_events_bridge
				  ON events (bridge_id, created_at DESC);`,
			why: "query: event history per bridge",
		},
		{
			name: "idx_events_unacknowledged",
			sql: `CREATE INDEX IF NOT EXISTS idx_events_unacknowledged
				  ON events (sensor_id, created_at DESC)
				  WHERE acknowledged_at IS NULL;`,
			why: "query: active alarms only (partial index)",
		},
	}

	for _, idx := range indexes {
		execOrFatal(ctx, conn, idx.sql,
			fmt.Sprintf("%-40s ← %s", idx.name, idx.why),
		)
	}
}

// ─────────────────────────────────────────────────────────────
// Step 6 — Verify everything was created
// ─────────────────────────────────────────────────────────────
func step6_verify(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 6: Verification ────────────────────────")

	tables := []string{"bridges", "sensors", "measurements", "kpis", "events"}
	for _, table := range tables {
		var exists bool
		err := conn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil || !exists {
			log.Fatalf("Table %s was not created: %v", table, err)
		}
		fmt.Printf("  ✓ table: %s\n", table)
	}

	var hypertableName string
	err := conn.QueryRow(ctx, `
		SELECT hypertable_name
		FROM timescaledb_information.hypertables
		WHERE hypertable_name = 'measurements'
	`).Scan(&hypertableName)
	if err != nil {
		log.Fatalf("measurements is not a hypertable: %v", err)
	}
	fmt.Printf("  ✓ hypertable: %s (time partitioned)\n", hypertableName)

	var indexCount int
	err = conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM pg_indexes
		WHERE tablename IN ('measurements', 'sensors', 'events')
		AND indexname LIKE 'idx_%'
	`).Scan(&indexCount)
	if err != nil {
		log.Fatalf("Index check failed: %v", err)
	}
	fmt.Printf("  ✓ indexes created: %d\n", indexCount)
}

// ─────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────

// execOrFatal runs a SQL statement and prints result or exits on error
func execOrFatal(ctx context.Context, conn *pgx.Conn, sql, label string) {
	_, err := conn.Exec(ctx, sql)
	if err != nil {
		log.Fatalf("FAILED — %s\nError: %v\nSQL: %s", label, err, sql)
	}
	fmt.Printf("  ✓ %s\n", label)
}

func dbGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
