package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Seeds the demo fleet: three Chilean bridges with their sensor nodes and
// KPI rows, plus the admin API keys in Redis.

type bridgeRow struct {
	id, name, region                  string
	lat, lng                          float64
	status, structType, length, image string
}

type sensorRow struct {
	id, bridgeID, alias string
	x, y                float64
	status              string
	odr, accelRange     int
	filter              string
}

type eventRow struct {
	id, bridgeID, sensorID string
	eventType, severity    string
	msg                    string
	triggeredValue         float64
}

type kpiRow struct {
	bridgeID, key, id, kind, label, unit string
	score                                *int
	val                                  *float64
	status, trend, text                  string
	confidence                           *int
}

var bridges = []bridgeRow{
	{"br-001", "Puente 1 — Las Cucharas", "Valparaíso", -33.036, -71.522, "ok", "Arco de Hormigón", "180m", "/puente.png"},
	{"br-002", "Puente 2 — BioBío", "Biobío", -36.820, -73.050, "alert", "Vigas de Acero", "2200m", "/bridges/p2.jpg"},
	{"br-003", "Puente 3 — Canal de Chacao", "Los Lagos", -41.793, -73.526, "warn", "Colgante Multivano", "2750m", "/bridges/chacao_render.jpg"},
}

var sensors = []sensorRow{
	{"node-a1", "br-001", "Pilar Central - Base", 50, 80, "ok", 125, 2, "high-pass"},
	{"node-a2", "br-001", "Tablero - Tramo Norte", 20, 25, "warn", 125, 2, ""},
	{"node-b1", "br-002", "Junta de Dilatación 4", 60, 10, "alert", 500, 4, ""},
	{"node-c1", "br-003", "Pilono Central - Cima", 45, 15, "warn", 100, 2, ""},
}

var kpis = []kpiRow{
	{"br-001", "structuralHealth", "b1-kpi-health", "", "Integridad Estructural", "%", ip(98), nil, "ok", "stable", "", nil},
	{"br-001", "accelX", "b1-kpi-acc-x", "", "Vibración Global (X)", "g", nil, fp(0.004), "ok", "flat", "", nil},
	{"br-001", "accelY", "b1-kpi-acc-y", "", "Vibración Global (Y)", "g", nil, fp(0.008), "ok", "flat", "", nil},
	{"br-001", "accelZ", "b1-kpi-acc-z", "", "Vibración Global (Z)", "g", nil, fp(0.045), "ok", "stable", "", nil},
	{"br-001", "naturalFreq", "b1-kpi-freq", "", "Modo Fundamental", "Hz", nil, fp(3.42), "ok", "", "", nil},
	{"br-001", "aiAnalysis", "b1-kpi-ai", "text", "Diagnóstico IA", "", nil, nil, "ok", "",
		"Comportamiento nominal. Las firmas espectrales coinciden con el modelo base.", ip(96)},

	{"br-002", "structuralHealth", "b2-kpi-health", "", "Integridad Estructural", "%", ip(65), nil, "alert", "down", "", nil},
	{"br-002", "accelX", "b2-kpi-acc-x", "", "Vibración Global (X)", "g", nil, fp(0.015), "warn", "up", "", nil},
	{"br-002", "accelY", "b2-kpi-acc-y", "", "Vibración Global (Y)", "g", nil, fp(0.020), "warn", "flat", "", nil},
	{"br-002", "accelZ", "b2-kpi-acc-z", "", "Vibración Global (Z)", "g", nil, fp(0.120), "alert", "up", "", nil},
	{"br-002", "naturalFreq", "b2-kpi-freq", "", "Modo Fundamental", "Hz", nil, fp(2.10), "warn", "", "", nil},
	{"br-002", "aiAnalysis", "b2-kpi-ai", "text", "Diagnóstico IA", "", nil, nil, "alert", "",
		"¡Atención! Impactos de alta energía detectados en juntas de dilatación.", ip(89)},

	{"br-003", "structuralHealth", "b3-kpi-health", "", "Integridad Estructural", "%", ip(88), nil, "ok", "stable", "", nil},
	{"br-003", "accelX", "b3-kpi-acc-x", "", "Vibración Global (X)", "g", nil, fp(0.010), "ok", "flat", "", nil},
	{"br-003", "accelY", "b3-kpi-acc-y", "", "Vibración Global (Y)", "g", nil, fp(0.075), "warn", "up", "", nil},
	{"br-003", "accelZ", "b3-kpi-acc-z", "", "Vibración Global (Z)", "g", nil, fp(0.030), "ok", "stable", "", nil},
	{"br-003", "naturalFreq", "b3-kpi-freq", "", "Modo Fundamental", "Hz", nil, fp(0.15), "ok", "", "", nil},
	{"br-003", "aiAnalysis", "b3-kpi-ai", "text", "Diagnóstico IA", "", nil, nil, "warn", "",
		"Oscilaciones laterales moderadas por ráfagas de viento > 60km/h.", ip(92)},
}

// The alarms the demo fleet starts with: a drained node on br-001, the
// damaged BioBío joint, and wind oscillation on the Chacao pylon.
var events = []eventRow{
	{"evt-seed-a2-batt", "br-001", "node-a2", "BATTERY_LOW", "warn", "Batería < 20%", 15.0},
	{"evt-seed-b1-shock", "br-002", "node-b1", "SHOCK_DETECTED", "alert", "Impacto > 0.8g eje Z", 0.92},
	{"evt-seed-c1-wind", "br-003", "node-c1", "WIND_VIBRATION", "warn", "Vibración lateral alta (Viento)", 0.075},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file — using system environment variables")
	}

	ctx := context.Background()

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		seedGetEnv("DB_USER", "bridge_user"),
		seedGetEnv("DB_PASSWORD", "bridge_password"),
		seedGetEnv("DB_HOST", "localhost"),
		seedGetEnv("DB_PORT", "5432"),
		seedGetEnv("DB_NAME", "bridge_monitor"),
	)

	fmt.Println("Connecting to Postgres...")
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nRun scripts/init_db first.", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	client := redis.NewClient(&redis.Options{
		Addr:     seedGetEnv("REDIS_ADDR", "localhost:6379"),
		Password: seedGetEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v\n\nMake sure Redis is running:\n  docker-compose up -d redis", err)
	}

	step1_bridges(ctx, conn)
	step2_sensors(ctx, conn)
	step3_kpis(ctx, conn)
	step4_events(ctx, conn)
	step5_admin_keys(ctx, client)
	step6_verify(ctx, conn, client)

	fmt.Println("\n✅ Demo data seeded successfully")
	fmt.Println("   Run next: go run cmd/server/main.go")
}

func step1_bridges(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 1: Bridges ─────────────────────────────")

	for _, b := range bridges {
		_, err := conn.Exec(ctx, `
			INSERT INTO bridges (id, name, region, lat, lng, status, structure_type, length, image, last_update)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			ON CONFLICT (id) DO NOTHING
		`, b.id, b.name, b.region, b.lat, b.lng, b.status, b.structType, b.length, b.image)
		if err != nil {
			log.Fatalf("Failed to seed bridge %s: %v", b.id, err)
		}
		fmt.Printf("  ✓ %-8s %s\n", b.id, b.name)
	}
}

func step2_sensors(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 2: Sensors ─────────────────────────────")

	for _, s := range sensors {
		_, err := conn.Exec(ctx, `
			INSERT INTO sensors (id, bridge_id, alias, x, y, status, odr, accel_range, filter)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`, s.id, s.bridgeID, s.alias, s.x, s.y, s.status, s.odr, s.accelRange, s.filter)
		if err != nil {
			log.Fatalf("Failed to seed sensor %s: %v", s.id, err)
		}
		fmt.Printf("  ✓ %-8s → %s (%s)\n", s.id, s.bridgeID, s.alias)
	}
}

func step3_kpis(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 3: KPIs ────────────────────────────────")

	for _, k := range kpis {
		_, err := conn.Exec(ctx, `
			INSERT INTO kpis (id, bridge_id, key, kind, label, unit, score, val, status, trend, text, confidence, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
			ON CONFLICT (bridge_id, key) DO NOTHING
		`, k.id, k.bridgeID, k.key, k.kind, k.label, k.unit, k.score, k.val, k.status, k.trend, k.text, k.confidence)
		if err != nil {
			log.Fatalf("Failed to seed kpi %s/%s: %v", k.bridgeID, k.key, err)
		}
	}
	fmt.Printf("  ✓ %d KPI rows\n", len(kpis))
}

func step4_events(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 4: Initial events ──────────────────────")

	for _, e := range events {
		_, err := conn.Exec(ctx, `
			INSERT INTO events (id, bridge_id, sensor_id, event_type, severity, msg, triggered_value, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (id) DO NOTHING
		`, e.id, e.bridgeID, e.sensorID, e.eventType, e.severity, e.msg, e.triggeredValue)
		if err != nil {
			log.Fatalf("Failed to seed event %s: %v", e.id, err)
		}
		fmt.Printf("  ✓ %-18s %s on %s\n", e.id, e.eventType, e.sensorID)
	}
}

func step5_admin_keys(ctx context.Context, client *redis.Client) {
	fmt.Println("\n── Step 5: Admin API keys ──────────────────────")

	// Key pattern: admin:auth:{api_key} → operator name.
	// This is what the authenticator looks up at Level 2.
	apiKeys := map[string]string{
		"admin:auth:ops_valparaiso_key": "ops-valparaiso",
		"admin:auth:ops_biobio_key":     "ops-biobio",
		"admin:auth:test_key":           "test-operator",
	}

	for key, operator := range apiKeys {
		if err := client.Set(ctx, key, operator, 0).Err(); err != nil {
			log.Fatalf("Failed to set key %s: %v", key, err)
		}
		fmt.Printf("  ✓ %-35s → %s\n", key, operator)
	}
}

func step6_verify(ctx context.Context, conn *pgx.Conn, client *redis.Client) {
	fmt.Println("\n── Step 6: Verification ────────────────────────")

	counts := map[string]string{
		"bridges": "SELECT COUNT(*) FROM bridges",
		"sensors": "SELECT COUNT(*) FROM sensors",
		"kpis":    "SELECT COUNT(*) FROM kpis",
		"events":  "SELECT COUNT(*) FROM events",
	}
	for table, query := range counts {
		var n int
		if err := conn.QueryRow(ctx, query).Scan(&n); err != nil {
			log.Fatalf("Verification failed for %s: %v", table, err)
		}
		fmt.Printf("  ✓ %-8s %d rows\n", table, n)
	}

	keys, err := client.Keys(ctx, "admin:auth:*").Result()
	if err != nil {
		log.Fatalf("Redis verification failed: %v", err)
	}
	fmt.Printf("  ✓ %d admin API keys in Redis\n", len(keys))
}

func ip(v int) *int         { return &v }
func fp(v float64) *float64 { return &v }

func seedGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
