package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bridge-monitor/server/internal/config"
	"bridge-monitor/server/internal/domain"
)

// ErrNotFound is returned when a delete or ack targets a missing row.
var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBMaxConns,
	)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ─── Bridges ────────────────────────────────────────────────

func (s *PostgresStore) UpsertBridge(ctx context.Context, b *domain.Bridge) error {
	query := `
		INSERT INTO bridges
			(id, name, region, lat, lng, status, structure_type, length, image, last_update)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name           = EXCLUDED.name,
			region         = EXCLUDED.region,
			lat            = EXCLUDED.lat,
			lng            = EXCLUDED.lng,
			status         = EXCLUDED.status,
			structure_type = EXCLUDED.structure_type,
			length         = EXCLUDED.length,
			image          = EXCLUDED.image,
			last_update    = NOW()
	`
	_, err := s.pool.Exec(ctx, query,
		b.ID, b.Name, b.Location.Region, b.Location.Lat, b.Location.Lng,
		string(b.Status), b.Meta.Type, b.Meta.Length, b.Meta.Image,
	)
	if err != nil {
		return fmt.Errorf("upsert bridge %s: %w", b.ID, err)
	}
	return nil
}

// DeleteBridge removes a bridge; sensors, measurements, KPIs and events go
// with it via FK cascade.
func (s *PostgresStore) DeleteBridge(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bridges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bridge %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListBridges(ctx context.Context) ([]domain.Bridge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, region, lat, lng, status, structure_type, length, image, last_update
		FROM bridges
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list bridges: %w", err)
	}
	defer rows.Close()

	var bridges []domain.Bridge
	for rows.Next() {
		var b domain.Bridge
		var status string
		err := rows.Scan(
			&b.ID, &b.Name, &b.Location.Region, &b.Location.Lat, &b.Location.Lng,
			&status, &b.Meta.Type, &b.Meta.Length, &b.Meta.Image, &b.LastUpdate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bridge: %w", err)
		}
		b.Status = domain.Status(status)
		bridges = append(bridges, b)
	}
	return bridges, rows.Err()
}

// ─── Sensors ────────────────────────────────────────────────

func (s *PostgresStore) UpsertSensor(ctx context.Context, sn *domain.Sensor) error {
	query := `
		INSERT INTO sensors
			(id, bridge_id, alias, x, y, status, odr, accel_range, filter)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			bridge_id   = EXCLUDED.bridge_id,
			alias       = EXCLUDED.alias,
			x           = EXCLUDED.x,
			y           = EXCLUDED.y,
			status      = EXCLUDED.status,
			odr         = EXCLUDED.odr,
			accel_range = EXCLUDED.accel_range,
			filter      = EXCLUDED.filter
	`
	_, err := s.pool.Exec(ctx, query,
		sn.ID, sn.BridgeID, sn.Alias, sn.X, sn.Y, string(sn.Status),
		sn.Config.ODR, sn.Config.Range, sn.Config.Filter,
	)
	if err != nil {
		return fmt.Errorf("upsert sensor %s: %w", sn.ID, err)
	}
	return nil
}

func (s *PostgresStore) DeleteSensor(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sensors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sensor %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListSensors(ctx context.Context) ([]domain.Sensor, error) {
	return s.querySensors(ctx, `
		SELECT id, bridge_id, alias, x, y, status, odr, accel_range, filter
		FROM sensors
		ORDER BY bridge_id, id
	`)
}

func (s *PostgresStore) SensorsForBridge(ctx context.Context, bridgeID string) ([]domain.Sensor, error) {
	return s.querySensors(ctx, `
		SELECT id, bridge_id, alias, x, y, status, odr, accel_range, filter
		FROM sensors
		WHERE bridge_id = $1
		ORDER BY id
	`, bridgeID)
}

func (s *PostgresStore) querySensors(ctx context.Context, query string, args ...any) ([]domain.Sensor, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sensors: %w", err)
	}
	defer rows.Close()

	var sensors []domain.Sensor
	for rows.Next() {
		var sn domain.Sensor
		var status string
		err := rows.Scan(
			&sn.ID, &sn.BridgeID, &sn.Alias, &sn.X, &sn.Y, &status,
			&sn.Config.ODR, &sn.Config.Range, &sn.Config.Filter,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sensor: %w", err)
		}
		sn.Status = domain.Status(status)
		sensors = append(sensors, sn)
	}
	return sensors, rows.Err()
}

// ─── Measurements ───────────────────────────────────────────

var measurementColumns = []string{
	"ts",
	"received_at",
	"sensor_id",
	"bridge_id",
	"accel_rms_x",
	"accel_rms_y",
	"accel_rms_z",
	"sensor_temp",
	"board_temp",
	"battery",
	"rssi",
}

func (s *PostgresStore) BatchInsertMeasurements(ctx context.Context, msgs []*domain.Measurement) error {
	if len(msgs) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(msgs))
	for i, m := range msgs {
		rows[i] = []interface{}{
			m.Timestamp,
			m.ReceivedAt,
			m.SensorID,
			m.BridgeID,
			m.AccelRMSX,
			m.AccelRMSY,
			m.AccelRMSZ,
			m.SensorTemp,
			m.BoardTemp,
			m.Battery,
			m.RSSI,
		}
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"measurements"},
		measurementColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for batch of %d: %w", len(msgs), err)
	}
	return nil
}

// LatestMeasurements returns the newest row per sensor, keyed by sensor id.
func (s *PostgresStore) LatestMeasurements(ctx context.Context) (map[string]*domain.Measurement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (sensor_id)
			ts, received_at, sensor_id, bridge_id,
			accel_rms_x, accel_rms_y, accel_rms_z,
			sensor_temp, board_temp, battery, rssi
		FROM measurements
		ORDER BY sensor_id, ts DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("latest measurements: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]*domain.Measurement)
	for rows.Next() {
		var m domain.Measurement
		err := rows.Scan(
			&m.Timestamp, &m.ReceivedAt, &m.SensorID, &m.BridgeID,
			&m.AccelRMSX, &m.AccelRMSY, &m.AccelRMSZ,
			&m.SensorTemp, &m.BoardTemp, &m.Battery, &m.RSSI,
		)
		if err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		latest[m.SensorID] = &m
	}
	return latest, rows.Err()
}

// RecentTrend shapes the newest limit rows of one sensor into chart points,
// oldest first. An empty slice means the caller should synthesize instead.
func (s *PostgresStore) RecentTrend(ctx context.Context, sensorID string, limit int) ([]domain.TrendPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ts, accel_rms_z
		FROM measurements
		WHERE sensor_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`, sensorID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent trend for %s: %w", sensorID, err)
	}
	defer rows.Close()

	var points []domain.TrendPoint
	for rows.Next() {
		var p domain.TrendPoint
		var ts time.Time
		if err := rows.Scan(&ts, &p.V); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		p.T = ts.Format("15:04")
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse: query is newest-first, charts want oldest-first.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// ─── KPIs ───────────────────────────────────────────────────

func (s *PostgresStore) UpsertKPI(ctx context.Context, k *domain.KPI) error {
	query := `
		INSERT INTO kpis
			(id, bridge_id, key, kind, label, unit, score, val, status, trend, text, confidence, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (bridge_id, key) DO UPDATE SET
			kind       = EXCLUDED.kind,
			label      = EXCLUDED.label,
			unit       = EXCLUDED.unit,
			score      = EXCLUDED.score,
			val        = EXCLUDED.val,
			status     = EXCLUDED.status,
			trend      = EXCLUDED.trend,
			text       = EXCLUDED.text,
			confidence = EXCLUDED.confidence,
			updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query,
		k.ID, k.BridgeID, k.Key, k.Kind, k.Label, k.Unit,
		k.Score, k.Val, string(k.Status), k.Trend, k.Text, k.Confidence,
	)
	if err != nil {
		return fmt.Errorf("upsert kpi %s/%s: %w", k.BridgeID, k.Key, err)
	}
	return nil
}

// ListKPIs returns every KPI row grouped by bridge id.
func (s *PostgresStore) ListKPIs(ctx context.Context) (map[string][]*domain.KPI, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, bridge_id, key, kind, label, unit, score, val, status, trend, text, confidence, updated_at
		FROM kpis
		ORDER BY bridge_id, key
	`)
	if err != nil {
		return nil, fmt.Errorf("list kpis: %w", err)
	}
	defer rows.Close()

	byBridge := make(map[string][]*domain.KPI)
	for rows.Next() {
		var k domain.KPI
		var status string
		err := rows.Scan(
			&k.ID, &k.BridgeID, &k.Key, &k.Kind, &k.Label, &k.Unit,
			&k.Score, &k.Val, &status, &k.Trend, &k.Text, &k.Confidence,
			&k.LastModelUpdate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan kpi: %w", err)
		}
		k.Status = domain.Status(status)
		byBridge[k.BridgeID] = append(byBridge[k.BridgeID], &k)
	}
	return byBridge, rows.Err()
}

// ─── Events ─────────────────────────────────────────────────

func (s *PostgresStore) InsertEvent(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events
			(id, bridge_id, sensor_id, event_type, severity, msg, triggered_value, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query,
		e.ID, e.BridgeID, e.SensorID, string(e.Type), string(e.Severity),
		e.Message, e.TriggeredValue,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, bridgeID string, limit int) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, bridge_id, sensor_id, event_type, severity, msg, triggered_value,
		       created_at, acknowledged_at, acknowledged_by
		FROM events
		WHERE bridge_id = $1
		ORDER BY (acknowledged_at IS NULL) DESC, created_at DESC
		LIMIT $2
	`, bridgeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", bridgeID, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ActiveAlarms returns unacknowledged events grouped by sensor id, shaped
// for the dashboard alarm list.
func (s *PostgresStore) ActiveAlarms(ctx context.Context) (map[string][]domain.Alarm, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sensor_id, event_type, severity, msg
		FROM events
		WHERE acknowledged_at IS NULL AND sensor_id <> ''
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("active alarms: %w", err)
	}
	defer rows.Close()

	alarms := make(map[string][]domain.Alarm)
	for rows.Next() {
		var sensorID, eventType, severity, msg string
		if err := rows.Scan(&sensorID, &eventType, &severity, &msg); err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}
		alarms[sensorID] = append(alarms[sensorID], domain.Alarm{
			Type:     domain.AlarmType(eventType),
			Severity: domain.Severity(severity),
			Message:  msg,
		})
	}
	return alarms, rows.Err()
}

func (s *PostgresStore) AckEvent(ctx context.Context, id, by string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE events
		SET acknowledged_at = NOW(), acknowledged_by = $2
		WHERE id = $1 AND acknowledged_at IS NULL
	`, id, by)
	if err != nil {
		return fmt.Errorf("ack event %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEvents(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var eventType, severity string
		var ackBy *string
		err := rows.Scan(
			&e.ID, &e.BridgeID, &e.SensorID, &eventType, &severity,
			&e.Message, &e.TriggeredValue, &e.CreatedAt,
			&e.AcknowledgedAt, &ackBy,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = domain.AlarmType(eventType)
		e.Severity = domain.Severity(severity)
		if ackBy != nil {
			e.AcknowledgedBy = *ackBy
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
