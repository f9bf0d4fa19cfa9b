package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"bridge-monitor/server/internal/config"
	"bridge-monitor/server/internal/domain"
)

// stateTTL bounds how long a sensor snapshot survives without fresh
// samples; a missing key makes the dashboard fall back to Postgres.
const stateTTL = 30 * time.Second

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// PipelineStateUpdate refreshes the hot per-sensor snapshot and publishes
// the sample on the bridge's telemetry channel for live dashboards.
func (r *RedisStore) PipelineStateUpdate(ctx context.Context, m *domain.Measurement) error {
	stateData := map[string]interface{}{
		"sensor_id":   m.SensorID,
		"bridge_id":   m.BridgeID,
		"accel_x":     m.AccelRMSX,
		"accel_y":     m.AccelRMSY,
		"accel_z":     m.AccelRMSZ,
		"sensor_temp": m.SensorTemp,
		"board_temp":  m.BoardTemp,
		"battery":     m.Battery,
		"rssi":        m.RSSI,
		"timestamp":   m.Timestamp.Unix(),
		"received_at": m.ReceivedAt.Unix(),
	}

	pubPayload, err := json.Marshal(stateData)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	stateKey := fmt.Sprintf("sensor:%s:state", m.SensorID)
	pubChannel := fmt.Sprintf("bridge:%s:telemetry", m.BridgeID)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, stateKey, stateData)
	pipe.Expire(ctx, stateKey, stateTTL)
	pipe.Publish(ctx, pubChannel, pubPayload)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// SensorState reads back the snapshot written by PipelineStateUpdate. A nil
// measurement with nil error means the key expired or never existed.
func (r *RedisStore) SensorState(ctx context.Context, sensorID string) (*domain.Measurement, error) {
	key := fmt.Sprintf("sensor:%s:state", sensorID)
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get sensor state failed: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	m := &domain.Measurement{
		SensorID:   sensorID,
		BridgeID:   fields["bridge_id"],
		AccelRMSX:  parseFloat(fields["accel_x"]),
		AccelRMSY:  parseFloat(fields["accel_y"]),
		AccelRMSZ:  parseFloat(fields["accel_z"]),
		SensorTemp: parseFloat(fields["sensor_temp"]),
		BoardTemp:  parseFloat(fields["board_temp"]),
		Battery:    parseFloat(fields["battery"]),
		RSSI:       parseFloat(fields["rssi"]),
	}
	if sec, err := strconv.ParseInt(fields["timestamp"], 10, 64); err == nil {
		m.Timestamp = time.Unix(sec, 0)
	}
	if sec, err := strconv.ParseInt(fields["received_at"], 10, 64); err == nil {
		m.ReceivedAt = time.Unix(sec, 0)
	}
	return m, nil
}

// GetAPIKey resolves an admin API key to its operator name, empty when the
// key is unknown.
func (r *RedisStore) GetAPIKey(ctx context.Context, apiKey string) (string, error) {
	key := fmt.Sprintf("admin:auth:%s", apiKey)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get api key failed: %w", err)
	}
	return val, nil
}

func (r *RedisStore) CheckAlarmDedup(ctx context.Context, sensorID string, alarmType domain.AlarmType) (bool, error) {
	key := fmt.Sprintf("alarm:%s:%s", sensorID, string(alarmType))
	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return count > 0, nil
}

func (r *RedisStore) SetAlarmDedup(ctx context.Context, sensorID string, alarmType domain.AlarmType) error {
	key := fmt.Sprintf("alarm:%s:%s", sensorID, string(alarmType))
	return r.client.Set(ctx, key, "1", 5*time.Minute).Err()
}

func (r *RedisStore) PublishAlarm(ctx context.Context, bridgeID string, payload []byte) error {
	channel := fmt.Sprintf("bridge:%s:alarms", bridgeID)
	return r.client.Publish(ctx, channel, payload).Err()
}

// SubscribeLive subscribes to every bridge's telemetry and alarm channel,
// feeding the websocket hub.
func (r *RedisStore) SubscribeLive(ctx context.Context) *redis.PubSub {
	return r.client.PSubscribe(ctx, "bridge:*:telemetry", "bridge:*:alarms")
}

// ─── Dashboard cache ────────────────────────────────────────

const dashboardCacheKey = "dashboard:cache"

func (r *RedisStore) CacheDashboard(ctx context.Context, payload []byte, ttl time.Duration) error {
	return r.client.Set(ctx, dashboardCacheKey, payload, ttl).Err()
}

// CachedDashboard returns the cached dashboard document, nil on miss.
func (r *RedisStore) CachedDashboard(ctx context.Context) ([]byte, error) {
	val, err := r.client.Get(ctx, dashboardCacheKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get dashboard cache failed: %w", err)
	}
	return val, nil
}

func (r *RedisStore) InvalidateDashboard(ctx context.Context) error {
	return r.client.Del(ctx, dashboardCacheKey).Err()
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
