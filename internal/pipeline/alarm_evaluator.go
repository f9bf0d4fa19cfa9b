package pipeline

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"bridge-monitor/server/internal/domain"
	"bridge-monitor/server/internal/metrics"
)

// EventStore persists triggered alarms. *store.PostgresStore implements it.
type EventStore interface {
	InsertEvent(ctx context.Context, e *domain.Event) error
}

// AlarmCache is the Redis surface the evaluator needs for dedup and live
// publication. *store.RedisStore implements it.
type AlarmCache interface {
	CheckAlarmDedup(ctx context.Context, sensorID string, alarmType domain.AlarmType) (bool, error)
	SetAlarmDedup(ctx context.Context, sensorID string, alarmType domain.AlarmType) error
	PublishAlarm(ctx context.Context, bridgeID string, payload []byte) error
}

// AlarmEvaluator applies the alarm rules to every sample, persists new
// occurrences as events and publishes them for live dashboards. Redis dedup
// keeps a flapping sensor from flooding the events table.
type AlarmEvaluator struct {
	ch    <-chan *domain.Measurement
	db    EventStore
	redis AlarmCache
	rules []domain.AlarmRule
}

func NewAlarmEvaluator(
	ch <-chan *domain.Measurement,
	db EventStore,
	redis AlarmCache,
) *AlarmEvaluator {
	return &AlarmEvaluator{
		ch:    ch,
		db:    db,
		redis: redis,
		rules: domain.DefaultAlarmRules,
	}
}

func (e *AlarmEvaluator) Run(ctx context.Context) {
	for {
		select {
		case m, ok := <-e.ch:
			if !ok {
				return
			}
			e.evaluate(context.Background(), m)

		case <-ctx.Done():
			return
		}
	}
}

func (e *AlarmEvaluator) evaluate(ctx context.Context, m *domain.Measurement) {
	for _, rule := range e.rules {
		if !rule.Evaluator(m) {
			continue
		}

		isDuplicate, err := e.redis.CheckAlarmDedup(ctx, m.SensorID, rule.Type)
		if err != nil {
			log.Printf("Alarm dedup check failed for %s/%s: %v", m.SensorID, rule.Type, err)
			continue
		}
		if isDuplicate {
			continue
		}

		event := &domain.Event{
			ID:             uuid.NewString(),
			BridgeID:       m.BridgeID,
			SensorID:       m.SensorID,
			Type:           rule.Type,
			Severity:       rule.Severity,
			Message:        rule.Message,
			TriggeredValue: e.triggerValue(m, rule.Type),
		}
		if err := e.db.InsertEvent(ctx, event); err != nil {
			log.Printf("Event insert failed for %s: %v", m.SensorID, err)
			continue
		}

		if err := e.redis.SetAlarmDedup(ctx, m.SensorID, rule.Type); err != nil {
			log.Printf("Alarm dedup set failed for %s: %v", m.SensorID, err)
		}

		metrics.AlarmsTriggered.WithLabelValues(string(rule.Type), string(rule.Severity)).Inc()

		payload, _ := json.Marshal(map[string]interface{}{
			"event_id":     event.ID,
			"sensor_id":    m.SensorID,
			"bridge_id":    m.BridgeID,
			"type":         string(rule.Type),
			"severity":     string(rule.Severity),
			"msg":          rule.Message,
			"value":        event.TriggeredValue,
			"triggered_at": time.Now().Unix(),
		})
		if err := e.redis.PublishAlarm(ctx, m.BridgeID, payload); err != nil {
			log.Printf("Alarm publish failed for %s: %v", m.BridgeID, err)
		}
	}
}

func (e *AlarmEvaluator) triggerValue(m *domain.Measurement, t domain.AlarmType) float64 {
	switch t {
	case domain.AlarmBatteryLow:
		return m.Battery
	case domain.AlarmShockDetected:
		return m.AccelRMSZ
	case domain.AlarmWeakSignal:
		return m.RSSI
	default:
		return 0
	}
}
