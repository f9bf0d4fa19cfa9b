package pipeline

import (
	"context"
	"log"
	"time"

	"bridge-monitor/server/internal/domain"
	"bridge-monitor/server/internal/store"
)

// StateWriter keeps the Redis per-sensor snapshots fresh so the dashboard
// reads hot state instead of querying Postgres for every node.
type StateWriter struct {
	ch    <-chan *domain.Measurement
	redis *store.RedisStore
}

func NewStateWriter(
	ch <-chan *domain.Measurement,
	redis *store.RedisStore,
) *StateWriter {
	return &StateWriter{ch: ch, redis: redis}
}

func (w *StateWriter) Run(ctx context.Context) {
	batch := make([]*domain.Measurement, 0, 100)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case m, ok := <-w.ch:
			if !ok {
				w.flushBatch(ctx, batch)
				return
			}
			batch = append(batch, m)
			if len(batch) >= 100 {
				w.flushBatch(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flushBatch(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			w.flushBatch(ctx, batch)
			return
		}
	}
}

func (w *StateWriter) flushBatch(ctx context.Context, batch []*domain.Measurement) {
	for _, m := range batch {
		if err := w.redis.PipelineStateUpdate(ctx, m); err != nil {
			log.Printf("Redis state update failed for %s: %v", m.SensorID, err)
		}
	}
}
