package pipeline

import (
	"context"
	"log"
	"time"

	"bridge-monitor/server/internal/domain"
	"bridge-monitor/server/internal/metrics"
	"bridge-monitor/server/internal/store"
)

// DBWriter drains the measurement channel into Postgres in batches, flushed
// on size or on a timer so quiet periods still land promptly.
type DBWriter struct {
	ch        <-chan *domain.Measurement
	db        *store.PostgresStore
	batchSize int
	flushMS   int
}

func NewDBWriter(
	ch <-chan *domain.Measurement,
	db *store.PostgresStore,
	batchSize int,
	flushMS int,
) *DBWriter {
	return &DBWriter{
		ch:        ch,
		db:        db,
		batchSize: batchSize,
		flushMS:   flushMS,
	}
}

func (w *DBWriter) Run(ctx context.Context) {
	batch := make([]*domain.Measurement, 0, w.batchSize)
	ticker := time.NewTicker(time.Duration(w.flushMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case m, ok := <-w.ch:
			if !ok {
				if len(batch) > 0 {
					w.flush(ctx, batch)
				}
				return
			}
			batch = append(batch, m)
			if len(batch) >= w.batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			if len(batch) > 0 {
				w.flush(ctx, batch)
			}
			return
		}
	}
}

func (w *DBWriter) flush(ctx context.Context, batch []*domain.Measurement) {
	err := w.db.BatchInsertMeasurements(ctx, batch)
	if err != nil {
		log.Printf("DB write failed (batch=%d), retrying: %v", len(batch), err)
		time.Sleep(500 * time.Millisecond)
		err = w.db.BatchInsertMeasurements(ctx, batch)
		if err != nil {
			log.Printf("DB write permanently failed (batch=%d): %v", len(batch), err)
			metrics.DBWrites.WithLabelValues("error").Add(float64(len(batch)))
			return
		}
	}
	metrics.DBWrites.WithLabelValues("success").Add(float64(len(batch)))
}
