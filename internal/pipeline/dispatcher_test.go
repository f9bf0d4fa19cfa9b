package pipeline

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"bridge-monitor/server/internal/domain"
	"bridge-monitor/server/internal/metrics"
)

func TestDispatcherFansOut(t *testing.T) {
	d := NewDispatcher(4, 4, 4)
	m := &domain.Measurement{SensorID: "node-a1", BridgeID: "br-001"}

	d.Dispatch(m)

	if len(d.DBChan) != 1 || len(d.StateChan) != 1 || len(d.AlarmChan) != 1 {
		t.Fatalf("expected one message per channel, got db=%d state=%d alarm=%d",
			len(d.DBChan), len(d.StateChan), len(d.AlarmChan))
	}

	got := <-d.DBChan
	if got.SensorID != "node-a1" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(1, 2, 2)
	m := &domain.Measurement{SensorID: "node-a1"}

	before := testutil.ToFloat64(metrics.ChannelDrops.WithLabelValues("db"))

	d.Dispatch(m)
	d.Dispatch(m) // DB channel full, must drop without blocking

	after := testutil.ToFloat64(metrics.ChannelDrops.WithLabelValues("db"))
	if after-before != 1 {
		t.Fatalf("expected 1 db drop, got %v", after-before)
	}
	if len(d.DBChan) != 1 {
		t.Fatalf("expected db channel to hold 1 message, got %d", len(d.DBChan))
	}
	if len(d.StateChan) != 2 {
		t.Fatalf("state channel should have taken both messages, got %d", len(d.StateChan))
	}
}
