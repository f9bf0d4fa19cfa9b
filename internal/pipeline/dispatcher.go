package pipeline

import (
	"bridge-monitor/server/internal/domain"
	"bridge-monitor/server/internal/metrics"
)

// Dispatcher fans each measurement out to the DB writer, the Redis state
// writer and the alarm evaluator. Full channels drop rather than block the
// sampler; drops are counted.
type Dispatcher struct {
	DBChan    chan *domain.Measurement
	StateChan chan *domain.Measurement
	AlarmChan chan *domain.Measurement
}

func NewDispatcher(dbSize, stateSize, alarmSize int) *Dispatcher {
	return &Dispatcher{
		DBChan:    make(chan *domain.Measurement, dbSize),
		StateChan: make(chan *domain.Measurement, stateSize),
		AlarmChan: make(chan *domain.Measurement, alarmSize),
	}
}

func (d *Dispatcher) Dispatch(m *domain.Measurement) {
	select {
	case d.DBChan <- m:
	default:
		metrics.ChannelDrops.WithLabelValues("db").Inc()
	}

	select {
	case d.StateChan <- m:
	default:
		metrics.ChannelDrops.WithLabelValues("state").Inc()
	}

	select {
	case d.AlarmChan <- m:
	default:
		metrics.ChannelDrops.WithLabelValues("alarm").Inc()
	}
}
