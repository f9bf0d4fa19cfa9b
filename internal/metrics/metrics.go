package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	SamplesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "samples_generated_total",
			Help: "Total number of synthetic measurements generated",
		},
	)

	DBWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_writes_total",
			Help: "Measurement rows written to Postgres by outcome",
		},
		[]string{"status"},
	)

	ChannelDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_channel_drops_total",
			Help: "Measurements dropped on a full pipeline channel",
		},
		[]string{"channel"},
	)

	AlarmsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarms_triggered_total",
			Help: "Alarm rule firings by type and severity",
		},
		[]string{"type", "severity"},
	)

	ExportRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "export_csv_rows_total",
			Help: "CSV rows streamed by the export endpoint",
		},
	)

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Currently connected websocket dashboards",
		},
	)
)
