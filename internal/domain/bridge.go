package domain

import "time"

// Status values are shared by bridges, sensors and KPIs. The dashboard
// frontend expects them lowercase.
type Status string

const (
	StatusOK    Status = "ok"
	StatusWarn  Status = "warn"
	StatusAlert Status = "alert"
)

// rank orders statuses by severity for aggregation.
func (s Status) rank() int {
	switch s {
	case StatusAlert:
		return 2
	case StatusWarn:
		return 1
	default:
		return 0
	}
}

// WorstStatus returns the most severe status of the given set, or ok when
// the set is empty.
func WorstStatus(statuses ...Status) Status {
	worst := StatusOK
	for _, s := range statuses {
		if s.rank() > worst.rank() {
			worst = s
		}
	}
	return worst
}

type Location struct {
	Region string  `json:"region"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

type BridgeMeta struct {
	Type   string `json:"tipo"`
	Length string `json:"largo"`
	Image  string `json:"imagen"`
}

// Bridge is a monitored structure. The Spanish JSON field names are what
// the dashboard frontend expects; do not rename them.
type Bridge struct {
	ID         string     `json:"id"`
	Name       string     `json:"nombre"`
	Location   Location   `json:"ubicacion"`
	Status     Status     `json:"status"`
	LastUpdate time.Time  `json:"lastUpdate"`
	Meta       BridgeMeta `json:"meta"`
}

type SensorConfig struct {
	ODR    int    `json:"odr"`
	Range  int    `json:"range"`
	Filter string `json:"filter,omitempty"`
}

type SensorHealth struct {
	Battery        float64   `json:"battery"`
	SignalStrength float64   `json:"signalStrength"`
	BoardTemp      float64   `json:"boardTemp"`
	LastSeen       time.Time `json:"lastSeen"`
}

type AccelRMS struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type SensorTelemetry struct {
	AccelRMS   AccelRMS `json:"accel_rms"`
	SensorTemp float64  `json:"sensorTemp"`
}

// Sensor is one node attached to a bridge. X/Y are percentage positions on
// the bridge schematic.
type Sensor struct {
	ID       string       `json:"id"`
	BridgeID string       `json:"bridge_id"`
	Alias    string       `json:"alias"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Status   Status       `json:"status"`
	Config   SensorConfig `json:"config"`
}

// KPI is one derived indicator row for a bridge. Exactly one of Score, Val
// or Text carries the value depending on Kind.
type KPI struct {
	ID         string   `json:"id"`
	BridgeID   string   `json:"-"`
	Key        string   `json:"-"` // structuralHealth, accelX, ..., aiAnalysis
	Kind       string   `json:"type,omitempty"`
	Label      string   `json:"label"`
	Unit       string   `json:"unit,omitempty"`
	Score      *int     `json:"score,omitempty"`
	Val        *float64 `json:"val,omitempty"`
	Status     Status   `json:"status,omitempty"`
	Trend      string   `json:"trend,omitempty"`
	Text       string   `json:"text,omitempty"`
	Confidence *int     `json:"confidence,omitempty"`

	LastModelUpdate *time.Time `json:"lastModelUpdate,omitempty"`
}

// DashboardNode is a sensor joined with its latest snapshot for the root
// dashboard document.
type DashboardNode struct {
	ID        string          `json:"id"`
	Alias     string          `json:"alias"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Status    Status          `json:"status"`
	Config    SensorConfig    `json:"config"`
	Health    SensorHealth    `json:"health"`
	Telemetry SensorTelemetry `json:"telemetry"`
	Alarms    []Alarm         `json:"alarms"`
}

// DashboardBridge is one entry in the GET / response.
type DashboardBridge struct {
	ID         string          `json:"id"`
	Name       string          `json:"nombre"`
	Location   Location        `json:"ubicacion"`
	Status     Status          `json:"status"`
	LastUpdate time.Time       `json:"lastUpdate"`
	Meta       BridgeMeta      `json:"meta"`
	KPIs       map[string]*KPI `json:"kpis"`
	Nodes      []DashboardNode `json:"nodes"`
}

// TrendPoint is one sample of the small trend chart: t is "HH:00".
type TrendPoint struct {
	T string  `json:"t"`
	V float64 `json:"v"`
}

// Event is a persisted alarm occurrence, acknowledgeable by an operator.
type Event struct {
	ID             string     `json:"id"`
	BridgeID       string     `json:"bridge_id"`
	SensorID       string     `json:"sensor_id,omitempty"`
	Type           AlarmType  `json:"type"`
	Severity       Severity   `json:"severity"`
	Message        string     `json:"msg"`
	TriggeredValue float64    `json:"triggered_value"`
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
}
