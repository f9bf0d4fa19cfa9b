package domain

import "time"

// Measurement is one timestamped sample from a sensor node. RMS values are
// in g, temperatures in Celsius, RSSI in dBm.
type Measurement struct {
	ReceivedAt time.Time

	Timestamp time.Time
	SensorID  string
	BridgeID  string

	AccelRMSX float64
	AccelRMSY float64
	AccelRMSZ float64

	SensorTemp float64
	BoardTemp  float64
	Battery    float64
	RSSI       float64
}

type AlarmType string

const (
	AlarmBatteryLow    AlarmType = "BATTERY_LOW"
	AlarmShockDetected AlarmType = "SHOCK_DETECTED"
	AlarmWeakSignal    AlarmType = "WEAK_SIGNAL"
	// Raised operationally (seed data, manual entry), no pipeline rule.
	AlarmWindVibration AlarmType = "WIND_VIBRATION"
)

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityAlert Severity = "alert"
)

// Alarm is the dashboard-facing shape of a triggered rule.
type Alarm struct {
	Type     AlarmType `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"msg"`
}

type AlarmRule struct {
	Type      AlarmType
	Severity  Severity
	Message   string
	Evaluator func(m *Measurement) bool
}

var DefaultAlarmRules = []AlarmRule{
	{
		Type:     AlarmBatteryLow,
		Severity: SeverityWarn,
		Message:  "Batería < 20%",
		Evaluator: func(m *Measurement) bool {
			return m.Battery < 20.0
		},
	},
	{
		Type:     AlarmShockDetected,
		Severity: SeverityAlert,
		Message:  "Impacto > 0.8g eje Z",
		Evaluator: func(m *Measurement) bool {
			return m.AccelRMSZ > 0.8
		},
	},
	{
		Type:     AlarmWeakSignal,
		Severity: SeverityWarn,
		Message:  "Señal RF < -95 dBm",
		Evaluator: func(m *Measurement) bool {
			return m.RSSI < -95.0
		},
	},
}

// SeverityStatus maps an alarm severity to the status it forces on the
// owning sensor.
func SeverityStatus(s Severity) Status {
	switch s {
	case SeverityAlert:
		return StatusAlert
	case SeverityWarn:
		return StatusWarn
	default:
		return StatusOK
	}
}
