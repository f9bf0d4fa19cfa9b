package domain

import "testing"

func TestAlarmRules(t *testing.T) {
	tests := []struct {
		name     string
		m        Measurement
		expected []AlarmType
	}{
		{
			name:     "nominal sample fires nothing",
			m:        Measurement{Battery: 88, AccelRMSZ: 0.045, RSSI: -65},
			expected: nil,
		},
		{
			name:     "low battery",
			m:        Measurement{Battery: 15, AccelRMSZ: 0.06, RSSI: -80},
			expected: []AlarmType{AlarmBatteryLow},
		},
		{
			name:     "shock on z axis",
			m:        Measurement{Battery: 98, AccelRMSZ: 0.95, RSSI: -55},
			expected: []AlarmType{AlarmShockDetected},
		},
		{
			name:     "weak signal and low battery together",
			m:        Measurement{Battery: 10, AccelRMSZ: 0.05, RSSI: -98},
			expected: []AlarmType{AlarmBatteryLow, AlarmWeakSignal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fired []AlarmType
			for _, rule := range DefaultAlarmRules {
				if rule.Evaluator(&tt.m) {
					fired = append(fired, rule.Type)
				}
			}
			if len(fired) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, fired)
			}
			for i := range fired {
				if fired[i] != tt.expected[i] {
					t.Fatalf("expected %v, got %v", tt.expected, fired)
				}
			}
		})
	}
}

func TestWorstStatus(t *testing.T) {
	if got := WorstStatus(); got != StatusOK {
		t.Fatalf("empty set should be ok, got %s", got)
	}
	if got := WorstStatus(StatusOK, StatusWarn, StatusOK); got != StatusWarn {
		t.Fatalf("expected warn, got %s", got)
	}
	if got := WorstStatus(StatusWarn, StatusAlert, StatusOK); got != StatusAlert {
		t.Fatalf("expected alert, got %s", got)
	}
}

func TestSeverityStatus(t *testing.T) {
	if got := SeverityStatus(SeverityAlert); got != StatusAlert {
		t.Fatalf("expected alert, got %s", got)
	}
	if got := SeverityStatus(SeverityWarn); got != StatusWarn {
		t.Fatalf("expected warn, got %s", got)
	}
	if got := SeverityStatus(SeverityInfo); got != StatusOK {
		t.Fatalf("expected ok, got %s", got)
	}
}
