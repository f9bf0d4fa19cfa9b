package simulate

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// ExportKind selects the column set of a CSV export.
type ExportKind string

const (
	ExportSensor ExportKind = "sensor"
	ExportKPI    ExportKind = "kpi"
)

const exportTimeLayout = "2006-01-02T15:04:05.000000"

// ParseExportRange normalises the start/end query parameters. Bare dates
// get a day-start/day-end time appended, and the range is clamped to
// maxSeconds measured from start.
func ParseExportRange(start, end string, maxSeconds int) (time.Time, time.Time, error) {
	if !strings.Contains(start, "T") {
		start += "T00:00:00"
	}
	if !strings.Contains(end, "T") {
		end += "T23:59:59"
	}

	startDT, err := time.Parse("2006-01-02T15:04:05", start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	endDT, err := time.Parse("2006-01-02T15:04:05", end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}

	maxRange := time.Duration(maxSeconds) * time.Second
	if endDT.Sub(startDT) > maxRange {
		endDT = startDT.Add(maxRange)
	}
	return startDT, endDT, nil
}

// Stream lazily generates CSV export rows, one per Next call, so a
// multi-hundred-thousand-row export never lives in memory at once.
type Stream struct {
	kind ExportKind
	rng  *rand.Rand

	cur   time.Time
	step  time.Duration
	hz    int
	total int
	i     int

	noise   float64
	battery float64
	rssi    float64
}

// NewStream builds a row generator for the resource id over [start, end) at
// the given sample rate. Damaged resources (BioBío ids) get a wider noise
// band, matching their profile.
func NewStream(kind ExportKind, resourceID string, start, end time.Time, hz int, rng *rand.Rand) *Stream {
	noise := 0.02
	if strings.Contains(resourceID, "b2") || strings.Contains(resourceID, "node-b1") {
		noise = 0.08
	}

	totalSeconds := int(end.Sub(start).Seconds())
	return &Stream{
		kind:    kind,
		rng:     rng,
		cur:     start,
		step:    time.Second / time.Duration(hz),
		hz:      hz,
		total:   totalSeconds * hz,
		noise:   noise,
		battery: 98.5,
		rssi:    -65.0,
	}
}

// Header returns the CSV header row for the stream's kind.
func (s *Stream) Header() []string {
	if s.kind == ExportKPI {
		return []string{"Timestamp", "Value", "Status", "Confidence(%)"}
	}
	return []string{"Timestamp", "Accel_X(g)", "Accel_Y(g)", "Accel_Z(g)", "Battery(%)", "RSSI(dBm)"}
}

// Rows reports the total number of data rows the stream will produce.
func (s *Stream) Rows() int {
	return s.total
}

// Next returns the next data row, or ok=false when the range is exhausted.
func (s *Stream) Next() ([]string, bool) {
	if s.i >= s.total {
		return nil, false
	}

	ts := s.cur.Format(exportTimeLayout)
	var row []string

	if s.kind == ExportKPI {
		val := 0.5 + uniform(s.rng, -0.1, 0.1)
		row = []string{ts, strconv.FormatFloat(val, 'f', 3, 64), "ok", "98"}
	} else {
		x := uniform(s.rng, -s.noise, s.noise)
		y := uniform(s.rng, -s.noise, s.noise)
		z := 1.0 + uniform(s.rng, -s.noise, s.noise)

		// Battery and RSSI arrive once per second, not per sample.
		batt, rssi := "", ""
		if s.i%s.hz == 0 {
			batt = strconv.FormatFloat(s.battery, 'f', 1, 64)
			rssi = strconv.FormatFloat(s.rssi, 'f', 0, 64)
			if s.rng.Float64() > 0.99 {
				s.battery -= 0.1
			}
		}

		row = []string{
			ts,
			strconv.FormatFloat(x, 'f', 4, 64),
			strconv.FormatFloat(y, 'f', 4, 64),
			strconv.FormatFloat(z, 'f', 4, 64),
			batt,
			rssi,
		}
	}

	s.i++
	s.cur = s.cur.Add(s.step)
	return row, true
}
