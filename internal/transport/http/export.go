package http

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"bridge-monitor/server/internal/metrics"
	"bridge-monitor/server/internal/simulate"
)

// flushEvery bounds how many rows sit in the csv writer before they are
// pushed to the client.
const flushEvery = 1000

// ExportCSV handles GET /export/csv?id=&start=&end=&type=. Rows are
// generated one at a time and flushed in chunks, so a full one-hour export
// (720k rows at 200 Hz) never materializes in memory.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id := q.Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id parameter is required")
		return
	}

	kind := simulate.ExportKind(q.Get("type"))
	if kind == "" {
		kind = simulate.ExportSensor
	}
	if kind != simulate.ExportSensor && kind != simulate.ExportKPI {
		writeError(w, http.StatusBadRequest, "type must be sensor or kpi")
		return
	}

	start, end, err := simulate.ParseExportRange(q.Get("start"), q.Get("end"), h.exportMaxSeconds)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format")
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	stream := simulate.NewStream(kind, id, start, end, h.exportHz, rng)

	filename := fmt.Sprintf("export_%s_%s.csv", id, start.Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	flusher, _ := w.(http.Flusher)
	cw := csv.NewWriter(w)

	if err := cw.Write(stream.Header()); err != nil {
		return
	}

	ctx := r.Context()
	written := 0
	for {
		row, ok := stream.Next()
		if !ok {
			break
		}
		if err := cw.Write(row); err != nil {
			// Client went away mid-download.
			return
		}

		written++
		if written%flushEvery == 0 {
			cw.Flush()
			if flusher != nil {
				flusher.Flush()
			}
			select {
			case <-ctx.Done():
				metrics.ExportRows.Add(float64(written))
				return
			default:
			}
		}
	}

	cw.Flush()
	metrics.ExportRows.Add(float64(written))
}
