// Package analytics rolls bucket sums up into per-day averages and mirrors
// them to a time-series backend for dashboard charts.
package analytics

import (
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxWriter mirrors rollup rows to InfluxDB through the async write API
// and tracks the last write error for health reporting.
type InfluxWriter struct {
	api    api.WriteAPI
	logger *slog.Logger

	mu      sync.RWMutex
	lastErr time.Time
}

// NewInfluxWriter wraps the write API and starts the async error listener.
func NewInfluxWriter(w api.WriteAPI, logger *slog.Logger) *InfluxWriter {
	iw := &InfluxWriter{
		api:    w,
		logger: logger,
		// Start "long ago" so a fresh writer reports healthy.
		lastErr: time.Now().Add(-24 * time.Hour),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				iw.mu.Lock()
				iw.lastErr = time.Now()
				iw.mu.Unlock()
				iw.logger.Error("influx write error", "error", err)
			}
		}
	}()
	return iw
}

// WriteAverage queues one daily average point. Writes are async; failures
// surface through the error listener, not here.
func (w *InfluxWriter) WriteAverage(sensorKey, cropID string, day time.Time, average float64) {
	point := influxdb2.NewPoint(
		"daily_average",
		map[string]string{
			"sensor": sensorKey,
			"crop":   cropID,
		},
		map[string]interface{}{
			"average": average,
		},
		day,
	)
	w.api.WritePoint(point)
}

// Flush drains queued points, used at shutdown.
func (w *InfluxWriter) Flush() {
	w.api.Flush()
}

// LastErrorAge reports how long ago the most recent write error occurred.
func (w *InfluxWriter) LastErrorAge() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return time.Since(w.lastErr)
}
