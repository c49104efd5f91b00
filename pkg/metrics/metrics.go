// Package metrics provides Prometheus collectors for the telemetry engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingestion holds the counters the ingestion coordinator reports into.
type Ingestion struct {
	MessagesReceived  *prometheus.CounterVec // by message class
	MessagesDuplicate prometheus.Counter
	DecodeErrors      prometheus.Counter
	MissingCrop       prometheus.Counter
	KeyErrors         prometheus.Counter
	Violations        *prometheus.CounterVec // by kind
	JournalEntries    prometheus.Counter
	Notifications     prometheus.Counter
	BucketsSealed     prometheus.Counter
	PersistErrors     prometheus.Counter
	IngestDuration    prometheus.Histogram
}

// NewIngestion creates and registers the ingestion collectors on reg.
func NewIngestion(reg prometheus.Registerer) *Ingestion {
	m := &Ingestion{
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "messages_received_total",
			Help:      "Inbound transport messages by message class.",
		}, []string{"class"}),
		MessagesDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "messages_duplicate_total",
			Help:      "Messages dropped as QoS redeliveries.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "decode_errors_total",
			Help:      "Messages dropped because the payload failed to decode.",
		}),
		MissingCrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "missing_crop_total",
			Help:      "Messages dropped because the pod has no active crop.",
		}),
		KeyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "key_errors_total",
			Help:      "Sensor keys that failed inside an otherwise processed message.",
		}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "violations_total",
			Help:      "Threshold violations classified, by kind.",
		}, []string{"kind"}),
		JournalEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "journal_entries_total",
			Help:      "Automated journal entries created.",
		}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "notifications_total",
			Help:      "Violation notifications dispatched.",
		}),
		BucketsSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "buckets_sealed_total",
			Help:      "Measurement buckets that reached capacity.",
		}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "persist_errors_total",
			Help:      "Store calls that failed or timed out; the sample is lost.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telemetry",
			Name:      "ingest_duration_seconds",
			Help:      "Wall time spent processing one inbound message.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.MessagesReceived, m.MessagesDuplicate, m.DecodeErrors, m.MissingCrop,
		m.KeyErrors, m.Violations, m.JournalEntries, m.Notifications,
		m.BucketsSealed, m.PersistErrors, m.IngestDuration,
	)
	return m
}

// NewRegistry builds a registry preloaded with the standard process and Go
// runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler exposes reg over HTTP.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
