package monitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hydragrow/pod-telemetry/internal/model"
	"github.com/hydragrow/pod-telemetry/internal/model/messages"
	"github.com/hydragrow/pod-telemetry/pkg/dedup"
	"github.com/hydragrow/pod-telemetry/pkg/metrics"
)

// CropStore is the crop persistence surface the coordinator needs.
type CropStore interface {
	FindActiveByPod(ctx context.Context, podName string) (*model.Crop, error)
	Save(ctx context.Context, crop *model.Crop) error
}

// JournalStore records automated entries for detected violations.
type JournalStore interface {
	CreateAutomated(ctx context.Context, title string, start, end time.Time, cropID string) error
}

// Notifier dispatches a push notification for a classified violation.
type Notifier interface {
	NotifyViolation(ctx context.Context, podName string, kind model.ViolationKind, sensorKey string) error
}

// job is one inbound transport message queued for a worker.
type job struct {
	podName string
	class   messages.Class
	payload []byte
}

// CoordinatorConfig wires the coordinator's collaborators.
type CoordinatorConfig struct {
	Crops    CropStore
	Journal  JournalStore
	Agg      *Aggregator
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  *metrics.Ingestion
	Clock    clockwork.Clock

	// Workers bounds the processing pool; QueueSize bounds the buffer in
	// front of it. Zero values get defaults.
	Workers   int
	QueueSize int

	// StoreTimeout caps every persistence call so a stalled store cannot
	// block the consumer. Zero gets the default.
	StoreTimeout time.Duration
}

const (
	defaultWorkers      = 8
	defaultQueueSize    = 256
	defaultStoreTimeout = 5 * time.Second

	dedupTTL = 10 * time.Minute
	dedupCap = 20000
)

// Coordinator is the engine's entry point: every inbound message is one
// unit of work dispatched to a bounded worker pool, which runs the
// translate → evaluate → aggregate pipeline and fires side effects.
// No failure inside the pipeline is fatal; a bad message or a lost sample
// is logged and dropped rather than blocking the stream.
type Coordinator struct {
	crops    CropStore
	journal  JournalStore
	agg      *Aggregator
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Ingestion
	clock    clockwork.Clock
	filter   *dedup.Filter

	jobs         chan job
	workers      int
	storeTimeout time.Duration
	wg           sync.WaitGroup
}

func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Crops == nil {
		return nil, errors.New("crop store cannot be nil")
	}
	if cfg.Journal == nil {
		return nil, errors.New("journal store cannot be nil")
	}
	if cfg.Agg == nil {
		return nil, errors.New("aggregator cannot be nil")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Metrics == nil {
		return nil, errors.New("metrics cannot be nil")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}

	return &Coordinator{
		crops:        cfg.Crops,
		journal:      cfg.Journal,
		agg:          cfg.Agg,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		clock:        cfg.Clock,
		filter:       dedup.NewWithClock(dedupTTL, dedupCap, cfg.Clock),
		jobs:         make(chan job, cfg.QueueSize),
		workers:      cfg.Workers,
		storeTimeout: cfg.StoreTimeout,
	}, nil
}

// Start launches the worker pool. Workers exit when ctx is cancelled;
// in-flight messages may be dropped at shutdown.
func (c *Coordinator) Start(ctx context.Context) {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-c.jobs:
					c.ingest(ctx, j)
				}
			}
		}()
	}
}

// Wait blocks until every worker has exited.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// HandleMessage is the transport callback: it parses the topic and enqueues
// the message. When the queue is full the message is dropped — blocking the
// consumer loop is worse than losing one sample on an at-least-once stream.
func (c *Coordinator) HandleMessage(topic string, payload []byte) {
	podName, class, ok := messages.ParseDataTopic(topic)
	if !ok {
		return
	}
	select {
	case c.jobs <- job{podName: podName, class: class, payload: payload}:
	default:
		c.logger.Warn("ingest queue full, dropping message", "topic", topic)
	}
}

// ingest runs the full pipeline for one message.
func (c *Coordinator) ingest(ctx context.Context, j job) {
	started := c.clock.Now()
	defer func() {
		c.metrics.IngestDuration.Observe(c.clock.Now().Sub(started).Seconds())
	}()
	c.metrics.MessagesReceived.WithLabelValues(string(j.class)).Inc()

	if !c.filter.Admit(dedupID(j)) {
		c.metrics.MessagesDuplicate.Inc()
		return
	}

	var fields map[string]any
	if err := json.Unmarshal(j.payload, &fields); err != nil {
		c.metrics.DecodeErrors.Inc()
		c.logger.Warn("malformed payload, dropping message",
			"pod", j.podName, "class", j.class, "error", err)
		return
	}

	crop, err := c.findCrop(ctx, j.podName)
	if err != nil {
		c.metrics.PersistErrors.Inc()
		c.logger.Error("crop lookup failed, message lost", "pod", j.podName, "error", err)
		return
	}
	if crop == nil {
		// Harvested or unprovisioned pod; nothing to mutate.
		c.metrics.MissingCrop.Inc()
		c.logger.Debug("no active crop for pod, dropping message", "pod", j.podName)
		return
	}

	readings, errs := TranslateReadings(j.class, fields)
	if len(readings) == 0 {
		c.logKeyErrors(j, errs)
		return
	}

	now := c.clock.Now().UTC()
	for _, r := range readings {
		if err := c.ingestKey(ctx, crop, j.podName, r, now); err != nil {
			errs = append(errs, err)
		}
	}

	// One save per message, not per key, to bound write amplification.
	if err := c.saveCrop(ctx, crop); err != nil {
		c.metrics.PersistErrors.Inc()
		c.logger.Error("crop state save failed, message lost", "pod", j.podName, "error", err)
	}

	c.logKeyErrors(j, errs)
}

// ingestKey evaluates, records and aggregates one translated reading. An
// error here is isolated to this key; siblings in the same message proceed.
func (c *Coordinator) ingestKey(ctx context.Context, crop *model.Crop, podName string, r Reading, now time.Time) error {
	out := Evaluate(crop, r.Key, r.Value)
	crop.SetLatest(r.Key, model.LatestReading{
		Timestamp: now,
		Value:     r.Value,
		Trend:     out.Trend,
		Normal:    out.Normal,
	})

	sctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	bucket, err := c.agg.Append(sctx, r.Key, crop.ID, r.Value)
	cancel()
	if err != nil {
		c.metrics.PersistErrors.Inc()
		return fmt.Errorf("append %s: %w", r.Key, err)
	}
	if bucket.MeasurementCount == model.BucketCapacity {
		c.metrics.BucketsSealed.Inc()
	}

	if out.Violation == model.ViolationNone {
		return nil
	}
	c.metrics.Violations.WithLabelValues(string(out.Violation)).Inc()

	title := journalTitle(r.Key, out.Violation)
	jctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	err = c.journal.CreateAutomated(jctx, title, now, now, crop.ID)
	cancel()
	if err != nil {
		c.metrics.PersistErrors.Inc()
		c.logger.Error("journal entry failed", "crop", crop.ID, "title", title, "error", err)
	} else {
		c.metrics.JournalEntries.Inc()
	}

	if err := c.notifier.NotifyViolation(ctx, podName, out.Violation, r.Key); err != nil {
		c.logger.Warn("notification dispatch failed",
			"pod", podName, "sensor", r.Key, "kind", out.Violation, "error", err)
	} else {
		c.metrics.Notifications.Inc()
	}
	return nil
}

func (c *Coordinator) findCrop(ctx context.Context, podName string) (*model.Crop, error) {
	sctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()
	return c.crops.FindActiveByPod(sctx, podName)
}

func (c *Coordinator) saveCrop(ctx context.Context, crop *model.Crop) error {
	sctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()
	return c.crops.Save(sctx, crop)
}

func (c *Coordinator) logKeyErrors(j job, errs []error) {
	if len(errs) == 0 {
		return
	}
	c.metrics.KeyErrors.Add(float64(len(errs)))
	c.logger.Warn("some sensor keys failed",
		"pod", j.podName, "class", j.class, "error", errors.Join(errs...))
}

// dedupID scopes the duplicate identity to one pod's stream: a QoS 1
// redelivery repeats the same topic and bytes, but two pods publishing
// identical payloads (a common steady state for probe data) are distinct
// messages and must both be processed.
func dedupID(j job) string {
	sum := sha256.Sum256(j.payload)
	return j.podName + "/" + string(j.class) + "|" + hex.EncodeToString(sum[:])
}

// journalTitle encodes the violated sensor and the violation kind, e.g.
// "CONDUCTIVITY: Above maximum threshold".
func journalTitle(sensorKey string, kind model.ViolationKind) string {
	var reason string
	switch kind {
	case model.ViolationMin:
		reason = "Below minimum threshold"
	case model.ViolationMax:
		reason = "Above maximum threshold"
	default:
		reason = "Critical level"
	}
	return strings.ToUpper(sensorKey) + ": " + reason
}
