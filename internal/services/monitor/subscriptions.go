package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hydragrow/pod-telemetry/internal/model"
	"github.com/hydragrow/pod-telemetry/internal/model/messages"
	"github.com/hydragrow/pod-telemetry/pkg/mqtt"
)

// ActiveCropLister enumerates active crops so subscriptions can be rebuilt
// after a restart.
type ActiveCropLister interface {
	ListActive(ctx context.Context) ([]model.Crop, error)
}

// dataQoS is the delivery level for pod data streams: at-least-once, with
// duplicates filtered downstream.
const dataQoS byte = 1

// SubscriptionManager tracks which pods the engine is listening to. Each pod
// carries two data topics that are always subscribed and unsubscribed as a
// unit. Both operations are idempotent so lifecycle transitions can retry
// without bookkeeping.
type SubscriptionManager struct {
	client  mqtt.Client
	handler mqtt.MessageHandler
	logger  *slog.Logger

	mu         sync.Mutex
	subscribed map[string]struct{}
}

func NewSubscriptionManager(client mqtt.Client, handler mqtt.MessageHandler, logger *slog.Logger) *SubscriptionManager {
	return &SubscriptionManager{
		client:     client,
		handler:    handler,
		logger:     logger,
		subscribed: make(map[string]struct{}),
	}
}

// Subscribe starts listening to podName's data topics. Subscribing a pod
// that is already subscribed is a no-op.
func (m *SubscriptionManager) Subscribe(podName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subscribed[podName]; ok {
		return nil
	}

	for _, class := range []messages.Class{messages.ClassSensorData, messages.ClassProbeData} {
		topic := messages.DataTopic(podName, class)
		if err := m.client.Subscribe(topic, dataQoS, m.handler); err != nil {
			return fmt.Errorf("subscribe pod %s: %w", podName, err)
		}
	}

	m.subscribed[podName] = struct{}{}
	m.logger.Info("subscribed to pod data topics", "pod", podName)
	return nil
}

// Unsubscribe stops listening to podName's data topics. Unsubscribing a pod
// that was never subscribed is a no-op.
func (m *SubscriptionManager) Unsubscribe(podName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subscribed[podName]; !ok {
		return nil
	}

	topics := []string{
		messages.DataTopic(podName, messages.ClassSensorData),
		messages.DataTopic(podName, messages.ClassProbeData),
	}
	if err := m.client.Unsubscribe(topics...); err != nil {
		return fmt.Errorf("unsubscribe pod %s: %w", podName, err)
	}

	delete(m.subscribed, podName)
	m.logger.Info("unsubscribed from pod data topics", "pod", podName)
	return nil
}

// Subscribed reports whether podName's topics are currently held.
func (m *SubscriptionManager) Subscribed(podName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subscribed[podName]
	return ok
}

// ResubscribeAll re-establishes subscriptions for every active crop. Called
// once at startup; a failing pod does not prevent the rest from attaching.
func (m *SubscriptionManager) ResubscribeAll(ctx context.Context, crops ActiveCropLister) error {
	active, err := crops.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}

	var errs []error
	for _, crop := range active {
		if err := m.Subscribe(crop.PodName); err != nil {
			m.logger.Error("resubscribe failed for pod", "pod", crop.PodName, "error", err)
			errs = append(errs, err)
		}
	}
	m.logger.Info("active crop subscriptions restored",
		"crops", len(active), "failed", len(errs))
	return errors.Join(errs...)
}
