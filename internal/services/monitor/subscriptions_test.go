package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydragrow/pod-telemetry/internal/model"
	"github.com/hydragrow/pod-telemetry/pkg/logger"
	"github.com/hydragrow/pod-telemetry/pkg/mqtt"
)

type publishRecord struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient records publishes and subscriptions in memory.
type fakeClient struct {
	mu            sync.Mutex
	published     []publishRecord
	subscriptions map[string]mqtt.MessageHandler
	subscribeErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{subscriptions: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeClient) Publish(topic string, _ byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishRecord{topic: topic, retained: retained, payload: payload})
	return nil
}

func (f *fakeClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscriptions[topic] = handler
	return nil
}

func (f *fakeClient) Unsubscribe(topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range topics {
		delete(f.subscriptions, t)
	}
	return nil
}

func (f *fakeClient) Connected() bool { return true }

func (f *fakeClient) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.subscriptions))
	for t := range f.subscriptions {
		out = append(out, t)
	}
	return out
}

func (f *fakeClient) publishes() []publishRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishRecord(nil), f.published...)
}

type fakeLister struct {
	crops []model.Crop
	err   error
}

func (l *fakeLister) ListActive(context.Context) ([]model.Crop, error) {
	return l.crops, l.err
}

func testLogger() *slog.Logger {
	return logger.New(io.Discard, logger.ParseLevel("error"))
}

func TestSubscribeAttachesBothTopics(t *testing.T) {
	client := newFakeClient()
	m := NewSubscriptionManager(client, func(string, []byte) {}, testLogger())

	require.NoError(t, m.Subscribe("pod-1"))

	assert.ElementsMatch(t, []string{"pod-1/sensor_data", "pod-1/probe_data"}, client.topics())
	assert.True(t, m.Subscribed("pod-1"))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	client := newFakeClient()
	m := NewSubscriptionManager(client, func(string, []byte) {}, testLogger())

	require.NoError(t, m.Subscribe("pod-1"))
	require.NoError(t, m.Subscribe("pod-1"))

	assert.Len(t, client.topics(), 2)
}

func TestUnsubscribeDetachesBothTopics(t *testing.T) {
	client := newFakeClient()
	m := NewSubscriptionManager(client, func(string, []byte) {}, testLogger())

	require.NoError(t, m.Subscribe("pod-1"))
	require.NoError(t, m.Unsubscribe("pod-1"))

	assert.Empty(t, client.topics())
	assert.False(t, m.Subscribed("pod-1"))
}

func TestUnsubscribeUnknownPodIsNoop(t *testing.T) {
	client := newFakeClient()
	m := NewSubscriptionManager(client, func(string, []byte) {}, testLogger())

	assert.NoError(t, m.Unsubscribe("pod-never-seen"))
}

func TestResubscribeAllRestoresActiveCrops(t *testing.T) {
	client := newFakeClient()
	m := NewSubscriptionManager(client, func(string, []byte) {}, testLogger())

	lister := &fakeLister{crops: []model.Crop{
		{PodName: "pod-1", Active: true},
		{PodName: "pod-2", Active: true},
	}}
	require.NoError(t, m.ResubscribeAll(context.Background(), lister))

	assert.True(t, m.Subscribed("pod-1"))
	assert.True(t, m.Subscribed("pod-2"))
	assert.Len(t, client.topics(), 4)
}

func TestResubscribeAllPropagatesListError(t *testing.T) {
	client := newFakeClient()
	m := NewSubscriptionManager(client, func(string, []byte) {}, testLogger())

	lister := &fakeLister{err: errors.New("db down")}
	assert.Error(t, m.ResubscribeAll(context.Background(), lister))
}
