package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sony/gobreaker"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// SubscriptionStore is the persistence surface the deliverer needs: the
// endpoints to push to and the delivery log.
type SubscriptionStore interface {
	List(ctx context.Context) ([]model.PushSubscription, error)
	Log(ctx context.Context, message string) error
}

// VAPIDConfig carries the voluntary application server identity for web push.
type VAPIDConfig struct {
	Subscriber string
	PublicKey  string
	PrivateKey string
}

const (
	pushTTL = 60 // seconds the push service may hold an undelivered message

	breakerConsecutiveFails = 5
	breakerOpenTimeout      = 30 * time.Second
	breakerCountsInterval   = 60 * time.Second
)

// Deliverer fans a violation alert out to every stored subscription. Push
// endpoint calls go through a circuit breaker so a misbehaving push service
// cannot stall ingestion workers with slow failures.
type Deliverer struct {
	store   SubscriptionStore
	vapid   VAPIDConfig
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker
}

func NewDeliverer(store SubscriptionStore, vapid VAPIDConfig, logger *slog.Logger) *Deliverer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "web-push",
		Interval: breakerCountsInterval,
		Timeout:  breakerOpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerConsecutiveFails
		},
	})
	return &Deliverer{store: store, vapid: vapid, logger: logger, breaker: breaker}
}

// NotifyViolation pushes the alert for one violation to every subscription
// and appends it to the delivery log. A failing endpoint does not stop the
// fan-out; the first error is returned after all sends were attempted.
func (d *Deliverer) NotifyViolation(ctx context.Context, podName string, kind model.ViolationKind, sensorKey string) error {
	payload := BuildPayload(podName, kind, sensorKey)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	subs, err := d.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list push subscriptions: %w", err)
	}

	var firstErr error
	for i := range subs {
		if err := d.push(ctx, &subs[i], body); err != nil {
			d.logger.Warn("push delivery failed",
				"endpoint", subs[i].Endpoint, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := d.store.Log(ctx, payload.Title); err != nil {
		d.logger.Warn("notification log append failed", "error", err)
	}
	return firstErr
}

func (d *Deliverer) push(ctx context.Context, sub *model.PushSubscription, body []byte) error {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	_, err := d.breaker.Execute(func() (interface{}, error) {
		resp, err := webpush.SendNotificationWithContext(ctx, body, target, &webpush.Options{
			Subscriber:      d.vapid.Subscriber,
			VAPIDPublicKey:  d.vapid.PublicKey,
			VAPIDPrivateKey: d.vapid.PrivateKey,
			TTL:             pushTTL,
		})
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("push service returned %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
