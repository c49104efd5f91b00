// Package mqtt wraps the paho client behind a small interface the engine
// can fake in tests: connect with retry, publish (optionally retained),
// subscribe and unsubscribe.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// Config carries broker connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
}

// MessageHandler receives one inbound message for a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Client is the transport surface the engine depends on.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topics ...string) error
	Connected() bool
}

// pahoClient adapts a live paho connection to the Client interface.
type pahoClient struct {
	c paho.Client
}

const (
	connectMaxElapsed = 10 * time.Second
	connectMaxRetries = 5
	disconnectQuiesce = 250 // ms
)

// Connect dials the broker, retrying with exponential backoff. The returned
// client disconnects when ctx is cancelled.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (Client, error) {
	addr := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := paho.NewClientOptions()
	opts.AddBroker(addr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectMaxElapsed

	var client paho.Client
	err := backoff.Retry(func() error {
		client = paho.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			logger.Warn("broker connect failed, retrying", "addr", addr, "error", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, connectMaxRetries-1))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	logger.Info("connected to MQTT broker", "addr", addr, "client_id", cfg.ClientID)

	go func() {
		<-ctx.Done()
		client.Disconnect(disconnectQuiesce)
		logger.Info("MQTT connection closed")
	}()

	return &pahoClient{c: client}, nil
}

func (p *pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.c.Publish(topic, qos, retained, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

func (p *pahoClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := p.c.Subscribe(topic, qos, func(_ paho.Client, m paho.Message) {
		handler(m.Topic(), m.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

func (p *pahoClient) Unsubscribe(topics ...string) error {
	token := p.c.Unsubscribe(topics...)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("unsubscribe: %w", token.Error())
	}
	return nil
}

func (p *pahoClient) Connected() bool {
	return p.c.IsConnected()
}
