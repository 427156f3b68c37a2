package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hookupza/apiserver/config"
)

// Message represents a broker-agnostic payload delivered to subscribers.
// Key is the routing key (RabbitMQ) or ordering attribute (Pub/Sub).
type Message struct {
	ID         string
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, topic string, msg Message) (string, error)
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// MQ wraps a backend with JSON helpers.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Open connects the backend selected in cfg. It returns nil, nil when
// messaging is disabled.
func Open(ctx context.Context, cfg config.MessagingConfig) (*MQ, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		backend, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	case "pubsub":
		backend, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	default:
		return nil, fmt.Errorf("unknown messaging backend %q", cfg.Backend)
	}
}

// PublishJSON encodes v and publishes it on topic with the given routing key.
func (m *MQ) PublishJSON(ctx context.Context, topic, key string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	return m.backend.Publish(ctx, topic, Message{
		Key:        key,
		Data:       data,
		Attributes: map[string]string{"content_type": "application/json", "key": key},
	})
}

// Subscribe consumes messages from the named topic.
func (m *MQ) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return m.backend.Subscribe(ctx, topic, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
