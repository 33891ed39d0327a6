package mq

import (
	"context"
	"fmt"

	"github.com/salonbook/apiserver/config"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Returning an error requeues it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by RabbitMQ and Pub/Sub.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ binds a backend to the channel appointment events travel on.
type MQ struct {
	backend Backend
	channel string
}

func New(backend Backend, channel string) *MQ {
	return &MQ{backend: backend, channel: channel}
}

// NewFromConfig connects to the configured backend. It returns nil when
// events are disabled.
func NewFromConfig(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err = DialRabbit(cfg.RabbitMQ)
	case "pubsub":
		backend, err = NewGooglePubSub(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Backend, err)
	}
	return New(backend, cfg.Channel), nil
}

// Channel returns the queue or topic name.
func (m *MQ) Channel() string {
	return m.channel
}

func (m *MQ) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, m.channel, data, attrs)
}

// Subscribe blocks consuming the channel until ctx is done or the backend fails.
func (m *MQ) Subscribe(ctx context.Context, handler Handler) error {
	return m.backend.Subscribe(ctx, m.channel, handler)
}

func (m *MQ) Close() error {
	return m.backend.Close()
}
