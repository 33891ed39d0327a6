package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/salonbook/apiserver/config"
)

var errNoQueue = errors.New("rabbitmq: queue name is empty")

// Rabbit is a Backend on the AMQP default exchange: a channel name is a
// queue name, declared on first use.
type Rabbit struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	durable    bool
	autoDelete bool
}

func DialRabbit(cfg config.RabbitMQConfig) (*Rabbit, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq: RABBITMQ_URL is not set")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := openChannel(conn, cfg.PrefetchCount)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Rabbit{conn: conn, ch: ch, durable: cfg.QueueDurable, autoDelete: cfg.QueueAutoDelete}, nil
}

func openChannel(conn *amqp.Connection, prefetch int) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if prefetch <= 0 {
		return ch, nil
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}
	return ch, nil
}

func (r *Rabbit) Publish(ctx context.Context, queue string, data []byte, attrs map[string]string) (string, error) {
	if err := r.queue(queue); err != nil {
		return "", err
	}
	msg := r.publishing(data, attrs)
	if err := r.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return "", fmt.Errorf("rabbitmq publish to %s: %w", queue, err)
	}
	return msg.MessageId, nil
}

func (r *Rabbit) publishing(data []byte, attrs map[string]string) amqp.Publishing {
	mode := amqp.Transient
	if r.durable {
		mode = amqp.Persistent
	}
	headers := make(amqp.Table, len(attrs))
	for k, v := range attrs {
		headers[k] = v
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: mode,
		MessageId:    uuid.NewString(),
		Headers:      headers,
		Body:         data,
	}
}

// Subscribe consumes queue until ctx ends or the broker closes the
// delivery stream.
func (r *Rabbit) Subscribe(ctx context.Context, queue string, handler Handler) error {
	if err := r.queue(queue); err != nil {
		return err
	}
	tag := "salonbook-" + uuid.NewString()
	deliveries, err := r.ch.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume %s: %w", queue, err)
	}
	defer r.ch.Cancel(tag, false)

	return drain(ctx, deliveries, handler)
}

func drain(ctx context.Context, deliveries <-chan amqp.Delivery, handler Handler) error {
	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-deliveries:
		}
		if !ok {
			return errors.New("rabbitmq: delivery stream closed")
		}
		err := handler(ctx, Message{ID: d.MessageId, Data: d.Body, Attributes: tableAttrs(d.Headers)})
		settle(d, err)
	}
}

// settle acks handled deliveries. A failed first delivery goes back to the
// queue once; a failed redelivery is dropped.
func settle(d amqp.Delivery, err error) {
	if err == nil {
		_ = d.Ack(false)
		return
	}
	_ = d.Nack(false, !d.Redelivered)
}

func (r *Rabbit) Close() error {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func (r *Rabbit) queue(name string) error {
	if strings.TrimSpace(name) == "" {
		return errNoQueue
	}
	if _, err := r.ch.QueueDeclare(name, r.durable, r.autoDelete, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq declare %s: %w", name, err)
	}
	return nil
}

// tableAttrs flattens AMQP headers into string attributes.
func tableAttrs(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for k, v := range headers {
		switch v := v.(type) {
		case string:
			attrs[k] = v
		case []byte:
			attrs[k] = string(v)
		default:
			attrs[k] = fmt.Sprint(v)
		}
	}
	return attrs
}
