package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/salonbook/apiserver/config"
	"google.golang.org/api/option"
)

const (
	defaultSubscriptionSuffix = "-sub"
	subscriptionAckDeadline   = 30 * time.Second
)

// GooglePubSub is a Backend where each channel is a topic with a single
// pull subscription named channel+suffix. Both are created when missing.
type GooglePubSub struct {
	client *pubsub.Client
	suffix string
}

func NewGooglePubSub(ctx context.Context, cfg config.PubSubConfig) (*GooglePubSub, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub: PUBSUB_PROJECT_ID is not set")
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = defaultSubscriptionSuffix
	}
	return &GooglePubSub{client: client, suffix: suffix}, nil
}

func (g *GooglePubSub) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	topic, err := g.topic(ctx, channel)
	if err != nil {
		return "", err
	}
	defer topic.Stop()

	id, err := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("pubsub publish to %s: %w", channel, err)
	}
	return id, nil
}

// Subscribe blocks in Receive. Handler errors nack the message so Pub/Sub
// redelivers it.
func (g *GooglePubSub) Subscribe(ctx context.Context, channel string, handler Handler) error {
	topic, err := g.topic(ctx, channel)
	if err != nil {
		return err
	}
	sub, err := g.subscription(ctx, channel+g.suffix, topic)
	if err != nil {
		return err
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		if err := handler(ctx, Message{ID: m.ID, Data: m.Data, Attributes: m.Attributes}); err != nil {
			m.Nack()
			return
		}
		m.Ack()
	})
}

func (g *GooglePubSub) Close() error {
	return g.client.Close()
}

func (g *GooglePubSub) topic(ctx context.Context, name string) (*pubsub.Topic, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("pubsub: topic name is empty")
	}
	t := g.client.Topic(name)
	ok, err := t.Exists(ctx)
	switch {
	case err != nil:
		return nil, fmt.Errorf("pubsub topic %s: %w", name, err)
	case ok:
		return t, nil
	}
	return g.client.CreateTopic(ctx, name)
}

func (g *GooglePubSub) subscription(ctx context.Context, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	s := g.client.Subscription(name)
	ok, err := s.Exists(ctx)
	switch {
	case err != nil:
		return nil, fmt.Errorf("pubsub subscription %s: %w", name, err)
	case ok:
		return s, nil
	}
	return g.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: subscriptionAckDeadline,
	})
}
