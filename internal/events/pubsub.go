package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/lien-Gu/bookrank/internal/model"
)

// PubSub publishes events to a Google Cloud Pub/Sub topic.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSub connects a Pub/Sub client and verifies the topic exists,
// failing fast on misconfiguration.
func NewPubSub(ctx context.Context, projectID, topicID string) (*PubSub, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !ok {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("pubsub topic %q does not exist", topicID)
	}
	return &PubSub{client: client, topic: topic}, nil
}

// Publish marshals the event to JSON and publishes it.
func (p *PubSub) Publish(ctx context.Context, event model.TaskEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"page_id": event.PageID,
			"status":  string(event.Status),
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event: %w", err)
	}
	return id, nil
}

// Close stops the topic's publish goroutines and the client.
func (p *PubSub) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
