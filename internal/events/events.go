// Package events publishes pipeline changes to live dashboards (websocket) and, when
// configured, to a Pub/Sub topic for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"textile-erp/internal/logger"
	"textile-erp/internal/websocket"

	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const (
	TypeChallanConverted = "challan.converted"
	TypeStatusChanged    = "status.changed"
	TypeRecordChanged    = "record.changed"
)

// Event is the envelope sent to every sink
type Event struct {
	Type       string      `json:"type"`
	Entity     string      `json:"entity"`
	EntityID   string      `json:"entity_id"`
	EntityName string      `json:"entity_name,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Publisher delivers events. Publishing happens after commit and never fails the request,
// so implementations log instead of returning errors.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Fanout sends every event to each publisher in turn
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	for _, p := range f {
		p.Publish(ctx, e)
	}
}

// Nop drops every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// --- websocket ---

type HubPublisher struct {
	hub *websocket.Hub
	log logrus.FieldLogger
}

func NewHubPublisher(hub *websocket.Hub, log logrus.FieldLogger) *HubPublisher {
	return &HubPublisher{hub: hub, log: log}
}

func (p *HubPublisher) Publish(_ context.Context, e Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		logger.LogError(p.log, "events", "HubPublisher.Publish", "marshal event", e.Type, err)
		return
	}
	p.hub.Broadcast(e.Type, msg)
}

// --- Pub/Sub ---

type PubSubPublisher struct {
	client  *pubsub.Client
	topic   *pubsub.Topic
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewPubSubPublisher connects to projectID and publishes to topicName. credentialsJSON is
// optional; Application Default Credentials are used when it is empty.
func NewPubSubPublisher(ctx context.Context, projectID, topicName, credentialsJSON string, log logrus.FieldLogger) (*PubSubPublisher, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init pubsub client (project_id=%s): %w", projectID, err)
	}

	topic := client.Topic(topicName)
	ok, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to check topic %q: %w", topicName, err)
	}
	if !ok {
		if topic, err = client.CreateTopic(ctx, topicName); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("create topic %q: %w", topicName, err)
		}
	}

	return &PubSubPublisher{client: client, topic: topic, timeout: 10 * time.Second, log: log}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		logger.LogError(p.log, "events", "PubSubPublisher.Publish", "marshal event", e.Type, err)
		return
	}

	// the request context may already be done once the response is written
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	result := p.topic.Publish(pubCtx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": e.Type, "entity": e.Entity},
	})
	go func() {
		defer cancel()
		if _, err := result.Get(pubCtx); err != nil {
			logger.LogError(p.log, "events", "PubSubPublisher.Publish", "publish event", e, err)
		}
	}()
}

// Close flushes pending messages
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
