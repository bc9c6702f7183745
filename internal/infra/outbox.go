package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/google/uuid"
)

const topicPrefix = "center."

// OutboxSource yields unpublished outbox rows and marks them published.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxDraft, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// Publisher delivers one message to a topic. *KafkaProducer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxMessage is the Kafka message value written for each outbox row.
type OutboxMessage struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Header returns a string header of the message, or "".
func (m OutboxMessage) Header(key string) string {
	var headers map[string]string
	if err := json.Unmarshal(m.Headers, &headers); err != nil {
		return ""
	}
	return headers[key]
}

// OutboxPoller polls the event_outbox table and publishes events to Kafka.
type OutboxPoller struct {
	source    OutboxSource
	producer  Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(source OutboxSource, producer Publisher, interval time.Duration, batchSize int, logger *slog.Logger) *OutboxPoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxPoller{
		source:    source,
		producer:  producer,
		logger:    logger.With("component", "outbox"),
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (p *OutboxPoller) Start(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("outbox poller stopped")
				return
			case <-ticker.C:
				if _, err := p.Poll(ctx); err != nil {
					p.logger.Error("outbox poll error", "error", err)
				}
			}
		}
	}()
}

// OutboxTopic is the Kafka topic of an event: center.<aggregate>.<event>.
// Event types that are already fully qualified are used as is.
func OutboxTopic(e domain.OutboxDraft) string {
	if strings.HasPrefix(string(e.EventType), topicPrefix) {
		return string(e.EventType)
	}
	return topicPrefix + string(e.AggregateType) + "." + string(e.EventType)
}

// Poll publishes one batch and returns how many events were marked published.
// Events that fail to publish stay unpublished and are retried on the next poll.
// Once an event fails, later events with the same partition key are held back
// so a key's events reach Kafka in outbox order.
func (p *OutboxPoller) Poll(ctx context.Context) (int, error) {
	events, err := p.source.FetchUnpublished(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := make([]int64, 0, len(events))
	blocked := make(map[string]struct{})
	for _, e := range events {
		if _, ok := blocked[e.PartitionKey]; ok {
			continue
		}
		msg, err := json.Marshal(OutboxMessage{
			EventID:       e.EventID,
			AggregateType: string(e.AggregateType),
			AggregateID:   e.AggregateID,
			EventType:     string(e.EventType),
			Headers:       e.Headers,
			Payload:       e.Payload,
			OccurredAt:    e.OccurredAt,
		})
		if err != nil {
			p.logger.Error("encode outbox event failed", "event_id", e.EventID, "error", err)
			ObserveOutbox(false)
			blocked[e.PartitionKey] = struct{}{}
			continue
		}

		if err := p.producer.Publish(ctx, OutboxTopic(e), []byte(e.PartitionKey), msg); err != nil {
			p.logger.Error("kafka publish failed", "event_id", e.EventID, "partition_key", e.PartitionKey, "error", err)
			ObserveOutbox(false)
			blocked[e.PartitionKey] = struct{}{}
			continue
		}
		ObserveOutbox(true)
		published = append(published, e.ID)
	}

	if err := p.source.MarkPublished(ctx, published); err != nil {
		return 0, err
	}

	p.logger.Debug("outbox poll complete", "published", len(published), "fetched", len(events))
	return len(published), nil
}
