package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/segmentio/kafka-go"
)

// ErrKafkaDisabled is returned by consumers created while Kafka is off.
var ErrKafkaDisabled = errors.New("kafka disabled")

// Consumer groups of the center's workers.
const (
	GroupSettlementWorker = "center-settlement-worker"
)

// CenterTopics lists every topic the outbox relay writes to.
func CenterTopics() []string {
	return []string{
		string(domain.EventPlayerProvisioned),
		string(domain.EventReconciliationRecorded),
		string(domain.EventReconciliationResolved),
		string(domain.EventDeferredWinSettled),
	}
}

// KafkaSettings is the broker part of Config.
type KafkaSettings struct {
	Brokers     []string
	Enabled     bool
	Partitions  int
	Replication int
}

// Kafka returns the parsed broker settings. Kafka counts as disabled without brokers.
func (c *Config) Kafka() KafkaSettings {
	brokers := parseBrokers(c.KafkaBrokers)
	return KafkaSettings{
		Brokers:     brokers,
		Enabled:     c.KafkaEnabled && len(brokers) > 0,
		Partitions:  c.KafkaPartitions,
		Replication: c.KafkaReplication,
	}
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// EnsureTopics creates missing center topics through the cluster controller.
// Topics that already exist are left untouched.
func EnsureTopics(ctx context.Context, s KafkaSettings, logger *slog.Logger) error {
	if !s.Enabled {
		return nil
	}
	conn, err := kafka.DialContext(ctx, "tcp", s.Brokers[0])
	if err != nil {
		return fmt.Errorf("dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find kafka controller: %w", err)
	}
	ctrl, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial kafka controller: %w", err)
	}
	defer ctrl.Close()

	if err := ctrl.CreateTopics(topicConfigs(s)...); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topics: %w", err)
	}
	logger.Info("kafka topics ensured", "topics", len(CenterTopics()), "partitions", s.Partitions)
	return nil
}

func topicConfigs(s KafkaSettings) []kafka.TopicConfig {
	topics := CenterTopics()
	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, t := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             t,
			NumPartitions:     s.Partitions,
			ReplicationFactor: s.Replication,
		})
	}
	return configs
}

// KafkaProducer wraps a kafka-go writer for publishing messages.
type KafkaProducer struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	enabled bool
}

// NewKafkaProducer creates a Kafka producer. Writes are no-ops while disabled.
func NewKafkaProducer(s KafkaSettings, logger *slog.Logger) *KafkaProducer {
	logger = logger.With("component", "kafka-producer")
	if !s.Enabled {
		logger.Info("kafka producer disabled")
		return &KafkaProducer{enabled: false, logger: logger}
	}
	logger.Info("kafka producer initialized", "brokers", strings.Join(s.Brokers, ","))
	return &KafkaProducer{writer: newWriter(s.Brokers, logger), logger: logger, enabled: true}
}

// newWriter hashes on the message key so all events of one wallet land on one
// partition, in outbox order.
func newWriter(brokers []string, logger *slog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		ErrorLogger:  kafkaErrorLogger(logger),
	}
}

// Publish sends a message to the given topic. No-op if disabled.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if !p.enabled {
		return nil
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// Close shuts down the Kafka writer.
func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// KafkaConsumer wraps a kafka-go reader for one center topic and group.
type KafkaConsumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	enabled bool
}

// NewKafkaConsumer creates a group consumer for topic.
func NewKafkaConsumer(s KafkaSettings, topic, groupID string, logger *slog.Logger) *KafkaConsumer {
	logger = logger.With("component", "kafka-consumer", "topic", topic, "group", groupID)
	if !s.Enabled {
		logger.Info("kafka consumer disabled")
		return &KafkaConsumer{enabled: false, logger: logger}
	}
	return &KafkaConsumer{reader: kafka.NewReader(readerConfig(s.Brokers, topic, groupID, logger)), logger: logger, enabled: true}
}

// readerConfig starts new groups at the earliest offset so no event recorded
// before the first deploy of a worker is skipped.
func readerConfig(brokers []string, topic, groupID string, logger *slog.Logger) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
		ErrorLogger:    kafkaErrorLogger(logger),
	}
}

func kafkaErrorLogger(logger *slog.Logger) kafka.LoggerFunc {
	return func(msg string, args ...interface{}) {
		logger.Warn(fmt.Sprintf(msg, args...))
	}
}

// Enabled reports whether the consumer is connected to brokers.
func (c *KafkaConsumer) Enabled() bool { return c.enabled }

// ReadMessage reads the next message from the consumer. Blocks until a message is available.
func (c *KafkaConsumer) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if !c.enabled {
		return kafka.Message{}, ErrKafkaDisabled
	}
	return c.reader.ReadMessage(ctx)
}

// Close shuts down the Kafka reader.
func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
