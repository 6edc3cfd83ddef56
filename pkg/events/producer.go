// Package events publishes settings change events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	TypeModuleCreated    = "module.created"
	TypeModulePatched    = "module.patched"
	TypeCommunityRenamed = "community.renamed"
	TypeCommunityDeleted = "community.deleted"
)

// Event is a settings change made through the dashboard
type Event struct {
	Type        string         `json:"type"`
	UserID      string         `json:"user_id"`
	CommunityID string         `json:"community_id"`
	ModuleID    string         `json:"module_id,omitempty"`
	Platform    string         `json:"platform,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	TraceID     string         `json:"trace_id,omitempty"`
}

// Publisher publishes settings change events
type Publisher interface {
	Publish(ctx context.Context, evt *Event) error
}

// Config holds Kafka configuration
type Config struct {
	Brokers []string
	Topic   string
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, topic string) Config {
	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}
	return Config{Brokers: brokerList, Topic: topic}
}

// MessageWriter is the part of kafka.Writer the producer uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer MessageWriter
	topic  string
	logger ectologger.Logger
}

// NewProducer creates a Kafka producer for the settings topic
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		// dev brokers may not have the topic yet
		AllowAutoTopicCreation: true,
	}
	return NewProducerWithWriter(writer, cfg.Topic, logger)
}

func NewProducerWithWriter(writer MessageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{writer: writer, topic: topic, logger: logger}
}

// Publish writes the event keyed by community so one community's events stay ordered
func (p *Producer) Publish(ctx context.Context, evt *Event) error {
	if evt == nil {
		return fmt.Errorf("event is nil")
	}

	ctx, span := tracing.StartSpan(ctx, "Kafka.Publish")
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("event.type", evt.Type),
		attribute.String("community_id", evt.CommunityID),
	)

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.TraceID = tracing.GetTraceID(ctx)

	data, err := json.Marshal(evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal event")
		metrics.EventsPublishedTotal.WithLabelValues(evt.Type, "error").Inc()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := []kafka.Header{
		{Key: "type", Value: []byte(evt.Type)},
		{Key: "community_id", Value: []byte(evt.CommunityID)},
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(evt.CommunityID),
		Value:   data,
		Headers: headers,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish event")
		metrics.EventsPublishedTotal.WithLabelValues(evt.Type, "error").Inc()
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish to Kafka topic %s", p.topic)
		return err
	}

	span.SetStatus(codes.Ok, "event published")
	metrics.EventsPublishedTotal.WithLabelValues(evt.Type, "success").Inc()
	p.logger.WithContext(ctx).Debugf("Published %s event for community %s", evt.Type, evt.CommunityID)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events; used when Kafka is disabled
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *Event) error { return nil }
