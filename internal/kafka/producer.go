package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/domain"
)

// EventPublisher writes moderation events to Kafka
type EventPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewEventPublisher connects a synchronous producer for the events topic
func NewEventPublisher(cfg *config.KafkaConfig, logger *slog.Logger) (*EventPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = cfg.RetryAttempts
	saramaConfig.Producer.Retry.Backoff = cfg.RetryDelay
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}
	return NewEventPublisherWithProducer(producer, cfg.EventsTopic, logger), nil
}

// NewEventPublisherWithProducer wraps an existing producer
func NewEventPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish sends one event, keyed by the demon or list it concerns
func (p *EventPublisher) Publish(_ context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(eventKey(event)),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("sending event: %w", err)
	}

	p.logger.Debug("event published",
		"type", event.Type,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close flushes and closes the producer
func (p *EventPublisher) Close() error {
	return p.producer.Close()
}

func eventKey(event domain.Event) string {
	if event.DemonID != "" {
		return event.DemonID
	}
	return string(event.ListType)
}
