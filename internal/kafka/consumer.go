package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/domain"
)

// SubmissionHandler processes record submissions
type SubmissionHandler interface {
	SubmitBatch(ctx context.Context, submissions []domain.RecordSubmission) int
}

// Consumer consumes record submissions from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	handler       SubmissionHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, handler SubmissionHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		handler:       handler,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.SubmissionsTopic,
		"group_id", c.config.GroupID,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &consumerGroupHandler{
				consumer: c,
				ready:    c.ready,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.SubmissionsTopic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			// Check if context was cancelled
			if c.ctx.Err() != nil {
				return
			}

			c.ready = make(chan bool)
		}
	}()

	// Wait until consumer is ready
	<-c.ready
	c.logger.Info("Kafka consumer ready")

	// Handle errors in separate goroutine
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim batches submissions from a topic partition
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	cfg := h.consumer.config
	b := newBatcher(h.consumer.handler, h.consumer.logger, cfg.BatchSize)
	batchTimer := time.NewTimer(cfg.BatchTimeout)
	defer batchTimer.Stop()

	for {
		select {
		case <-session.Context().Done():
			// Process remaining batch before exit
			b.flush()
			return nil

		case <-batchTimer.C:
			b.flush()
			batchTimer.Reset(cfg.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				b.flush()
				return nil
			}

			submission, err := DecodeSubmission(message.Value)
			if err != nil {
				h.consumer.logger.Warn("dropping submission message",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				session.MarkMessage(message, "")
				continue
			}

			session.MarkMessage(message, "")
			if b.add(submission) {
				batchTimer.Reset(cfg.BatchTimeout)
			}
		}
	}
}

// batcher collects submissions and hands them over once the batch is full
type batcher struct {
	handler SubmissionHandler
	logger  *slog.Logger
	size    int
	pending []domain.RecordSubmission
}

func newBatcher(handler SubmissionHandler, logger *slog.Logger, size int) *batcher {
	if size <= 0 {
		size = 1
	}
	return &batcher{
		handler: handler,
		logger:  logger,
		size:    size,
		pending: make([]domain.RecordSubmission, 0, size),
	}
}

// add queues a submission and reports whether it triggered a flush
func (b *batcher) add(s domain.RecordSubmission) bool {
	b.pending = append(b.pending, s)
	if len(b.pending) < b.size {
		return false
	}
	b.flush()
	return true
}

func (b *batcher) flush() {
	if len(b.pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	accepted := b.handler.SubmitBatch(ctx, b.pending)
	b.logger.Debug("processed submission batch", "batch_size", len(b.pending), "accepted", accepted)

	b.pending = b.pending[:0]
}

// DecodeSubmission parses and validates a submission message. Messages
// without a user are rejected because there is no session to take it from.
func DecodeSubmission(data []byte) (domain.RecordSubmission, error) {
	var s domain.RecordSubmission
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decoding submission: %w", err)
	}
	if s.UserID == "" {
		return s, domain.Invalid("user_id", "is required")
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
