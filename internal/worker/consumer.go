package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliverySource is the consuming side of the RabbitMQ client
type DeliverySource interface {
	Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error)
}

// Consumer feeds queued job messages into a pool and settles each delivery
// once its run is over
type Consumer struct {
	source      DeliverySource
	pool        *Pool
	run         Handler
	consumerTag string
	prefetch    int
	logger      *slog.Logger
}

func NewConsumer(source DeliverySource, pool *Pool, run Handler, consumerTag string, prefetch int, logger *slog.Logger) *Consumer {
	return &Consumer{
		source:      source,
		pool:        pool,
		run:         run,
		consumerTag: consumerTag,
		prefetch:    prefetch,
		logger:      logger,
	}
}

// Handle runs a message and acks or nacks it; it is the pool's handler
func (c *Consumer) Handle(ctx context.Context, msg *domain.JobMessage) error {
	err := c.run(ctx, msg)

	if !msg.FromQueue() {
		return err
	}

	if err != nil {
		requeue := shouldRequeueJob(err)
		if nackErr := msg.Acknowledger.Nack(msg.DeliveryTag, false, requeue); nackErr != nil {
			c.logger.Error("Failed to NACK message",
				slog.String("job_id", msg.JobID),
				slog.Any("error", nackErr),
			)
		} else {
			c.logger.Info("Message NACKed",
				slog.String("job_id", msg.JobID),
				slog.Bool("requeue", requeue),
			)
		}
		return err
	}

	if ackErr := msg.Acknowledger.Ack(msg.DeliveryTag, false); ackErr != nil {
		c.logger.Error("Failed to ACK message",
			slog.String("job_id", msg.JobID),
			slog.Any("error", ackErr),
		)
		return fmt.Errorf("failed to ack job message: %w", ackErr)
	}

	return nil
}

// Run consumes until ctx is done or the delivery channel closes
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.source.Consume(c.consumerTag, c.prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Message dispatcher started",
		slog.String("consumer_tag", c.consumerTag),
		slog.Int("prefetch", c.prefetch),
	)

	c.dispatch(ctx, deliveries)
	return nil
}

// dispatch validates deliveries and hands them to the pool
func (c *Consumer) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Message dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			msg, err := parseJobMessage(delivery.Body)
			if err != nil {
				c.logger.Error("Rejecting job message",
					slog.Any("error", err),
					slog.String("body", string(delivery.Body)),
				)
				// malformed messages are not requeued
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					c.logger.Error("Failed to NACK malformed message",
						slog.Any("error", nackErr),
					)
				}
				continue
			}

			msg.DeliveryTag = delivery.DeliveryTag
			msg.Acknowledger = delivery.Acknowledger

			if err := c.pool.Submit(ctx, msg); err != nil {
				c.logger.Info("Message dispatcher stopped while dispatching job",
					slog.String("job_id", msg.JobID),
				)
				// put it back for another consumer
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					c.logger.Error("Failed to NACK message on shutdown",
						slog.Any("error", nackErr),
					)
				}
				return
			}

			c.logger.Debug("Job dispatched to worker pool",
				slog.String("job_id", msg.JobID),
				slog.Uint64("delivery_tag", delivery.DeliveryTag),
			)
		}
	}
}

func parseJobMessage(body []byte) (*domain.JobMessage, error) {
	var msg domain.JobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	if _, err := uuid.Parse(msg.JobID); err != nil {
		return nil, fmt.Errorf("%w: job_id %q is not a UUID", domain.ErrInvalidPayload, msg.JobID)
	}

	return &msg, nil
}

// shouldRequeueJob requeues transient failures only
func shouldRequeueJob(err error) bool {
	if errors.Is(err, domain.ErrInvalidPayload) {
		return false
	}

	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
