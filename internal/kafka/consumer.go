package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader MessageReader
	logger *logger.Logger
}

// NewConsumer creates a group consumer over all the given topics.
func NewConsumer(brokers []string, topics []string, groupID string, logger *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: logger}
}

func NewConsumerWithReader(reader MessageReader, logger *logger.Logger) *Consumer {
	return &Consumer{reader: reader, logger: logger}
}

// Start consumes booking events until ctx is cancelled. Every message is
// committed after the handler returns, including failed ones.
func (c *Consumer) Start(ctx context.Context, handler func(ctx context.Context, evt models.BookingEvent) error) error {
	c.logger.Info("KAFKA", "Booking event consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		var evt models.BookingEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Skipping undecodable message on %s at offset %d: %v", msg.Topic, msg.Offset, err))
		} else if err := handler(ctx, evt); err != nil {
			c.logger.Error("KAFKA", fmt.Sprintf("Handler failed for %s on event %s: %v", evt.Type, evt.EventID, err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("KAFKA", fmt.Sprintf("Failed to commit offset %d on %s: %v", msg.Offset, msg.Topic, err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
