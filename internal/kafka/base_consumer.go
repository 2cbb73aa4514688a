package kafka

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"

	"github.com/cjdreamy/M-kumbusha/internal/logger"
)

// messageReader is the part of kafka.Reader the consumers use
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// BaseConsumer provides common functionality for all Kafka consumers
type BaseConsumer struct {
	Reader messageReader
}

// NewBaseConsumer creates a consumer group reader. The reader is nil when the
// URL or topic is empty, which disables the consumer.
func NewBaseConsumer(kafkaURL, topic, groupID string) *BaseConsumer {
	if topic == "" || kafkaURL == "" {
		logger.Log.Info("Empty Kafka topic or URL provided, skipping consumer creation")
		return &BaseConsumer{}
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{kafkaURL},
		Topic:   topic,
		GroupID: groupID,
	})

	return &BaseConsumer{Reader: reader}
}

// Enabled reports whether the consumer has a reader
func (c *BaseConsumer) Enabled() bool {
	return c.Reader != nil
}

func (c *BaseConsumer) Close() error {
	if c.Reader == nil {
		return nil
	}
	return c.Reader.Close()
}

// ConsumeMessages passes every message to handler until ctx is cancelled.
// Handler errors are logged and the message is committed anyway.
func (c *BaseConsumer) ConsumeMessages(ctx context.Context, handler func([]byte) error) {
	if c.Reader == nil {
		return
	}
	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				logger.Log.Info("Context cancelled, stopping consumer")
				return
			}
			logger.Log.Errorf("Error reading from Kafka: %v", err)
			continue
		}

		logger.Log.Debugf("Received Kafka message from topic %s", msg.Topic)

		if err := handler(msg.Value); err != nil {
			logger.Log.Errorf("Error processing message from %s: %v", msg.Topic, err)
		}
	}
}
