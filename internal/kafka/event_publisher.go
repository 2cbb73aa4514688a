package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisher writes reminder workflow events to a topic, keyed by elderly id
// so events for one person stay ordered.
type EventPublisher struct {
	writer messageWriter
}

func NewEventPublisher(kafkaURL, topic string) *EventPublisher {
	return &EventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(kafkaURL),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *EventPublisher) Publish(ctx context.Context, event models.ReminderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ElderlyID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}
	logger.Log.Debugf("Published %s event for reminder %s", event.Type, event.ReminderID)
	return nil
}

func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
