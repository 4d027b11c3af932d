package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nhle/compliance-notifier/internal/model"
)

// messageWriter is the part of *kafka.Writer used for publishing.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events to a topic, keyed by recipient so that one
// user's events stay ordered within a partition.
type Kafka struct {
	writer messageWriter
}

// NewKafka creates a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

// PublishNotification writes a JSON message for n.
func (k *Kafka) PublishNotification(ctx context.Context, n model.Notification) error {
	body, err := encode(n)
	if err != nil {
		return err
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.UserID),
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeNotificationCreated)},
		},
	})
	if err != nil {
		return fmt.Errorf("writing notification %s to kafka: %w", n.ID, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
