package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nhle/compliance-notifier/internal/model"
)

// amqpChannel is the part of *amqp.Channel used for publishing.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQ publishes events to a durable queue through the default exchange.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel amqpChannel
	queue   string
}

// NewRabbitMQ dials url and declares queue.
func NewRabbitMQ(url, queue string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", queue, err)
	}

	return &RabbitMQ{conn: conn, channel: channel, queue: queue}, nil
}

// PublishNotification sends a persistent JSON message for n.
func (r *RabbitMQ) PublishNotification(ctx context.Context, n model.Notification) error {
	body, err := encode(n)
	if err != nil {
		return err
	}

	err = r.channel.PublishWithContext(
		ctx,
		"",      // exchange
		r.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         TypeNotificationCreated,
			MessageId:    n.ID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publishing notification %s: %w", n.ID, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return fmt.Errorf("closing channel: %w", err)
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
