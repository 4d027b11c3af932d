package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/compliance-notifier/internal/model"
)

// TypeNotificationCreated names the only event this package emits.
const TypeNotificationCreated = "notification.created"

// Event is the JSON payload published for a new notification. It records
// the intent to deliver on the listed channels; nothing is delivered here.
type Event struct {
	Type             string                   `json:"type"`
	NotificationID   string                   `json:"notification_id"`
	UserID           string                   `json:"user_id"`
	TaskID           *string                  `json:"task_id,omitempty"`
	NotificationType model.TaskType           `json:"notification_type"`
	Priority         model.Priority           `json:"priority"`
	Status           model.NotificationStatus `json:"status"`
	Channels         model.Channels           `json:"channels"`
	EscalationLevel  int                      `json:"escalation_level"`
	EscalatedTo      *string                  `json:"escalated_to,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
}

// NewNotificationCreated builds the event for n.
func NewNotificationCreated(n model.Notification) Event {
	return Event{
		Type:             TypeNotificationCreated,
		NotificationID:   n.ID,
		UserID:           n.UserID,
		TaskID:           n.TaskID,
		NotificationType: n.Type,
		Priority:         n.Priority,
		Status:           n.Status,
		Channels:         n.Channels,
		EscalationLevel:  n.EscalationLevel,
		EscalatedTo:      n.EscalatedTo,
		CreatedAt:        n.CreatedAt,
	}
}

func encode(n model.Notification) ([]byte, error) {
	body, err := json.Marshal(NewNotificationCreated(n))
	if err != nil {
		return nil, fmt.Errorf("marshaling event for notification %s: %w", n.ID, err)
	}
	return body, nil
}

// Publisher sends notification events to a broker.
type Publisher interface {
	PublishNotification(ctx context.Context, n model.Notification) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) PublishNotification(context.Context, model.Notification) error { return nil }
func (Noop) Close() error                                                  { return nil }

// New returns the publisher selected by cfg.Driver.
func New(cfg model.EventsConfig) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return Noop{}, nil
	case "rabbitmq":
		return NewRabbitMQ(cfg.URL, cfg.Destination)
	case "kafka":
		return NewKafka(splitBrokers(cfg.Brokers), cfg.Destination), nil
	}
	return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
