package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationStatus is a point in the forward-only notification lifecycle.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationSent      NotificationStatus = "sent"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationRead      NotificationStatus = "read"
	NotificationActioned  NotificationStatus = "actioned"
	NotificationDismissed NotificationStatus = "dismissed"
)

// statusRank orders the lifecycle. Dismissed is terminal and handled apart.
var statusRank = map[NotificationStatus]int{
	NotificationPending:   0,
	NotificationSent:      1,
	NotificationDelivered: 2,
	NotificationRead:      3,
	NotificationActioned:  4,
}

// Valid reports whether s is a known notification status.
func (s NotificationStatus) Valid() bool {
	if s == NotificationDismissed {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transition is possible from s.
func (s NotificationStatus) Terminal() bool {
	return s == NotificationActioned || s == NotificationDismissed
}

// CanTransition reports whether a notification may move from s to next.
// Statuses only move forward; dismissed is reachable from any non-terminal state.
func (s NotificationStatus) CanTransition(next NotificationStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == NotificationDismissed {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Delivery channels.
const (
	ChannelEmail     = "email"
	ChannelSMS       = "sms"
	ChannelPush      = "push"
	ChannelWhatsApp  = "whatsapp"
	ChannelDashboard = "dashboard"
)

// Channels is the set of delivery channels for a notification. It is stored
// as a JSON array; order carries no meaning.
type Channels []string

// Has reports whether c contains channel.
func (c Channels) Has(channel string) bool {
	for _, ch := range c {
		if ch == channel {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (c Channels) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(c))
	if err != nil {
		return nil, fmt.Errorf("marshaling channels: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *Channels) Scan(src any) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scanning channels: %w", err)
	}
	if len(raw) == 0 {
		*c = Channels{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(c))
}

// Metadata is free-form JSON attached to a notification log entry.
type Metadata map[string]any

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src any) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scanning metadata: %w", err)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, (*map[string]any)(m))
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}

// Notification is an alert surfaced to a user about a task.
type Notification struct {
	ID string `json:"id" db:"id"`

	// UserID is the current target of the notification.
	UserID string `json:"user_id" db:"user_id"`

	// TaskID links back to the originating task, if any.
	TaskID *string `json:"task_id,omitempty" db:"task_id"`

	Title   string `json:"title" db:"title"`
	Message string `json:"message" db:"message"`

	// Type mirrors the task type, or is escalation.
	Type TaskType `json:"type" db:"type"`

	Status   NotificationStatus `json:"status" db:"status"`
	Priority Priority           `json:"priority" db:"priority"`
	Channels Channels           `json:"channels" db:"channels"`

	ScheduledAt time.Time  `json:"scheduled_at" db:"scheduled_at"`
	SentAt      *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	ReadAt      *time.Time `json:"read_at,omitempty" db:"read_at"`
	ActionedAt  *time.Time `json:"actioned_at,omitempty" db:"actioned_at"`

	// EscalationLevel is 0 when not escalated; EscalatedTo is set iff it is > 0.
	EscalationLevel int     `json:"escalation_level" db:"escalation_level"`
	EscalatedTo     *string `json:"escalated_to,omitempty" db:"escalated_to"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NotificationPatch carries the mutable fields of a notification. Nil fields
// are left untouched.
type NotificationPatch struct {
	Status          *NotificationStatus
	EscalationLevel *int
	EscalatedTo     *string
}

// NotificationLog is one append-only audit event for a notification.
type NotificationLog struct {
	ID             string             `json:"id" db:"id"`
	NotificationID string             `json:"notification_id" db:"notification_id"`
	UserID         string             `json:"user_id" db:"user_id"`
	Status         NotificationStatus `json:"status" db:"status"`
	Channel        string             `json:"channel" db:"channel"`
	Metadata       Metadata           `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}
