package model

import (
	"fmt"
	"strings"
	"time"
)

// NotificationSettings holds one user's channel preferences for one
// notification type. (UserID, NotificationType) is unique.
type NotificationSettings struct {
	ID               string   `json:"id" db:"id"`
	UserID           string   `json:"user_id" db:"user_id"`
	NotificationType TaskType `json:"notification_type" db:"notification_type"`
	EmailEnabled     bool     `json:"email_enabled" db:"email_enabled"`
	SMSEnabled       bool     `json:"sms_enabled" db:"sms_enabled"`
	PushEnabled      bool     `json:"push_enabled" db:"push_enabled"`
	WhatsAppEnabled  bool     `json:"whatsapp_enabled" db:"whatsapp_enabled"`

	// ReminderDays is how many days before the due date a reminder is wanted.
	ReminderDays int `json:"reminder_days" db:"reminder_days"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultNotificationSettings returns the settings lazily created for a user
// that has none for the given type.
func DefaultNotificationSettings(userID string, t TaskType) NotificationSettings {
	return NotificationSettings{
		UserID:           userID,
		NotificationType: t,
		EmailEnabled:     true,
		SMSEnabled:       false,
		PushEnabled:      true,
		WhatsAppEnabled:  false,
		ReminderDays:     7,
	}
}

// Channels returns the enabled channels plus the always-on dashboard channel.
func (s NotificationSettings) Channels() Channels {
	return buildChannels(s.EmailEnabled, s.SMSEnabled, s.PushEnabled, s.WhatsAppEnabled)
}

// NotificationSettingsPatch carries the user-editable settings fields.
type NotificationSettingsPatch struct {
	EmailEnabled    *bool `json:"email_enabled"`
	SMSEnabled      *bool `json:"sms_enabled"`
	PushEnabled     *bool `json:"push_enabled"`
	WhatsAppEnabled *bool `json:"whatsapp_enabled"`
	ReminderDays    *int  `json:"reminder_days" binding:"omitempty,min=0,max=365"`
}

// EscalationLevel is one rung of the escalation ladder for a notification type.
type EscalationLevel struct {
	ID string `json:"id" db:"id"`

	// Level is the rung number, 1 being the first.
	Level int `json:"level" db:"level"`

	// UserID receives the escalated notification.
	UserID string `json:"user_id" db:"user_id"`

	NotificationType TaskType `json:"notification_type" db:"notification_type"`

	// DaysBeforeEscalation is the days-overdue threshold at which the rung fires.
	DaysBeforeEscalation int `json:"days_before_escalation" db:"days_before_escalation"`

	EmailEnabled    bool `json:"email_enabled" db:"email_enabled"`
	SMSEnabled      bool `json:"sms_enabled" db:"sms_enabled"`
	PushEnabled     bool `json:"push_enabled" db:"push_enabled"`
	WhatsAppEnabled bool `json:"whatsapp_enabled" db:"whatsapp_enabled"`
	RequiresAction  bool `json:"requires_action" db:"requires_action"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Channels returns the rung's own enabled channels plus dashboard.
func (l EscalationLevel) Channels() Channels {
	return buildChannels(l.EmailEnabled, l.SMSEnabled, l.PushEnabled, l.WhatsAppEnabled)
}

func buildChannels(email, sms, push, whatsapp bool) Channels {
	channels := Channels{}
	if email {
		channels = append(channels, ChannelEmail)
	}
	if sms {
		channels = append(channels, ChannelSMS)
	}
	if push {
		channels = append(channels, ChannelPush)
	}
	if whatsapp {
		channels = append(channels, ChannelWhatsApp)
	}
	return append(channels, ChannelDashboard)
}

// Validate checks the fields a rung must carry before it is stored.
func (l *EscalationLevel) Validate() error {
	if l.Level < 1 {
		return fmt.Errorf("escalation level %d: %w", l.Level, ErrInvalidLevel)
	}
	if strings.TrimSpace(l.UserID) == "" {
		return fmt.Errorf("escalation level %d: %w", l.Level, ErrMissingUser)
	}
	if !l.NotificationType.Valid() {
		return fmt.Errorf("escalation type %q: %w", l.NotificationType, ErrInvalidType)
	}
	if l.DaysBeforeEscalation < 0 {
		return fmt.Errorf("escalation threshold %d: %w", l.DaysBeforeEscalation, ErrInvalidLevel)
	}
	return nil
}
