package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/compliance-notifier/internal/model"
)

const settingsColumns = `id, user_id, notification_type, email_enabled, sms_enabled,
	push_enabled, whatsapp_enabled, reminder_days, created_at, updated_at`

// GetNotificationSettings returns every settings row of a user.
func (s *SQLStore) GetNotificationSettings(ctx context.Context, userID string) ([]model.NotificationSettings, error) {
	settings := []model.NotificationSettings{}
	err := s.selectAll(ctx, &settings,
		"SELECT "+settingsColumns+" FROM notification_settings WHERE user_id = ? ORDER BY notification_type",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notification settings for %s: %w", userID, err)
	}
	return settings, nil
}

// CreateNotificationSettings inserts a settings row, failing with
// ErrConflict if the user already has one for the type.
func (s *SQLStore) CreateNotificationSettings(
	ctx context.Context,
	settings model.NotificationSettings,
) (*model.NotificationSettings, error) {
	prepareSettings(&settings)
	if !settings.NotificationType.Valid() {
		return nil, fmt.Errorf("settings type %q: %w", settings.NotificationType, model.ErrInvalidType)
	}

	_, err := s.exec(ctx, `
		INSERT INTO notification_settings (`+settingsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settingsArgs(settings)...,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("settings for %s/%s: %w", settings.UserID, settings.NotificationType, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating notification settings: %w", err)
	}

	return s.getSettings(ctx, settings.UserID, settings.NotificationType)
}

// EnsureNotificationSettings inserts settings unless the user already has a
// row for the type, then returns whichever row is stored. Concurrent callers
// converge on a single row.
func (s *SQLStore) EnsureNotificationSettings(
	ctx context.Context,
	settings model.NotificationSettings,
) (*model.NotificationSettings, bool, error) {
	prepareSettings(&settings)
	if !settings.NotificationType.Valid() {
		return nil, false, fmt.Errorf("settings type %q: %w", settings.NotificationType, model.ErrInvalidType)
	}

	inserted, err := s.exec(ctx, `
		INSERT INTO notification_settings (`+settingsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, notification_type) DO NOTHING`,
		settingsArgs(settings)...,
	)
	if err != nil {
		return nil, false, fmt.Errorf("ensuring notification settings: %w", err)
	}

	stored, err := s.getSettings(ctx, settings.UserID, settings.NotificationType)
	if err != nil {
		return nil, false, err
	}
	return stored, inserted > 0, nil
}

// UpdateNotificationSettings applies patch to the settings row with id.
func (s *SQLStore) UpdateNotificationSettings(
	ctx context.Context,
	id string,
	patch model.NotificationSettingsPatch,
) (*model.NotificationSettings, error) {
	var current model.NotificationSettings
	err := s.get(ctx, &current, "SELECT "+settingsColumns+" FROM notification_settings WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification settings %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification settings %s: %w", id, err)
	}

	if patch.EmailEnabled != nil {
		current.EmailEnabled = *patch.EmailEnabled
	}
	if patch.SMSEnabled != nil {
		current.SMSEnabled = *patch.SMSEnabled
	}
	if patch.PushEnabled != nil {
		current.PushEnabled = *patch.PushEnabled
	}
	if patch.WhatsAppEnabled != nil {
		current.WhatsAppEnabled = *patch.WhatsAppEnabled
	}
	if patch.ReminderDays != nil {
		current.ReminderDays = *patch.ReminderDays
	}

	_, err = s.exec(ctx, `
		UPDATE notification_settings SET
			email_enabled = ?, sms_enabled = ?, push_enabled = ?, whatsapp_enabled = ?,
			reminder_days = ?, updated_at = ?
		WHERE id = ?`,
		current.EmailEnabled, current.SMSEnabled, current.PushEnabled, current.WhatsAppEnabled,
		current.ReminderDays, time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating notification settings %s: %w", id, err)
	}

	return s.getSettings(ctx, current.UserID, current.NotificationType)
}

func (s *SQLStore) getSettings(
	ctx context.Context,
	userID string,
	t model.TaskType,
) (*model.NotificationSettings, error) {
	var settings model.NotificationSettings
	err := s.get(ctx, &settings,
		"SELECT "+settingsColumns+" FROM notification_settings WHERE user_id = ? AND notification_type = ?",
		userID, t,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settings for %s/%s: %w", userID, t, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting settings for %s/%s: %w", userID, t, err)
	}
	return &settings, nil
}

func prepareSettings(settings *model.NotificationSettings) {
	if settings.ID == "" {
		settings.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now
}

func settingsArgs(settings model.NotificationSettings) []any {
	return []any{
		settings.ID, settings.UserID, settings.NotificationType,
		settings.EmailEnabled, settings.SMSEnabled, settings.PushEnabled, settings.WhatsAppEnabled,
		settings.ReminderDays, utc(settings.CreatedAt), settings.UpdatedAt,
	}
}
