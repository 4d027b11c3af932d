package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/compliance-notifier/internal/model"
)

const notificationColumns = `id, user_id, task_id, title, message, type, status, priority,
	channels, scheduled_at, sent_at, read_at, actioned_at,
	escalation_level, escalated_to, created_at, updated_at`

const notificationLogColumns = `id, notification_id, user_id, status, channel, metadata, created_at`

// CreateNotification inserts a new notification. Missing status, priority,
// channels and timestamps are defaulted.
func (s *SQLStore) CreateNotification(ctx context.Context, n model.Notification) (*model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = model.NotificationPending
	}
	if n.Priority == "" {
		n.Priority = model.PriorityMedium
	}
	if len(n.Channels) == 0 {
		n.Channels = model.Channels{model.ChannelDashboard}
	}
	if strings.TrimSpace(n.UserID) == "" {
		return nil, fmt.Errorf("notification: %w", model.ErrMissingUser)
	}
	if !n.Type.Valid() {
		return nil, fmt.Errorf("notification type %q: %w", n.Type, model.ErrInvalidType)
	}
	if !n.Status.Valid() {
		return nil, fmt.Errorf("notification status %q: %w", n.Status, model.ErrInvalidStatus)
	}
	if err := checkEscalation(n); err != nil {
		return nil, fmt.Errorf("notification: %w", err)
	}

	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.ScheduledAt.IsZero() {
		n.ScheduledAt = n.CreatedAt
	}
	n.UpdatedAt = n.CreatedAt

	_, err := s.exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.TaskID, n.Title, n.Message, n.Type, n.Status, n.Priority,
		n.Channels, utc(n.ScheduledAt), utcPtr(n.SentAt), utcPtr(n.ReadAt), utcPtr(n.ActionedAt),
		n.EscalationLevel, n.EscalatedTo, utc(n.CreatedAt), utc(n.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	return s.GetNotification(ctx, n.ID)
}

// GetNotification retrieves a single notification by ID.
func (s *SQLStore) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := s.get(ctx, &n, "SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}
	return &n, nil
}

// UpdateNotification applies patch to the notification with the given ID.
// Status changes must move forward through the lifecycle; the timestamp of
// each stage reached is recorded once and never overwritten.
func (s *SQLStore) UpdateNotification(
	ctx context.Context,
	id string,
	patch model.NotificationPatch,
) (*model.Notification, error) {
	n, err := s.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if patch.Status != nil && *patch.Status != n.Status {
		next := *patch.Status
		if !n.Status.CanTransition(next) {
			return nil, fmt.Errorf("notification %s %s -> %s: %w", id, n.Status, next, ErrInvalidTransition)
		}
		n.Status = next
		stampLifecycle(n, now)
	}
	if patch.EscalationLevel != nil {
		n.EscalationLevel = *patch.EscalationLevel
	}
	if patch.EscalatedTo != nil {
		n.EscalatedTo = patch.EscalatedTo
	}
	if err := checkEscalation(*n); err != nil {
		return nil, fmt.Errorf("notification %s: %w", id, err)
	}

	_, err = s.exec(ctx, `
		UPDATE notifications SET
			status = ?, sent_at = ?, read_at = ?, actioned_at = ?,
			escalation_level = ?, escalated_to = ?, updated_at = ?
		WHERE id = ?`,
		n.Status, utcPtr(n.SentAt), utcPtr(n.ReadAt), utcPtr(n.ActionedAt),
		n.EscalationLevel, n.EscalatedTo, now,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating notification %s: %w", id, err)
	}

	return s.GetNotification(ctx, id)
}

// checkEscalation enforces that a notification has an escalation recipient
// exactly when its escalation level is positive.
func checkEscalation(n model.Notification) error {
	escalated := n.EscalatedTo != nil && *n.EscalatedTo != ""
	switch {
	case n.EscalationLevel < 0:
		return fmt.Errorf("escalation level %d: %w", n.EscalationLevel, model.ErrInvalidLevel)
	case n.EscalationLevel > 0 && !escalated:
		return fmt.Errorf("escalation level %d: %w", n.EscalationLevel, model.ErrMissingUser)
	case n.EscalationLevel == 0 && n.EscalatedTo != nil:
		return fmt.Errorf("escalated to %q at level 0: %w", *n.EscalatedTo, model.ErrInvalidLevel)
	}
	return nil
}

// stampLifecycle fills the unset timestamps of every stage n.Status has
// reached. Dismissal records no timestamp.
func stampLifecycle(n *model.Notification, now time.Time) {
	switch n.Status {
	case model.NotificationActioned:
		if n.ActionedAt == nil {
			n.ActionedAt = &now
		}
		fallthrough
	case model.NotificationRead:
		if n.ReadAt == nil {
			n.ReadAt = &now
		}
		fallthrough
	case model.NotificationDelivered, model.NotificationSent:
		if n.SentAt == nil {
			n.SentAt = &now
		}
	}
}

// GetNotifications retrieves notifications matching the filter, newest first.
func (s *SQLStore) GetNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, error) {
	var conditions []string
	var args []any

	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, *filter.Type)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}

	query := "SELECT " + notificationColumns + " FROM notifications"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	query = appendPaging(query, filter.Limit, filter.Offset)

	notifications := []model.Notification{}
	if err := s.selectAll(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	return notifications, nil
}

// GetNotificationsByTask returns every notification for a task, newest first.
func (s *SQLStore) GetNotificationsByTask(ctx context.Context, taskID string) ([]model.Notification, error) {
	notifications := []model.Notification{}
	err := s.selectAll(ctx, &notifications,
		"SELECT "+notificationColumns+" FROM notifications WHERE task_id = ? ORDER BY created_at DESC, id ASC",
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications for task %s: %w", taskID, err)
	}
	return notifications, nil
}

// CreateNotificationLog appends an audit entry.
func (s *SQLStore) CreateNotificationLog(ctx context.Context, l model.NotificationLog) (*model.NotificationLog, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if !l.Status.Valid() {
		return nil, fmt.Errorf("notification log status %q: %w", l.Status, model.ErrInvalidStatus)
	}

	_, err := s.exec(ctx, `
		INSERT INTO notification_logs (`+notificationLogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.NotificationID, l.UserID, l.Status, l.Channel, l.Metadata, utc(l.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification log: %w", err)
	}

	l.CreatedAt = utc(l.CreatedAt)
	return &l, nil
}

// GetNotificationLogs returns the audit trail of a notification, oldest first.
func (s *SQLStore) GetNotificationLogs(ctx context.Context, notificationID string) ([]model.NotificationLog, error) {
	logs := []model.NotificationLog{}
	err := s.selectAll(ctx, &logs,
		"SELECT "+notificationLogColumns+" FROM notification_logs WHERE notification_id = ? ORDER BY created_at ASC, id ASC",
		notificationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying logs for notification %s: %w", notificationID, err)
	}
	return logs, nil
}
