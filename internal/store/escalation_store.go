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

const escalationColumns = `id, level, user_id, notification_type, days_before_escalation,
	email_enabled, sms_enabled, push_enabled, whatsapp_enabled, requires_action,
	created_at, updated_at`

// GetEscalationLevels returns every rung of every ladder.
func (s *SQLStore) GetEscalationLevels(ctx context.Context) ([]model.EscalationLevel, error) {
	levels := []model.EscalationLevel{}
	err := s.selectAll(ctx, &levels,
		"SELECT "+escalationColumns+" FROM escalation_levels ORDER BY notification_type, days_before_escalation, level",
	)
	if err != nil {
		return nil, fmt.Errorf("querying escalation levels: %w", err)
	}
	return levels, nil
}

// GetEscalationLevelsByType returns the ladder for t ordered by ascending
// threshold.
func (s *SQLStore) GetEscalationLevelsByType(ctx context.Context, t model.TaskType) ([]model.EscalationLevel, error) {
	levels := []model.EscalationLevel{}
	err := s.selectAll(ctx, &levels,
		"SELECT "+escalationColumns+" FROM escalation_levels WHERE notification_type = ? ORDER BY days_before_escalation, level",
		t,
	)
	if err != nil {
		return nil, fmt.Errorf("querying escalation levels for %s: %w", t, err)
	}
	return levels, nil
}

// CreateEscalationLevel inserts a new rung. Generates a UUID if ID is empty.
func (s *SQLStore) CreateEscalationLevel(ctx context.Context, l model.EscalationLevel) (*model.EscalationLevel, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO escalation_levels (`+escalationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Level, l.UserID, l.NotificationType, l.DaysBeforeEscalation,
		l.EmailEnabled, l.SMSEnabled, l.PushEnabled, l.WhatsAppEnabled, l.RequiresAction,
		l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating escalation level: %w", err)
	}

	return s.getEscalationLevel(ctx, l.ID)
}

// UpdateEscalationLevel replaces an existing rung.
func (s *SQLStore) UpdateEscalationLevel(ctx context.Context, l model.EscalationLevel) (*model.EscalationLevel, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.exec(ctx, `
		UPDATE escalation_levels SET
			level = ?, user_id = ?, notification_type = ?, days_before_escalation = ?,
			email_enabled = ?, sms_enabled = ?, push_enabled = ?, whatsapp_enabled = ?,
			requires_action = ?, updated_at = ?
		WHERE id = ?`,
		l.Level, l.UserID, l.NotificationType, l.DaysBeforeEscalation,
		l.EmailEnabled, l.SMSEnabled, l.PushEnabled, l.WhatsAppEnabled,
		l.RequiresAction, time.Now().UTC(),
		l.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating escalation level %s: %w", l.ID, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("escalation level %s: %w", l.ID, ErrNotFound)
	}

	return s.getEscalationLevel(ctx, l.ID)
}

// DeleteEscalationLevel removes a rung by ID.
func (s *SQLStore) DeleteEscalationLevel(ctx context.Context, id string) error {
	rows, err := s.exec(ctx, "DELETE FROM escalation_levels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting escalation level %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("escalation level %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) getEscalationLevel(ctx context.Context, id string) (*model.EscalationLevel, error) {
	var l model.EscalationLevel
	err := s.get(ctx, &l, "SELECT "+escalationColumns+" FROM escalation_levels WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("escalation level %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting escalation level %s: %w", id, err)
	}
	return &l, nil
}
