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

const templateColumns = `id, name, type, template, created_by, created_at, updated_at`

// GetMessageTemplates returns templates ordered by name, limited to type t
// when it is non-nil.
func (s *SQLStore) GetMessageTemplates(ctx context.Context, t *model.TaskType) ([]model.MessageTemplate, error) {
	query := "SELECT " + templateColumns + " FROM message_templates"
	var args []any
	if t != nil {
		query += " WHERE type = ?"
		args = append(args, *t)
	}
	query += " ORDER BY name, id"

	templates := []model.MessageTemplate{}
	if err := s.selectAll(ctx, &templates, query, args...); err != nil {
		return nil, fmt.Errorf("querying message templates: %w", err)
	}
	return templates, nil
}

// GetMessageTemplate retrieves a single template by ID.
func (s *SQLStore) GetMessageTemplate(ctx context.Context, id string) (*model.MessageTemplate, error) {
	var t model.MessageTemplate
	err := s.get(ctx, &t, "SELECT "+templateColumns+" FROM message_templates WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting message template %s: %w", id, err)
	}
	return &t, nil
}

// CreateMessageTemplate inserts a new template. Generates a UUID if ID is
// empty.
func (s *SQLStore) CreateMessageTemplate(ctx context.Context, t model.MessageTemplate) (*model.MessageTemplate, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO message_templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Type, t.Template, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating message template: %w", err)
	}

	return s.GetMessageTemplate(ctx, t.ID)
}

// UpdateMessageTemplate applies patch to the template with the given ID.
// The author is never changed.
func (s *SQLStore) UpdateMessageTemplate(
	ctx context.Context,
	id string,
	patch model.MessageTemplatePatch,
) (*model.MessageTemplate, error) {
	t, err := s.GetMessageTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(t)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	_, err = s.exec(ctx, `
		UPDATE message_templates SET name = ?, type = ?, template = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Type, t.Template, time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating message template %s: %w", id, err)
	}

	return s.GetMessageTemplate(ctx, id)
}

// DeleteMessageTemplate removes a template by ID.
func (s *SQLStore) DeleteMessageTemplate(ctx context.Context, id string) error {
	rows, err := s.exec(ctx, "DELETE FROM message_templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting message template %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("message template %s: %w", id, ErrNotFound)
	}
	return nil
}
