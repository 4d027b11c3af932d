package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxTemplateNameLen bounds MessageTemplate.Name.
const MaxTemplateNameLen = 100

var (
	ErrInvalidName   = errors.New("invalid name")
	ErrEmptyTemplate = errors.New("template body must not be empty")
)

// MessageTemplate is a reusable message body kept per notification type
// for operators composing notifications.
type MessageTemplate struct {
	ID       string   `json:"id" db:"id"`
	Name     string   `json:"name" db:"name"`
	Type     TaskType `json:"type" db:"type"`
	Template string   `json:"template" db:"template"`

	// CreatedBy is the author; it never changes after creation.
	CreatedBy *string `json:"created_by,omitempty" db:"created_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MessageTemplatePatch lists the fields UpdateMessageTemplate may change.
// Nil fields are left untouched.
type MessageTemplatePatch struct {
	Name     *string
	Type     *TaskType
	Template *string
}

// Apply copies the set fields of p onto t.
func (p MessageTemplatePatch) Apply(t *MessageTemplate) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Template != nil {
		t.Template = *p.Template
	}
}

// Validate checks the fields a template must carry before it is stored.
func (t *MessageTemplate) Validate() error {
	name := strings.TrimSpace(t.Name)
	if name == "" || len(name) > MaxTemplateNameLen {
		return fmt.Errorf("template name must be 1 to %d characters: %w", MaxTemplateNameLen, ErrInvalidName)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("template type %q: %w", t.Type, ErrInvalidType)
	}
	if strings.TrimSpace(t.Template) == "" {
		return ErrEmptyTemplate
	}
	return nil
}
