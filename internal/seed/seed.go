// Package seed loads users, tasks, preferences and escalation ladders from
// JSON5 fixture files.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
)

//go:embed demo.json5
var demo []byte

// Demo returns the bundled demonstration fixture.
func Demo() (*Fixture, error) {
	return Parse(demo)
}

// Fixture is the top-level document. Records refer to users by username.
type Fixture struct {
	Users            []UserFixture       `json:"users"`
	Tasks            []TaskFixture       `json:"tasks"`
	Settings         []SettingsFixture   `json:"settings"`
	EscalationLevels []EscalationFixture `json:"escalation_levels"`
	MessageTemplates []TemplateFixture   `json:"message_templates"`
}

type UserFixture struct {
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Phone      *string    `json:"phone"`
	FullName   string     `json:"full_name"`
	Role       model.Role `json:"role"`
	Department *string    `json:"department"`
}

// TaskFixture sets either DueDate (RFC 3339 or YYYY-MM-DD) or DueInDays,
// which is relative to the time the fixture is applied and may be negative.
type TaskFixture struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        model.TaskType   `json:"type"`
	DueDate     string           `json:"due_date"`
	DueInDays   *int             `json:"due_in_days"`
	Status      model.TaskStatus `json:"status"`
	Priority    model.Priority   `json:"priority"`
	Amount      *int64           `json:"amount"`
	AssignedTo  string           `json:"assigned_to"`
}

type SettingsFixture struct {
	User             string         `json:"user"`
	NotificationType model.TaskType `json:"notification_type"`
	EmailEnabled     *bool          `json:"email_enabled"`
	SMSEnabled       *bool          `json:"sms_enabled"`
	PushEnabled      *bool          `json:"push_enabled"`
	WhatsAppEnabled  *bool          `json:"whatsapp_enabled"`
	ReminderDays     *int           `json:"reminder_days"`
}

type EscalationFixture struct {
	Level                int            `json:"level"`
	User                 string         `json:"user"`
	NotificationType     model.TaskType `json:"notification_type"`
	DaysBeforeEscalation int            `json:"days_before_escalation"`
	EmailEnabled         *bool          `json:"email_enabled"`
	SMSEnabled           *bool          `json:"sms_enabled"`
	PushEnabled          *bool          `json:"push_enabled"`
	WhatsAppEnabled      *bool          `json:"whatsapp_enabled"`
	RequiresAction       *bool          `json:"requires_action"`
}

type TemplateFixture struct {
	Name      string         `json:"name"`
	Type      model.TaskType `json:"type"`
	Template  string         `json:"template"`
	CreatedBy string         `json:"created_by"`
}

// Result counts the rows written by Apply.
type Result struct {
	UsersCreated     int
	UsersReused      int
	Tasks            int
	Settings         int
	EscalationLevels int
	MessageTemplates int
}

// Parse decodes a JSON5 fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := json5.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

// LoadFile reads and decodes the fixture at path.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Apply writes f in one transaction. Users that already exist (by
// username) are reused, so a fixture may be applied to a seeded database
// to add tasks.
func Apply(ctx context.Context, s store.Store, f *Fixture, now time.Time) (Result, error) {
	var res Result
	err := s.WithTx(ctx, func(tx store.Store) error {
		ids, err := applyUsers(ctx, tx, f.Users, &res)
		if err != nil {
			return err
		}

		lookup := func(username string) (string, error) {
			id, ok := ids[username]
			if !ok {
				return "", fmt.Errorf("unknown user %q: %w", username, model.ErrMissingUser)
			}
			return id, nil
		}

		for i, tf := range f.Tasks {
			task, err := tf.task(now)
			if err != nil {
				return fmt.Errorf("task %d: %w", i, err)
			}
			if tf.AssignedTo != "" {
				id, err := lookup(tf.AssignedTo)
				if err != nil {
					return fmt.Errorf("task %q: %w", tf.Title, err)
				}
				task.AssignedTo = &id
			}
			if _, err := tx.CreateTask(ctx, task); err != nil {
				return fmt.Errorf("task %q: %w", tf.Title, err)
			}
			res.Tasks++
		}

		for _, sf := range f.Settings {
			id, err := lookup(sf.User)
			if err != nil {
				return fmt.Errorf("settings: %w", err)
			}
			settings := model.DefaultNotificationSettings(id, sf.NotificationType)
			setBool(&settings.EmailEnabled, sf.EmailEnabled)
			setBool(&settings.SMSEnabled, sf.SMSEnabled)
			setBool(&settings.PushEnabled, sf.PushEnabled)
			setBool(&settings.WhatsAppEnabled, sf.WhatsAppEnabled)
			if sf.ReminderDays != nil {
				settings.ReminderDays = *sf.ReminderDays
			}
			if _, created, err := tx.EnsureNotificationSettings(ctx, settings); err != nil {
				return fmt.Errorf("settings for %s/%s: %w", sf.User, sf.NotificationType, err)
			} else if created {
				res.Settings++
			}
		}

		for _, ef := range f.EscalationLevels {
			id, err := lookup(ef.User)
			if err != nil {
				return fmt.Errorf("escalation level: %w", err)
			}
			level := model.EscalationLevel{
				Level:                ef.Level,
				UserID:               id,
				NotificationType:     ef.NotificationType,
				DaysBeforeEscalation: ef.DaysBeforeEscalation,
				EmailEnabled:         true,
				SMSEnabled:           true,
				PushEnabled:          true,
				RequiresAction:       true,
			}
			setBool(&level.EmailEnabled, ef.EmailEnabled)
			setBool(&level.SMSEnabled, ef.SMSEnabled)
			setBool(&level.PushEnabled, ef.PushEnabled)
			setBool(&level.WhatsAppEnabled, ef.WhatsAppEnabled)
			setBool(&level.RequiresAction, ef.RequiresAction)
			if _, err := tx.CreateEscalationLevel(ctx, level); err != nil {
				return fmt.Errorf("escalation level %d for %s: %w", ef.Level, ef.NotificationType, err)
			}
			res.EscalationLevels++
		}

		for _, tf := range f.MessageTemplates {
			tmpl := model.MessageTemplate{Name: tf.Name, Type: tf.Type, Template: tf.Template}
			if tf.CreatedBy != "" {
				id, err := lookup(tf.CreatedBy)
				if err != nil {
					return fmt.Errorf("message template: %w", err)
				}
				tmpl.CreatedBy = &id
			}
			if _, err := tx.CreateMessageTemplate(ctx, tmpl); err != nil {
				return fmt.Errorf("message template %q: %w", tf.Name, err)
			}
			res.MessageTemplates++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func applyUsers(ctx context.Context, tx store.Store, users []UserFixture, res *Result) (map[string]string, error) {
	existing, err := tx.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(existing)+len(users))
	for _, u := range existing {
		ids[u.Username] = u.ID
	}

	for _, uf := range users {
		if _, ok := ids[uf.Username]; ok {
			res.UsersReused++
			continue
		}
		fullName := uf.FullName
		if fullName == "" {
			fullName = uf.Username
		}
		u, err := tx.CreateUser(ctx, model.User{
			Username:   uf.Username,
			Email:      uf.Email,
			Phone:      uf.Phone,
			FullName:   fullName,
			Role:       uf.Role,
			Department: uf.Department,
		})
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("user %q listed twice: %w", uf.Username, err)
		}
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", uf.Username, err)
		}
		ids[u.Username] = u.ID
		res.UsersCreated++
	}
	return ids, nil
}

func (tf TaskFixture) task(now time.Time) (model.Task, error) {
	t := model.Task{
		Title:       tf.Title,
		Description: strings.TrimSpace(tf.Description),
		Type:        tf.Type,
		Status:      tf.Status,
		Priority:    tf.Priority,
		Amount:      tf.Amount,
	}

	switch {
	case tf.DueInDays != nil:
		t.DueDate = now.AddDate(0, 0, *tf.DueInDays)
	case tf.DueDate != "":
		due, err := parseDate(tf.DueDate)
		if err != nil {
			return model.Task{}, err
		}
		t.DueDate = due
	default:
		return model.Task{}, fmt.Errorf("%q has neither due_date nor due_in_days", tf.Title)
	}
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("due date %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
