package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/compliance-notifier/internal/model"
)

var (
	// ErrNotFound is returned when a row addressed by ID does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a notification status update
	// would move the lifecycle backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
)

// TaskFilter controls filtering for task queries. Nil fields match all.
type TaskFilter struct {
	Type       *model.TaskType
	Status     *model.TaskStatus
	Priority   *model.Priority
	AssignedTo *string
	Limit      int
	Offset     int
}

// NotificationFilter controls filtering for notification queries.
type NotificationFilter struct {
	UserID *string
	Type   *model.TaskType
	Status *model.NotificationStatus
	Limit  int
	Offset int
}

// TaskStore persists compliance tasks and answers the due-date queries the
// engine and the dashboard share.
type TaskStore interface {
	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	// GetTasksDueSoon returns pending tasks due in [now, now+days].
	GetTasksDueSoon(ctx context.Context, now time.Time, days int) ([]model.Task, error)

	// GetOverdueTasks returns pending tasks due strictly before now.
	GetOverdueTasks(ctx context.Context, now time.Time) ([]model.Task, error)

	// GetTaskStats aggregates over all tasks, or those assigned to userID.
	// days is the due-soon window; zero means model.DueSoonDays.
	GetTaskStats(ctx context.Context, now time.Time, days int, userID *string) (model.TaskStats, error)
}

// NotificationStore persists notifications and their append-only log.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n model.Notification) (*model.Notification, error)
	GetNotification(ctx context.Context, id string) (*model.Notification, error)
	UpdateNotification(ctx context.Context, id string, patch model.NotificationPatch) (*model.Notification, error)
	GetNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, error)
	GetNotificationsByTask(ctx context.Context, taskID string) ([]model.Notification, error)

	CreateNotificationLog(ctx context.Context, l model.NotificationLog) (*model.NotificationLog, error)
	GetNotificationLogs(ctx context.Context, notificationID string) ([]model.NotificationLog, error)
}

// PreferenceStore persists per-user, per-type channel preferences.
type PreferenceStore interface {
	GetNotificationSettings(ctx context.Context, userID string) ([]model.NotificationSettings, error)
	CreateNotificationSettings(ctx context.Context, s model.NotificationSettings) (*model.NotificationSettings, error)

	// EnsureNotificationSettings inserts s unless a row already exists for
	// (s.UserID, s.NotificationType), and returns the stored row. The bool
	// reports whether this call created it.
	EnsureNotificationSettings(ctx context.Context, s model.NotificationSettings) (*model.NotificationSettings, bool, error)

	UpdateNotificationSettings(ctx context.Context, id string, patch model.NotificationSettingsPatch) (*model.NotificationSettings, error)
}

// EscalationStore persists escalation ladders.
type EscalationStore interface {
	GetEscalationLevels(ctx context.Context) ([]model.EscalationLevel, error)
	GetEscalationLevelsByType(ctx context.Context, t model.TaskType) ([]model.EscalationLevel, error)
	CreateEscalationLevel(ctx context.Context, l model.EscalationLevel) (*model.EscalationLevel, error)
	UpdateEscalationLevel(ctx context.Context, l model.EscalationLevel) (*model.EscalationLevel, error)
	DeleteEscalationLevel(ctx context.Context, id string) error
}

// TemplateStore persists operator message templates.
type TemplateStore interface {
	GetMessageTemplates(ctx context.Context, t *model.TaskType) ([]model.MessageTemplate, error)
	GetMessageTemplate(ctx context.Context, id string) (*model.MessageTemplate, error)
	CreateMessageTemplate(ctx context.Context, t model.MessageTemplate) (*model.MessageTemplate, error)
	UpdateMessageTemplate(ctx context.Context, id string, patch model.MessageTemplatePatch) (*model.MessageTemplate, error)
	DeleteMessageTemplate(ctx context.Context, id string) error
}

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, u model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUsers(ctx context.Context) ([]model.User, error)
}

// Store defines the persistence interface for every entity, plus a
// transactional boundary for multi-row units of work.
type Store interface {
	TaskStore
	NotificationStore
	PreferenceStore
	EscalationStore
	TemplateStore
	UserStore

	// WithTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
