package engine

import (
	"context"
	"time"

	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
)

// Repos is the set of store operations used while processing one task.
// Inside a tick it is always bound to the task's transaction.
type Repos interface {
	GetNotificationsByTask(ctx context.Context, taskID string) ([]model.Notification, error)
	GetNotificationSettings(ctx context.Context, userID string) ([]model.NotificationSettings, error)
	EnsureNotificationSettings(ctx context.Context, s model.NotificationSettings) (*model.NotificationSettings, bool, error)
	CreateNotification(ctx context.Context, n model.Notification) (*model.Notification, error)
	UpdateNotification(ctx context.Context, id string, patch model.NotificationPatch) (*model.Notification, error)
	CreateNotificationLog(ctx context.Context, l model.NotificationLog) (*model.NotificationLog, error)
	GetEscalationLevelsByType(ctx context.Context, t model.TaskType) ([]model.EscalationLevel, error)
}

// Store is what the engine needs from persistence: the two task sets and a
// transactional unit of work per task.
type Store interface {
	GetTasksDueSoon(ctx context.Context, now time.Time, days int) ([]model.Task, error)
	GetOverdueTasks(ctx context.Context, now time.Time) ([]model.Task, error)
	InTx(ctx context.Context, fn func(r Repos) error) error
}

// Publisher receives every notification the engine created, after the
// transaction that created it has committed.
type Publisher interface {
	PublishNotification(ctx context.Context, n model.Notification) error
}

// sqlStore adapts a store.Store to the engine's Store.
type sqlStore struct {
	store.Store
}

// FromStore wraps s so that each task is processed in one transaction.
func FromStore(s store.Store) Store {
	return sqlStore{Store: s}
}

func (s sqlStore) InTx(ctx context.Context, fn func(r Repos) error) error {
	return s.WithTx(ctx, func(tx store.Store) error {
		return fn(tx)
	})
}
