package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nhle/compliance-notifier/internal/model"
)

var errInjected = errors.New("injected failure")

// fakeStore is an in-memory Store with injectable failures. InTx restores
// a snapshot when fn fails, so rollback is observable.
type fakeStore struct {
	mu sync.Mutex

	tasks         []model.Task
	notifications []model.Notification
	logs          []model.NotificationLog
	settings      []model.NotificationSettings
	levels        []model.EscalationLevel

	failLookupFor map[string]bool
	failDueSoon   bool
	failUpdate    bool

	seq int
}

func newFakeStore() *fakeStore {
	return &fakeStore{failLookupFor: map[string]bool{}}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) GetTasksDueSoon(_ context.Context, now time.Time, days int) ([]model.Task, error) {
	if f.failDueSoon {
		return nil, errInjected
	}
	var out []model.Task
	for _, t := range f.tasks {
		if t.IsDueSoon(now, days) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOverdueTasks(_ context.Context, now time.Time) ([]model.Task, error) {
	var out []model.Task
	for _, t := range f.tasks {
		if t.IsOverdue(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) InTx(_ context.Context, fn func(r Repos) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	notifications := slices.Clone(f.notifications)
	logs := slices.Clone(f.logs)
	settings := slices.Clone(f.settings)

	if err := fn(f); err != nil {
		f.notifications, f.logs, f.settings = notifications, logs, settings
		return err
	}
	return nil
}

func (f *fakeStore) GetNotificationsByTask(_ context.Context, taskID string) ([]model.Notification, error) {
	if f.failLookupFor[taskID] {
		return nil, errInjected
	}
	var out []model.Notification
	for _, n := range f.notifications {
		if n.TaskID != nil && *n.TaskID == taskID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) GetNotificationSettings(_ context.Context, userID string) ([]model.NotificationSettings, error) {
	var out []model.NotificationSettings
	for _, s := range f.settings {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) EnsureNotificationSettings(
	_ context.Context,
	s model.NotificationSettings,
) (*model.NotificationSettings, bool, error) {
	for _, existing := range f.settings {
		if existing.UserID == s.UserID && existing.NotificationType == s.NotificationType {
			return &existing, false, nil
		}
	}
	s.ID = f.nextID("settings")
	f.settings = append(f.settings, s)
	return &s, true, nil
}

func (f *fakeStore) CreateNotification(_ context.Context, n model.Notification) (*model.Notification, error) {
	n.ID = f.nextID("notification")
	f.notifications = append(f.notifications, n)
	return &n, nil
}

func (f *fakeStore) UpdateNotification(
	_ context.Context,
	id string,
	patch model.NotificationPatch,
) (*model.Notification, error) {
	if f.failUpdate {
		return nil, errInjected
	}
	for i := range f.notifications {
		n := &f.notifications[i]
		if n.ID != id {
			continue
		}
		if patch.Status != nil {
			n.Status = *patch.Status
		}
		if patch.EscalationLevel != nil {
			n.EscalationLevel = *patch.EscalationLevel
		}
		if patch.EscalatedTo != nil {
			n.EscalatedTo = patch.EscalatedTo
		}
		out := *n
		return &out, nil
	}
	return nil, fmt.Errorf("notification %s not found", id)
}

func (f *fakeStore) CreateNotificationLog(_ context.Context, l model.NotificationLog) (*model.NotificationLog, error) {
	l.ID = f.nextID("log")
	f.logs = append(f.logs, l)
	return &l, nil
}

func (f *fakeStore) GetEscalationLevelsByType(_ context.Context, t model.TaskType) ([]model.EscalationLevel, error) {
	var out []model.EscalationLevel
	for _, l := range f.levels {
		if l.NotificationType == t {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) notificationsFor(userID string) []model.Notification {
	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// recordingPublisher collects published notifications.
type recordingPublisher struct {
	published []model.Notification
	err       error
}

func (p *recordingPublisher) PublishNotification(_ context.Context, n model.Notification) error {
	p.published = append(p.published, n)
	return p.err
}
