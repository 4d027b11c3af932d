package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/compliance-notifier/internal/model"
)

// Outcome describes what ProcessTask did for one task.
type Outcome struct {
	// Deduped is set when a recent unactioned notification suppressed this one.
	Deduped bool

	// Unassigned is set when the task has no owner to notify.
	Unassigned bool

	// SettingsCreated is set when default settings were written for the owner.
	SettingsCreated bool

	// Notification is the reminder or overdue notice, as last stored.
	Notification *model.Notification

	// Escalation is the notification sent up the ladder, if any.
	Escalation *model.Notification
}

// ProcessTask applies the dedup check, resolves channels, creates and logs
// a notification, and escalates when pass is PassOverdue. All writes for
// the task happen in one transaction; created notifications are published
// after it commits.
func (e *Engine) ProcessTask(ctx context.Context, now time.Time, task model.Task, pass Pass) (Outcome, error) {
	var out Outcome
	log := e.log.WithFields(logrus.Fields{"task_id": task.ID, "pass": pass})

	err := e.store.InTx(ctx, func(r Repos) error {
		out = Outcome{}

		existing, err := r.GetNotificationsByTask(ctx, task.ID)
		if err != nil {
			return fmt.Errorf("loading notifications for task %s: %w", task.ID, err)
		}
		if e.recentlyNotified(now, existing) {
			out.Deduped = true
			return nil
		}

		if task.AssignedTo == nil || *task.AssignedTo == "" {
			out.Unassigned = true
			return nil
		}
		userID := *task.AssignedTo

		settings, created, err := e.resolveSettings(ctx, r, userID, task.Type)
		if err != nil {
			return err
		}
		out.SettingsCreated = created

		title, message, priority := e.content(task, pass)
		taskID := task.ID
		n, err := r.CreateNotification(ctx, model.Notification{
			UserID:      userID,
			TaskID:      &taskID,
			Title:       title,
			Message:     message,
			Type:        task.Type,
			Status:      model.NotificationPending,
			Priority:    priority,
			Channels:    settings.Channels(),
			ScheduledAt: now,
			CreatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("creating notification for task %s: %w", task.ID, err)
		}

		_, err = r.CreateNotificationLog(ctx, model.NotificationLog{
			NotificationID: n.ID,
			UserID:         userID,
			Status:         model.NotificationSent,
			Channel:        model.ChannelDashboard,
			CreatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("logging notification %s: %w", n.ID, err)
		}
		out.Notification = n

		if pass == PassOverdue {
			original, escalation, err := e.escalate(ctx, r, now, task, n)
			if err != nil {
				return err
			}
			out.Notification = original
			out.Escalation = escalation
		}

		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	switch {
	case out.Deduped:
		log.Debug("task notified recently, skipping")
	case out.Unassigned:
		log.Warn("task has no assignee, skipping notification")
	}

	e.publish(ctx, out.Notification)
	e.publish(ctx, out.Escalation)

	return out, nil
}

// recentlyNotified reports whether any notification younger than the dedup
// window is still unactioned.
func (e *Engine) recentlyNotified(now time.Time, existing []model.Notification) bool {
	for _, n := range existing {
		if now.Sub(n.CreatedAt) < e.dedupWindow && n.Status != model.NotificationActioned {
			return true
		}
	}
	return false
}

// resolveSettings returns the user's settings for t, writing the defaults
// first if the user has none.
func (e *Engine) resolveSettings(
	ctx context.Context,
	r Repos,
	userID string,
	t model.TaskType,
) (model.NotificationSettings, bool, error) {
	all, err := r.GetNotificationSettings(ctx, userID)
	if err != nil {
		return model.NotificationSettings{}, false, fmt.Errorf("loading settings for user %s: %w", userID, err)
	}
	for _, s := range all {
		if s.NotificationType == t {
			return s, false, nil
		}
	}

	stored, created, err := r.EnsureNotificationSettings(ctx, model.DefaultNotificationSettings(userID, t))
	if err != nil {
		return model.NotificationSettings{}, false, fmt.Errorf("creating default settings for user %s: %w", userID, err)
	}
	if created {
		e.log.WithFields(logrus.Fields{"user_id": userID, "type": t}).Info("created default notification settings")
	}
	return *stored, created, nil
}

// content builds the title, message and priority of a task notification.
func (e *Engine) content(task model.Task, pass Pass) (string, string, model.Priority) {
	due := task.DueDate.UTC().Format(e.dateLayout)

	if pass == PassOverdue {
		title := "OVERDUE: " + task.Title
		message := fmt.Sprintf("%s was due on %s and is now overdue. %s", task.Title, due, task.Description)
		return title, strings.TrimSpace(message), model.PriorityHigh
	}

	title := task.Type.Label() + " - " + task.Title
	message := fmt.Sprintf("%s is due on %s. %s", task.Title, due, task.Description)
	return title, strings.TrimSpace(message), task.Priority
}

func (e *Engine) publish(ctx context.Context, n *model.Notification) {
	if n == nil || e.publisher == nil {
		return
	}
	if err := e.publisher.PublishNotification(ctx, *n); err != nil {
		e.log.WithError(err).WithField("notification_id", n.ID).Warn("publishing notification event failed")
	}
}
