package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/compliance-notifier/internal/model"
)

// EscalationStrategy picks a rung from a ladder sorted by ascending
// threshold.
type EscalationStrategy string

const (
	// StrategyHighest selects the most advanced rung whose threshold has
	// been reached.
	StrategyHighest EscalationStrategy = "highest"

	// StrategyLowest selects the first rung whose threshold has been
	// reached, which is always the lowest one once it qualifies.
	StrategyLowest EscalationStrategy = "lowest"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (EscalationStrategy, error) {
	switch EscalationStrategy(s) {
	case StrategyHighest, StrategyLowest:
		return EscalationStrategy(s), nil
	case "":
		return StrategyHighest, nil
	}
	return "", fmt.Errorf("unknown escalation strategy %q", s)
}

// Select returns the rung to escalate to for a task daysOverdue days late.
func (s EscalationStrategy) Select(ladder []model.EscalationLevel, daysOverdue int) (model.EscalationLevel, bool) {
	sorted := slices.Clone(ladder)
	slices.SortStableFunc(sorted, func(a, b model.EscalationLevel) int {
		return cmp.Compare(a.DaysBeforeEscalation, b.DaysBeforeEscalation)
	})

	var (
		picked model.EscalationLevel
		found  bool
	)
	for _, rung := range sorted {
		if rung.DaysBeforeEscalation > daysOverdue {
			break
		}
		picked, found = rung, true
		if s == StrategyLowest {
			break
		}
	}
	return picked, found
}

// DaysOverdue is the number of whole days between due and now, rounded down.
func DaysOverdue(now, due time.Time) int {
	if now.Before(due) {
		return 0
	}
	return int(now.Sub(due) / (24 * time.Hour))
}

// escalate notifies the selected rung's user about an overdue task and
// links the original notification to the escalation. It returns the
// original as updated and the escalation notification, both nil-safe when
// no rung qualifies.
func (e *Engine) escalate(
	ctx context.Context,
	r Repos,
	now time.Time,
	task model.Task,
	original *model.Notification,
) (*model.Notification, *model.Notification, error) {
	daysOverdue := DaysOverdue(now, task.DueDate)

	ladder, err := r.GetEscalationLevelsByType(ctx, task.Type)
	if err != nil {
		return nil, nil, fmt.Errorf("loading escalation levels for %s: %w", task.Type, err)
	}

	rung, ok := e.strategy.Select(ladder, daysOverdue)
	if !ok {
		return original, nil, nil
	}

	taskID := task.ID
	recipient := rung.UserID
	escalation, err := r.CreateNotification(ctx, model.Notification{
		UserID:  recipient,
		TaskID:  &taskID,
		Title:   "ESCALATION: " + task.Title,
		Message: fmt.Sprintf(
			"Task %q is %d days overdue. This has been escalated to you as level %d escalation contact.",
			task.Title, daysOverdue, rung.Level,
		),
		Type:            model.TaskTypeEscalation,
		Status:          model.NotificationPending,
		Priority:        model.PriorityCritical,
		Channels:        rung.Channels(),
		ScheduledAt:     now,
		EscalationLevel: rung.Level,
		EscalatedTo:     &recipient,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating escalation for task %s: %w", task.ID, err)
	}

	var assignee any
	if task.AssignedTo != nil {
		assignee = *task.AssignedTo
	}
	_, err = r.CreateNotificationLog(ctx, model.NotificationLog{
		NotificationID: escalation.ID,
		UserID:         recipient,
		Status:         model.NotificationSent,
		Channel:        model.ChannelDashboard,
		Metadata: model.Metadata{
			"escalationLevel":      rung.Level,
			"daysOverdue":          daysOverdue,
			"originalTaskAssignee": assignee,
		},
		CreatedAt: now,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logging escalation %s: %w", escalation.ID, err)
	}

	level := rung.Level
	updated, err := r.UpdateNotification(ctx, original.ID, model.NotificationPatch{
		EscalationLevel: &level,
		EscalatedTo:     &recipient,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("linking notification %s to escalation: %w", original.ID, err)
	}

	e.log.WithFields(logrus.Fields{
		"task_id":          task.ID,
		"notification_id":  escalation.ID,
		"escalation_level": rung.Level,
		"escalated_to":     recipient,
		"days_overdue":     daysOverdue,
	}).Info("task escalated")

	return updated, escalation, nil
}
