package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
	"github.com/nhle/compliance-notifier/tests/testutil"
)

func TestTick_EndToEndWithSQLite(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	u1 := testutil.MustCreateUser(t, s, "u1")
	u2 := testutil.MustCreateUser(t, s, "u2")

	task, err := s.CreateTask(ctx, model.Task{
		Title:      "Pay payroll tax",
		Type:       model.TaskTypePayment,
		DueDate:    now.Add(-2 * 24 * time.Hour),
		Priority:   model.PriorityMedium,
		AssignedTo: &u1.ID,
	})
	require.NoError(t, err)

	_, err = s.CreateEscalationLevel(ctx, model.EscalationLevel{
		Level:                1,
		UserID:               u2.ID,
		NotificationType:     model.TaskTypePayment,
		DaysBeforeEscalation: 1,
		EmailEnabled:         true,
		SMSEnabled:           true,
	})
	require.NoError(t, err)

	e, _ := newTestEngine(t, FromStore(s), Options{})
	report, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Overdue)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Escalated)

	settings, err := s.GetNotificationSettings(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, model.TaskTypePayment, settings[0].NotificationType)

	forU1, err := s.GetNotifications(ctx, store.NotificationFilter{UserID: &u1.ID})
	require.NoError(t, err)
	require.Len(t, forU1, 1)
	original := forU1[0]
	assert.Equal(t, model.PriorityHigh, original.Priority)
	assert.ElementsMatch(t,
		[]string{model.ChannelEmail, model.ChannelPush, model.ChannelDashboard},
		[]string(original.Channels),
	)
	assert.Equal(t, 1, original.EscalationLevel)
	require.NotNil(t, original.EscalatedTo)
	assert.Equal(t, u2.ID, *original.EscalatedTo)

	forU2, err := s.GetNotifications(ctx, store.NotificationFilter{UserID: &u2.ID})
	require.NoError(t, err)
	require.Len(t, forU2, 1)
	escalation := forU2[0]
	assert.Equal(t, model.PriorityCritical, escalation.Priority)
	assert.Equal(t, model.TaskTypeEscalation, escalation.Type)
	assert.ElementsMatch(t,
		[]string{model.ChannelEmail, model.ChannelSMS, model.ChannelDashboard},
		[]string(escalation.Channels),
	)

	logs, err := s.GetNotificationLogs(ctx, escalation.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, float64(2), logs[0].Metadata["daysOverdue"])
	assert.Equal(t, u1.ID, logs[0].Metadata["originalTaskAssignee"])

	// Both notifications reference the task, so the next tick is deduped.
	byTask, err := s.GetNotificationsByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, byTask, 2)

	again, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 1, again.Deduped)
}

func TestTick_StatsConsistentWithDueSoonSet(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.MustCreateUser(t, s, "owner")

	offsets := []time.Duration{
		-48 * time.Hour,
		-time.Second,
		0,
		time.Hour,
		7 * 24 * time.Hour,
		7*24*time.Hour + time.Second,
	}
	for _, off := range offsets {
		testutil.MustCreateTask(t, s, "task", model.TaskTypeTask, now.Add(off), &u.ID)
	}

	e, _ := newTestEngine(t, FromStore(s), Options{})
	report, err := e.Tick(ctx)
	require.NoError(t, err)

	stats, err := s.GetTaskStats(ctx, now, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, report.DueSoon, stats.DueSoon)
	assert.Equal(t, report.Overdue, stats.Overdue)
	assert.Equal(t, 3, stats.DueSoon)
	assert.Equal(t, 2, stats.Overdue)
	assert.Equal(t, 6, stats.Total)
}

func TestTick_StatsConsistentWithConfiguredWindow(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.MustCreateUser(t, s, "owner")

	testutil.MustCreateTask(t, s, "in 9 days", model.TaskTypeTask, now.Add(9*24*time.Hour), &u.ID)
	testutil.MustCreateTask(t, s, "in 11 days", model.TaskTypeTask, now.Add(11*24*time.Hour), &u.ID)

	e, _ := newTestEngine(t, FromStore(s), Options{DueSoonDays: 10})
	report, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DueSoon)

	stats, err := s.GetTaskStats(ctx, now, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, report.DueSoon, stats.DueSoon)

	stats, err = s.GetTaskStats(ctx, now, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DueSoon)
}
