package store_test

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

func newInboxNotification(t *testing.T, s *store.SQLStore) *model.Notification {
	t.Helper()
	u := testutil.MustCreateUser(t, s, "reader")
	n, err := s.CreateNotification(context.Background(), model.Notification{
		UserID:  u.ID,
		Title:   "Payment Due Soon - Rent",
		Message: "Rent is due on 3/12/2026.",
		Type:    model.TaskTypePayment,
	})
	require.NoError(t, err)
	return n
}

func TestMarkNotificationRead(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	n := newInboxNotification(t, s)

	read, err := store.MarkNotificationRead(ctx, s, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationRead, read.Status)
	require.NotNil(t, read.ReadAt)
	require.NotNil(t, read.SentAt)

	// Marking again changes nothing and writes no second entry.
	again, err := store.MarkNotificationRead(ctx, s, n.ID)
	require.NoError(t, err)
	assert.Equal(t, read.ReadAt.Unix(), again.ReadAt.Unix())

	logs, err := s.GetNotificationLogs(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.NotificationRead, logs[0].Status)
	assert.Equal(t, model.ChannelDashboard, logs[0].Channel)
}

func TestMarkNotificationActioned_RecordsActionType(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	n := newInboxNotification(t, s)

	actioned, err := store.MarkNotificationActioned(ctx, s, n.ID, "paid")
	require.NoError(t, err)
	assert.Equal(t, model.NotificationActioned, actioned.Status)
	require.NotNil(t, actioned.ActionedAt)
	require.NotNil(t, actioned.ReadAt)
	assert.WithinDuration(t, time.Now(), *actioned.ActionedAt, time.Minute)

	logs, err := s.GetNotificationLogs(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "paid", logs[0].Metadata["actionType"])
}

func TestDismissNotification_IsTerminal(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	n := newInboxNotification(t, s)

	dismissed, err := store.DismissNotification(ctx, s, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationDismissed, dismissed.Status)

	_, err = store.MarkNotificationRead(ctx, s, n.ID)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	logs, err := s.GetNotificationLogs(ctx, n.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestMarkNotificationRead_AfterActionedFails(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	n := newInboxNotification(t, s)

	_, err := store.MarkNotificationActioned(ctx, s, n.ID, "")
	require.NoError(t, err)

	_, err = store.MarkNotificationRead(ctx, s, n.ID)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestMarkNotificationRead_NotFound(t *testing.T) {
	s := testutil.NewTestStore(t)
	_, err := store.MarkNotificationRead(context.Background(), s, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
