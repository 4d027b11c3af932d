package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/compliance-notifier/internal/engine"
	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
	"github.com/nhle/compliance-notifier/tests/testutil"
)

var now = time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func setup(t *testing.T) (*store.SQLStore, *model.User, Model) {
	t.Helper()
	s := testutil.NewTestStore(t)
	u := testutil.MustCreateUser(t, s, "owner")
	testutil.MustCreateTask(t, s, "Pay VAT", model.TaskTypePayment, now.Add(48*time.Hour), &u.ID)
	testutil.MustCreateTask(t, s, "File return", model.TaskTypeStatutory, now.Add(-48*time.Hour), &u.ID)

	_, err := s.CreateNotification(context.Background(), model.Notification{
		UserID:    u.ID,
		Title:     "Payment Due Soon - Pay VAT",
		Message:   "Pay VAT is due on 3/7/2026.",
		Type:      model.TaskTypePayment,
		CreatedAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)

	m := New(s, Options{UserID: &u.ID, Now: func() time.Time { return now }})
	return s, u, m
}

// drive feeds msg to m and then the message produced by the returned
// command, which is enough for the synchronous loads used here.
func drive(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func TestLoad_PopulatesStatsAndList(t *testing.T) {
	_, _, m := setup(t)

	msg := m.load()()
	loaded, ok := msg.(DataLoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.Equal(t, model.TaskStats{Total: 2, DueSoon: 1, Overdue: 1}, loaded.Stats)

	next, _ := m.Update(loaded)
	m = next.(Model)
	assert.Len(t, m.list.Items(), 1)
	assert.Equal(t, now, m.loaded)

	view := m.View()
	assert.Contains(t, view, "Compliance Notifications")
	assert.Contains(t, view, "Overdue")
	assert.Contains(t, view, "Payment Due Soon - Pay VAT")
}

func TestActions_AdvanceSelectedNotification(t *testing.T) {
	s, u, m := setup(t)
	next, _ := m.Update(m.load()())
	m = next.(Model)

	m, msg := drive(t, m, keyPress("a"))
	done, ok := msg.(ActionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)
	assert.Equal(t, "marked actioned", done.Verb)

	list, err := s.GetNotifications(context.Background(), store.NotificationFilter{UserID: &u.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.NotificationActioned, list[0].Status)

	// A second action on a terminal notification surfaces the error.
	next, _ = m.Update(m.load()())
	m = next.(Model)
	_, msg = drive(t, m, keyPress("d"))
	done = msg.(ActionDoneMsg)
	assert.ErrorIs(t, done.Err, store.ErrInvalidTransition)

	next, _ = m.Update(done)
	m = next.(Model)
	assert.Contains(t, m.View(), "invalid status transition")
}

func TestCycleFilter(t *testing.T) {
	_, _, m := setup(t)

	m, msg := drive(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, m.filter)
	loaded := msg.(DataLoadedMsg)
	assert.Len(t, loaded.Notifications, 1)

	m, msg = drive(t, m, tea.KeyMsg{Type: tea.KeyTab})
	loaded = msg.(DataLoadedMsg)
	assert.Empty(t, loaded.Notifications)

	next, _ := m.Update(loaded)
	assert.Contains(t, next.View(), "No sent notifications.")
}

func TestRunTick(t *testing.T) {
	_, _, m := setup(t)
	_, msg := drive(t, m, keyPress("t"))
	assert.Nil(t, msg)

	calls := 0
	m.opts.Tick = func(context.Context) (engine.Report, error) {
		calls++
		return engine.Report{Created: 2, Escalated: 1}, nil
	}
	m, msg = drive(t, m, keyPress("t"))
	require.Equal(t, 1, calls)

	next, _ := m.Update(msg)
	assert.Contains(t, next.(Model).message, "2 created, 1 escalated")

	m.opts.Tick = func(context.Context) (engine.Report, error) {
		return engine.Report{}, errors.New("db locked")
	}
	m, msg = drive(t, m, keyPress("t"))
	next, _ = m.Update(msg)
	assert.EqualError(t, next.(Model).err, "db locked")
}

func TestQuit(t *testing.T) {
	_, _, m := setup(t)
	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{2 * 24 * time.Hour, "2d ago"},
		{15 * 24 * time.Hour, "2w ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relativeTime(now, now.Add(-tt.ago)))
	}
	assert.Empty(t, relativeTime(now, time.Time{}))
}
