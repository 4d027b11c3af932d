package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/compliance-notifier/internal/engine"
	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/scheduler"
	"github.com/nhle/compliance-notifier/internal/store"
	"github.com/nhle/compliance-notifier/tests/testutil"
)

var (
	secret  = []byte("test-secret")
	fixedAt = time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
)

type fakeScheduler struct {
	runs int
}

func (f *fakeScheduler) Status() scheduler.Status {
	return scheduler.Status{StateName: "idle", Running: true, Schedule: "@every 1h"}
}

func (f *fakeScheduler) RunNow(context.Context) (engine.Report, error) {
	f.runs++
	return engine.Report{StartedAt: fixedAt, Created: 3}, nil
}

type env struct {
	t      *testing.T
	store  *store.SQLStore
	router *gin.Engine
	sched  *fakeScheduler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := testutil.NewTestStore(t)
	log, _ := logtest.NewNullLogger()
	sched := &fakeScheduler{}
	router := NewRouter(Options{
		Store:     s,
		Scheduler: sched,
		Secret:    secret,
		Now:       func() time.Time { return fixedAt },
		Logger:    log,
	})
	return &env{t: t, store: s, router: router, sched: sched}
}

func (e *env) user(username string, role model.Role) (*model.User, string) {
	e.t.Helper()
	u, err := e.store.CreateUser(context.Background(), model.User{
		Username: username,
		Email:    username + "@example.com",
		FullName: username,
		Role:     role,
	})
	require.NoError(e.t, err)
	token, err := IssueToken(secret, u.ID, u.Role, time.Hour, time.Now())
	require.NoError(e.t, err)
	return u, token
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth_Unauthenticated(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.NotNil(t, body["scheduler"])
}

func TestAuthenticate(t *testing.T) {
	e := newEnv(t)
	_, token := e.user("alice", model.RoleUser)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/v1/tasks", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/v1/tasks", "garbage", nil).Code)

	other, err := IssueToken([]byte("other-secret"), "x", model.RoleAdmin, time.Hour, time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/v1/tasks", other, nil).Code)

	expired, err := IssueToken(secret, "x", model.RoleUser, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/v1/tasks", expired, nil).Code)

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v1/tasks", token, nil).Code)
}

func TestIssueToken_EmptySecret(t *testing.T) {
	_, err := IssueToken(nil, "u", model.RoleUser, time.Hour, time.Now())
	assert.Error(t, err)
}

func TestTasks_OwnershipScoping(t *testing.T) {
	e := newEnv(t)
	alice, aliceTok := e.user("alice", model.RoleUser)
	bob, bobTok := e.user("bob", model.RoleUser)
	_, adminTok := e.user("root", model.RoleAdmin)

	w := e.do(http.MethodPost, "/api/v1/tasks", aliceTok, map[string]any{
		"title":    "File annual return",
		"type":     "statutory",
		"due_date": fixedAt.Add(72 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[model.Task](t, w)
	require.NotNil(t, task.AssignedTo)
	assert.Equal(t, alice.ID, *task.AssignedTo)
	assert.Equal(t, model.TaskStatusPending, task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/v1/tasks/"+task.ID, bobTok, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/v1/tasks/"+task.ID, adminTok, nil).Code)

	bobList := decode[[]model.Task](t, e.do(http.MethodGet, "/api/v1/tasks", bobTok, nil))
	assert.Empty(t, bobList)
	adminList := decode[[]model.Task](t, e.do(http.MethodGet, "/api/v1/tasks", adminTok, nil))
	assert.Len(t, adminList, 1)

	w = e.do(http.MethodPost, "/api/v1/tasks", aliceTok, map[string]any{
		"title":       "Sneaky",
		"type":        "task",
		"due_date":    fixedAt,
		"assigned_to": bob.ID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/v1/tasks/"+task.ID, bobTok, nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/v1/tasks/"+task.ID, aliceTok, nil).Code)
}

func TestTasks_Validation(t *testing.T) {
	e := newEnv(t)
	_, tok := e.user("alice", model.RoleUser)
	_, adminTok := e.user("root", model.RoleAdmin)

	w := e.do(http.MethodPost, "/api/v1/tasks", tok, map[string]any{"type": "task", "due_date": fixedAt})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/v1/tasks", tok, map[string]any{"title": "x", "type": "bogus", "due_date": fixedAt})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/v1/tasks", adminTok, map[string]any{
		"title": "x", "type": "task", "due_date": fixedAt, "assigned_to": "nobody",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/v1/tasks?limit=-1", tok, nil).Code)
}

func TestTasks_Update(t *testing.T) {
	e := newEnv(t)
	alice, tok := e.user("alice", model.RoleUser)
	task := testutil.MustCreateTask(t, e.store, "Pay rent", model.TaskTypePayment, fixedAt, &alice.ID)

	w := e.do(http.MethodPut, "/api/v1/tasks/"+task.ID, tok, map[string]any{
		"title":    "Pay rent",
		"type":     "payment",
		"due_date": fixedAt,
		"status":   "completed",
		"amount":   1200,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[model.Task](t, w)
	assert.Equal(t, model.TaskStatusCompleted, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, alice.ID, *updated.AssignedTo)
	require.NotNil(t, updated.Amount)
	assert.Equal(t, int64(1200), *updated.Amount)
}

func TestDashboardStats(t *testing.T) {
	e := newEnv(t)
	alice, tok := e.user("alice", model.RoleUser)
	bob, _ := e.user("bob", model.RoleUser)
	_, adminTok := e.user("root", model.RoleAdmin)

	testutil.MustCreateTask(t, e.store, "soon", model.TaskTypeTask, fixedAt.Add(24*time.Hour), &alice.ID)
	testutil.MustCreateTask(t, e.store, "late", model.TaskTypeTask, fixedAt.Add(-24*time.Hour), &alice.ID)
	testutil.MustCreateTask(t, e.store, "bob's", model.TaskTypeTask, fixedAt.Add(-24*time.Hour), &bob.ID)

	stats := decode[model.TaskStats](t, e.do(http.MethodGet, "/api/v1/dashboard/stats", tok, nil))
	assert.Equal(t, model.TaskStats{Total: 2, DueSoon: 1, Overdue: 1}, stats)

	// A non-admin cannot widen the scope.
	stats = decode[model.TaskStats](t, e.do(http.MethodGet, "/api/v1/dashboard/stats?user_id="+bob.ID, tok, nil))
	assert.Equal(t, 2, stats.Total)

	stats = decode[model.TaskStats](t, e.do(http.MethodGet, "/api/v1/dashboard/stats", adminTok, nil))
	assert.Equal(t, model.TaskStats{Total: 3, DueSoon: 1, Overdue: 2}, stats)
}

func TestNotifications_Lifecycle(t *testing.T) {
	e := newEnv(t)
	alice, tok := e.user("alice", model.RoleUser)
	_, bobTok := e.user("bob", model.RoleUser)

	n, err := e.store.CreateNotification(context.Background(), model.Notification{
		UserID:  alice.ID,
		Title:   "Task Due Soon - Audit",
		Message: "Audit is due on 3/12/2026.",
		Type:    model.TaskTypeTask,
	})
	require.NoError(t, err)

	list := decode[[]model.Notification](t, e.do(http.MethodGet, "/api/v1/notifications", tok, nil))
	require.Len(t, list, 1)
	assert.Empty(t, decode[[]model.Notification](t, e.do(http.MethodGet, "/api/v1/notifications", bobTok, nil)))

	base := "/api/v1/notifications/" + n.ID
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, base+"/read", bobTok, nil).Code)

	w := e.do(http.MethodPost, base+"/read", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.NotificationRead, decode[model.Notification](t, w).Status)

	w = e.do(http.MethodPost, base+"/action", tok, map[string]string{"action_type": "filed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.NotificationActioned, decode[model.Notification](t, w).Status)

	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, base+"/dismiss", tok, nil).Code)

	logs := decode[[]model.NotificationLog](t, e.do(http.MethodGet, base+"/logs", tok, nil))
	require.Len(t, logs, 2)
	assert.Equal(t, model.NotificationRead, logs[0].Status)
	assert.Equal(t, "filed", logs[1].Metadata["actionType"])

	filtered := decode[[]model.Notification](t, e.do(http.MethodGet, "/api/v1/notifications?status=actioned", tok, nil))
	assert.Len(t, filtered, 1)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/v1/notifications?status=lost", tok, nil).Code)
}

func TestSettings(t *testing.T) {
	e := newEnv(t)
	alice, tok := e.user("alice", model.RoleUser)
	_, bobTok := e.user("bob", model.RoleUser)

	w := e.do(http.MethodPost, "/api/v1/settings", tok, map[string]any{
		"notification_type": "payment",
		"sms_enabled":       true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.NotificationSettings](t, w)
	assert.Equal(t, alice.ID, created.UserID)
	assert.True(t, created.EmailEnabled)
	assert.True(t, created.SMSEnabled)
	assert.Equal(t, 7, created.ReminderDays)

	w = e.do(http.MethodPost, "/api/v1/settings", tok, map[string]any{"notification_type": "payment"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPost, "/api/v1/settings", bobTok, map[string]any{
		"notification_type": "payment",
		"user_id":           alice.ID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, http.StatusNotFound,
		e.do(http.MethodPut, "/api/v1/settings/"+created.ID, bobTok, map[string]any{"push_enabled": false}).Code)

	w = e.do(http.MethodPut, "/api/v1/settings/"+created.ID, tok, map[string]any{"push_enabled": false, "reminder_days": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[model.NotificationSettings](t, w)
	assert.False(t, updated.PushEnabled)
	assert.Equal(t, 3, updated.ReminderDays)

	list := decode[[]model.NotificationSettings](t, e.do(http.MethodGet, "/api/v1/settings", tok, nil))
	assert.Len(t, list, 1)
}

func TestEscalationLevels_AdminWrites(t *testing.T) {
	e := newEnv(t)
	_, tok := e.user("alice", model.RoleUser)
	boss, adminTok := e.user("root", model.RoleAdmin)

	body := map[string]any{
		"level":                  1,
		"user_id":                boss.ID,
		"notification_type":      "payment",
		"days_before_escalation": 2,
	}
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/v1/escalation-levels", tok, body).Code)

	w := e.do(http.MethodPost, "/api/v1/escalation-levels", adminTok, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	level := decode[model.EscalationLevel](t, w)
	assert.True(t, level.SMSEnabled)
	assert.False(t, level.WhatsAppEnabled)

	body["days_before_escalation"] = 5
	w = e.do(http.MethodPut, "/api/v1/escalation-levels/"+level.ID, adminTok, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 5, decode[model.EscalationLevel](t, w).DaysBeforeEscalation)

	list := decode[[]model.EscalationLevel](t, e.do(http.MethodGet, "/api/v1/escalation-levels?type=payment", tok, nil))
	assert.Len(t, list, 1)

	body["user_id"] = "ghost"
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/v1/escalation-levels", adminTok, body).Code)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/v1/escalation-levels/"+level.ID, adminTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/v1/escalation-levels/"+level.ID, adminTok, nil).Code)
}

func TestMessageTemplates_AdminWrites(t *testing.T) {
	e := newEnv(t)
	_, tok := e.user("alice", model.RoleUser)
	root, adminTok := e.user("root", model.RoleAdmin)

	body := map[string]any{
		"name":     "Payment reminder",
		"type":     "payment",
		"template": "Please settle {{task}} before {{due}}.",
	}
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/v1/message-templates", tok, body).Code)

	w := e.do(http.MethodPost, "/api/v1/message-templates", adminTok, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tmpl := decode[model.MessageTemplate](t, w)
	require.NotNil(t, tmpl.CreatedBy)
	assert.Equal(t, root.ID, *tmpl.CreatedBy)

	_, err := e.store.CreateMessageTemplate(context.Background(), model.MessageTemplate{
		Name: "Annual filing", Type: model.TaskTypeStatutory, Template: "File it.",
	})
	require.NoError(t, err)

	all := decode[[]model.MessageTemplate](t, e.do(http.MethodGet, "/api/v1/message-templates", tok, nil))
	require.Len(t, all, 2)
	assert.Equal(t, "Annual filing", all[0].Name)

	payments := decode[[]model.MessageTemplate](t, e.do(http.MethodGet, "/api/v1/message-templates?type=payment", tok, nil))
	require.Len(t, payments, 1)
	assert.Equal(t, tmpl.ID, payments[0].ID)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/v1/message-templates?type=memo", tok, nil).Code)

	w = e.do(http.MethodPut, "/api/v1/message-templates/"+tmpl.ID, adminTok, map[string]any{"template": "Pay now."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[model.MessageTemplate](t, w)
	assert.Equal(t, "Pay now.", updated.Template)
	assert.Equal(t, "Payment reminder", updated.Name)
	require.NotNil(t, updated.CreatedBy)
	assert.Equal(t, root.ID, *updated.CreatedBy)

	w = e.do(http.MethodPut, "/api/v1/message-templates/"+tmpl.ID, adminTok, map[string]any{"template": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	delete(body, "template")
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/v1/message-templates", adminTok, body).Code)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodDelete, "/api/v1/message-templates/"+tmpl.ID, tok, nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/v1/message-templates/"+tmpl.ID, adminTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/api/v1/message-templates/"+tmpl.ID, adminTok, map[string]any{"name": "x"}).Code)
}

func TestUsers(t *testing.T) {
	e := newEnv(t)
	alice, tok := e.user("alice", model.RoleUser)
	_, adminTok := e.user("root", model.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/v1/users", tok, nil).Code)
	users := decode[[]model.User](t, e.do(http.MethodGet, "/api/v1/users", adminTok, nil))
	assert.Len(t, users, 2)

	me := decode[model.User](t, e.do(http.MethodGet, "/api/v1/users/me", tok, nil))
	assert.Equal(t, alice.ID, me.ID)
}

func TestScheduler_AdminOnly(t *testing.T) {
	e := newEnv(t)
	_, tok := e.user("alice", model.RoleUser)
	_, adminTok := e.user("root", model.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/v1/scheduler/run", tok, nil).Code)

	w := e.do(http.MethodPost, "/api/v1/scheduler/run", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[engine.Report](t, w).Created)
	assert.Equal(t, 1, e.sched.runs)

	status := decode[map[string]any](t, e.do(http.MethodGet, "/api/v1/scheduler", adminTok, nil))
	assert.Equal(t, "idle", status["state"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrInvalidTransition, http.StatusConflict},
		{store.ErrConflict, http.StatusConflict},
		{model.ErrInvalidPriority, http.StatusBadRequest},
		{model.ErrEmptyTemplate, http.StatusBadRequest},
		{errForbidden, http.StatusForbidden},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
