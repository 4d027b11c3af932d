package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
)

type taskRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description"`
	Type        model.TaskType   `json:"type" binding:"required,oneof=statutory payment task"`
	DueDate     time.Time        `json:"due_date" binding:"required"`
	Status      model.TaskStatus `json:"status" binding:"omitempty,oneof=pending in_progress completed overdue"`
	Priority    model.Priority   `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	Amount      *int64           `json:"amount" binding:"omitempty,min=0"`
	AssignedTo  *string          `json:"assigned_to"`
}

func (r taskRequest) apply(t *model.Task) {
	t.Title = r.Title
	t.Description = r.Description
	t.Type = r.Type
	t.DueDate = r.DueDate
	if r.Status != "" {
		t.Status = r.Status
	}
	if r.Priority != "" {
		t.Priority = r.Priority
	}
	t.Amount = r.Amount
	t.AssignedTo = r.AssignedTo
}

// pagination reads limit and offset query parameters.
func pagination(c *gin.Context) (int, int, error) {
	var limit, offset int
	var err error
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("invalid limit %q", v)
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
	}
	return limit, offset, nil
}

// scopedUser returns the user whose records the caller asked for. Admins
// may name anyone through ?user_id= or see everything; others only
// themselves.
func scopedUser(c *gin.Context) *string {
	p := currentPrincipal(c)
	if p.admin() {
		if id := c.Query("user_id"); id != "" {
			return &id
		}
		return nil
	}
	id := p.UserID
	return &id
}

func (h *Handler) ListTasks(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	filter := store.TaskFilter{AssignedTo: scopedUser(c), Limit: limit, Offset: offset}
	if v := c.Query("type"); v != "" {
		t := model.TaskType(v)
		filter.Type = &t
	}
	if v := c.Query("status"); v != "" {
		s := model.TaskStatus(v)
		filter.Status = &s
	}
	if v := c.Query("priority"); v != "" {
		p := model.Priority(v)
		filter.Priority = &p
	}

	tasks, err := h.store.GetTasks(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// loadTask fetches a task the caller may see. Others' tasks read as missing.
func (h *Handler) loadTask(c *gin.Context) (*model.Task, bool) {
	task, err := h.store.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if !currentPrincipal(c).owns(task.AssignedTo) {
		h.respondError(c, fmt.Errorf("task %s: %w", task.ID, store.ErrNotFound))
		return nil, false
	}
	return task, true
}

// checkAssignee enforces that non-admins only assign to themselves and that
// the assignee exists.
func (h *Handler) checkAssignee(c *gin.Context, assignee *string) error {
	p := currentPrincipal(c)
	if assignee == nil {
		return nil
	}
	if !p.admin() && *assignee != p.UserID {
		return fmt.Errorf("assigning to another user: %w", errForbidden)
	}
	if _, err := h.store.GetUser(c.Request.Context(), *assignee); err != nil {
		return fmt.Errorf("assignee: %w", model.ErrMissingUser)
	}
	return nil
}

func (h *Handler) CreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p := currentPrincipal(c)
	if req.AssignedTo == nil && !p.admin() {
		req.AssignedTo = &p.UserID
	}
	if err := h.checkAssignee(c, req.AssignedTo); err != nil {
		h.respondError(c, err)
		return
	}

	var task model.Task
	req.apply(&task)
	task.CreatedBy = &p.UserID

	created, err := h.store.CreateTask(c.Request.Context(), task)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.stats.Invalidate(c.Request.Context(), created.AssignedTo)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetTask(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) UpdateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	previous := task.AssignedTo

	if p := currentPrincipal(c); req.AssignedTo == nil && !p.admin() {
		req.AssignedTo = &p.UserID
	}
	if err := h.checkAssignee(c, req.AssignedTo); err != nil {
		h.respondError(c, err)
		return
	}
	req.apply(task)

	updated, err := h.store.UpdateTask(c.Request.Context(), *task)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.stats.Invalidate(c.Request.Context(), previous, updated.AssignedTo)
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteTask(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	if err := h.store.DeleteTask(c.Request.Context(), task.ID); err != nil {
		h.respondError(c, err)
		return
	}
	h.stats.Invalidate(c.Request.Context(), task.AssignedTo)
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListTaskNotifications(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	notifications, err := h.store.GetNotificationsByTask(c.Request.Context(), task.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// An assignee does not see escalations sent to their managers.
	p := currentPrincipal(c)
	visible := notifications[:0]
	for _, n := range notifications {
		if p.admin() || n.UserID == p.UserID {
			visible = append(visible, n)
		}
	}
	c.JSON(http.StatusOK, visible)
}

// DashboardStats returns task counts for the caller, or for everyone when
// an admin asks without ?user_id=.
func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.stats.Get(c.Request.Context(), h.now(), scopedUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
