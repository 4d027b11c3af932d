package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
)

type actionRequest struct {
	ActionType string `json:"action_type" binding:"max=64"`
}

func (h *Handler) ListNotifications(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	filter := store.NotificationFilter{UserID: scopedUser(c), Limit: limit, Offset: offset}
	if v := c.Query("type"); v != "" {
		t := model.TaskType(v)
		filter.Type = &t
	}
	if v := c.Query("status"); v != "" {
		s := model.NotificationStatus(v)
		if !s.Valid() {
			badRequest(c, fmt.Errorf("status %q: %w", v, model.ErrInvalidStatus))
			return
		}
		filter.Status = &s
	}

	notifications, err := h.store.GetNotifications(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *Handler) loadNotification(c *gin.Context) (*model.Notification, bool) {
	n, err := h.store.GetNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if !currentPrincipal(c).owns(&n.UserID) {
		h.respondError(c, fmt.Errorf("notification %s: %w", n.ID, store.ErrNotFound))
		return nil, false
	}
	return n, true
}

func (h *Handler) GetNotification(c *gin.Context) {
	n, ok := h.loadNotification(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) MarkRead(c *gin.Context) {
	h.transition(c, func(ctx context.Context, id string) (*model.Notification, error) {
		return store.MarkNotificationRead(ctx, h.store, id)
	})
}

func (h *Handler) MarkActioned(c *gin.Context) {
	var req actionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	h.transition(c, func(ctx context.Context, id string) (*model.Notification, error) {
		return store.MarkNotificationActioned(ctx, h.store, id, req.ActionType)
	})
}

func (h *Handler) Dismiss(c *gin.Context) {
	h.transition(c, func(ctx context.Context, id string) (*model.Notification, error) {
		return store.DismissNotification(ctx, h.store, id)
	})
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id string) (*model.Notification, error)) {
	n, ok := h.loadNotification(c)
	if !ok {
		return
	}
	updated, err := fn(c.Request.Context(), n.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) ListNotificationLogs(c *gin.Context) {
	n, ok := h.loadNotification(c)
	if !ok {
		return
	}
	logs, err := h.store.GetNotificationLogs(c.Request.Context(), n.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
