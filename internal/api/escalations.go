package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/compliance-notifier/internal/model"
)

type escalationRequest struct {
	Level                int            `json:"level" binding:"required,min=1"`
	UserID               string         `json:"user_id" binding:"required"`
	NotificationType     model.TaskType `json:"notification_type" binding:"required,oneof=statutory payment task"`
	DaysBeforeEscalation int            `json:"days_before_escalation" binding:"min=0"`
	EmailEnabled         *bool          `json:"email_enabled"`
	SMSEnabled           *bool          `json:"sms_enabled"`
	PushEnabled          *bool          `json:"push_enabled"`
	WhatsAppEnabled      *bool          `json:"whatsapp_enabled"`
	RequiresAction       *bool          `json:"requires_action"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (r escalationRequest) level(id string) model.EscalationLevel {
	return model.EscalationLevel{
		ID:                   id,
		Level:                r.Level,
		UserID:               r.UserID,
		NotificationType:     r.NotificationType,
		DaysBeforeEscalation: r.DaysBeforeEscalation,
		EmailEnabled:         boolOr(r.EmailEnabled, true),
		SMSEnabled:           boolOr(r.SMSEnabled, true),
		PushEnabled:          boolOr(r.PushEnabled, true),
		WhatsAppEnabled:      boolOr(r.WhatsAppEnabled, false),
		RequiresAction:       boolOr(r.RequiresAction, true),
	}
}

func (h *Handler) ListEscalationLevels(c *gin.Context) {
	var (
		levels []model.EscalationLevel
		err    error
	)
	if v := c.Query("type"); v != "" {
		levels, err = h.store.GetEscalationLevelsByType(c.Request.Context(), model.TaskType(v))
	} else {
		levels, err = h.store.GetEscalationLevels(c.Request.Context())
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, levels)
}

func (h *Handler) CreateEscalationLevel(c *gin.Context) {
	var req escalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := h.store.GetUser(c.Request.Context(), req.UserID); err != nil {
		h.respondError(c, fmt.Errorf("escalation contact %s: %w", req.UserID, model.ErrMissingUser))
		return
	}

	created, err := h.store.CreateEscalationLevel(c.Request.Context(), req.level(""))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateEscalationLevel(c *gin.Context) {
	var req escalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := h.store.GetUser(c.Request.Context(), req.UserID); err != nil {
		h.respondError(c, fmt.Errorf("escalation contact %s: %w", req.UserID, model.ErrMissingUser))
		return
	}

	updated, err := h.store.UpdateEscalationLevel(c.Request.Context(), req.level(c.Param("id")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteEscalationLevel(c *gin.Context) {
	if err := h.store.DeleteEscalationLevel(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
