package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
)

type settingsRequest struct {
	UserID           string         `json:"user_id"`
	NotificationType model.TaskType `json:"notification_type" binding:"required,oneof=statutory payment task escalation"`
	EmailEnabled     *bool          `json:"email_enabled"`
	SMSEnabled       *bool          `json:"sms_enabled"`
	PushEnabled      *bool          `json:"push_enabled"`
	WhatsAppEnabled  *bool          `json:"whatsapp_enabled"`
	ReminderDays     *int           `json:"reminder_days" binding:"omitempty,min=0,max=365"`
}

// settingsOwner resolves whose settings a request addresses. Admins may
// act for anyone.
func settingsOwner(c *gin.Context, requested string) (string, error) {
	p := currentPrincipal(c)
	if requested == "" || requested == p.UserID {
		return p.UserID, nil
	}
	if !p.admin() {
		return "", fmt.Errorf("settings of another user: %w", errForbidden)
	}
	return requested, nil
}

func (h *Handler) ListSettings(c *gin.Context) {
	userID, err := settingsOwner(c, c.Query("user_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	settings, err := h.store.GetNotificationSettings(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) CreateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, err := settingsOwner(c, req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	settings := model.DefaultNotificationSettings(userID, req.NotificationType)
	applySettingsPatch(&settings, model.NotificationSettingsPatch{
		EmailEnabled:    req.EmailEnabled,
		SMSEnabled:      req.SMSEnabled,
		PushEnabled:     req.PushEnabled,
		WhatsAppEnabled: req.WhatsAppEnabled,
		ReminderDays:    req.ReminderDays,
	})

	created, err := h.store.CreateNotificationSettings(c.Request.Context(), settings)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func applySettingsPatch(s *model.NotificationSettings, patch model.NotificationSettingsPatch) {
	if patch.EmailEnabled != nil {
		s.EmailEnabled = *patch.EmailEnabled
	}
	if patch.SMSEnabled != nil {
		s.SMSEnabled = *patch.SMSEnabled
	}
	if patch.PushEnabled != nil {
		s.PushEnabled = *patch.PushEnabled
	}
	if patch.WhatsAppEnabled != nil {
		s.WhatsAppEnabled = *patch.WhatsAppEnabled
	}
	if patch.ReminderDays != nil {
		s.ReminderDays = *patch.ReminderDays
	}
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var patch model.NotificationSettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	p := currentPrincipal(c)
	if !p.admin() {
		owned, err := h.store.GetNotificationSettings(c.Request.Context(), p.UserID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		found := false
		for _, s := range owned {
			if s.ID == id {
				found = true
				break
			}
		}
		if !found {
			h.respondError(c, fmt.Errorf("settings %s: %w", id, store.ErrNotFound))
			return
		}
	}

	updated, err := h.store.UpdateNotificationSettings(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
