package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/compliance-notifier/internal/model"
)

type templateRequest struct {
	Name     string         `json:"name" binding:"required,max=100"`
	Type     model.TaskType `json:"type" binding:"required,oneof=statutory payment task escalation"`
	Template string         `json:"template" binding:"required"`
}

// templatePatchRequest accepts any subset of the template fields.
type templatePatchRequest struct {
	Name     *string         `json:"name" binding:"omitempty,max=100"`
	Type     *model.TaskType `json:"type" binding:"omitempty,oneof=statutory payment task escalation"`
	Template *string         `json:"template"`
}

func (h *Handler) ListMessageTemplates(c *gin.Context) {
	var typ *model.TaskType
	if v := c.Query("type"); v != "" {
		t := model.TaskType(v)
		if !t.Valid() {
			badRequest(c, model.ErrInvalidType)
			return
		}
		typ = &t
	}

	templates, err := h.store.GetMessageTemplates(c.Request.Context(), typ)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *Handler) CreateMessageTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	author := currentPrincipal(c).UserID
	created, err := h.store.CreateMessageTemplate(c.Request.Context(), model.MessageTemplate{
		Name:      req.Name,
		Type:      req.Type,
		Template:  req.Template,
		CreatedBy: &author,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateMessageTemplate(c *gin.Context) {
	var req templatePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.store.UpdateMessageTemplate(c.Request.Context(), c.Param("id"), model.MessageTemplatePatch{
		Name:     req.Name,
		Type:     req.Type,
		Template: req.Template,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteMessageTemplate(c *gin.Context) {
	if err := h.store.DeleteMessageTemplate(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
