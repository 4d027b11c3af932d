package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
)

var errForbidden = errors.New("forbidden")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrEmptyTitle),
		errors.Is(err, model.ErrInvalidType),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidPriority),
		errors.Is(err, model.ErrInvalidLevel),
		errors.Is(err, model.ErrMissingUser),
		errors.Is(err, model.ErrInvalidName),
		errors.Is(err, model.ErrEmptyTemplate):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
