package handler

import (
	"errors"
	"net/http"

	"housing-assistant/internal/model"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrSessionNotFound), errors.Is(err, model.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrSessionEnded):
		return http.StatusConflict
	case errors.Is(err, model.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAIDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
