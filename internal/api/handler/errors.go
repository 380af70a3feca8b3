package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/panelgate/internal/api/middleware"
	"github.com/timmy/panelgate/internal/domain"
)

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Server-side failures are
// logged and their detail is withheld from the client.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		middleware.GetLogger(c).WithError(err).Error("Request failed")
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"status": "error", "error": "internal server error"})
			return
		}
	}
	c.JSON(status, gin.H{"status": "error", "error": err.Error()})
}

// badRequest reports a request body that failed to bind.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"status": "error",
		"error":  "Invalid request: " + err.Error(),
	})
}
