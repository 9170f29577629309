package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glowsenior/HIPAA-Contract-Site/middleware"
	"github.com/glowsenior/HIPAA-Contract-Site/pkg/apperr"
)

// respondError maps the error taxonomy to HTTP responses in one place.
// Unclassified errors are logged with their detail and surfaced as a
// generic 500.
func respondError(c *gin.Context, err error) {
	if e, ok := apperr.As(err); ok {
		switch e.Kind {
		case apperr.KindValidation:
			c.JSON(http.StatusBadRequest, gin.H{
				"message": e.Message,
				"errors":  e.Fields,
			})
			return
		case apperr.KindNotFound, apperr.KindStorage:
			c.JSON(http.StatusNotFound, gin.H{"message": e.Message})
			return
		case apperr.KindForbidden:
			c.JSON(http.StatusForbidden, gin.H{"message": e.Message})
			return
		case apperr.KindConflict:
			c.JSON(http.StatusConflict, gin.H{"message": e.Message})
			return
		}
	}

	slog.Error("request failed",
		"error", err,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", middleware.GetRequestID(c),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
}
