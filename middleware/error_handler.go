package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/glasscast-app/glasscast-backend/errors"
	"github.com/glasscast-app/glasscast-backend/logger"
)

// ErrorResponse is the wire shape of every error the API returns.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorHandler translates errors attached to the gin context into HTTP
// responses. AppErrors carry their own status; anything else becomes an
// opaque 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		log := logger.GetLogger()

		if appErr, ok := err.(*apperrors.AppError); ok {
			status := appErr.GetHTTPStatus()
			log.Warnw("Request failed",
				"type", appErr.Type,
				"message", appErr.Message,
				"status", status,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"client_ip", c.ClientIP())
			c.JSON(status, ErrorResponse{
				Type:    string(appErr.Type),
				Message: appErr.Message,
				Details: appErr.Detail,
				Code:    strconv.Itoa(status),
			})
			return
		}

		log.Errorw("Unhandled error",
			"error", err,
			"path", c.Request.URL.Path,
			"method", c.Request.Method)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Type:    string(apperrors.ServerError),
			Message: "An internal error occurred",
			Code:    strconv.Itoa(http.StatusInternalServerError),
		})
	}
}
