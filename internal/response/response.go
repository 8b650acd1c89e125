// Package response writes the JSON envelope every API reply uses:
// {success, data?, error?, code?, field?}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"blood-platform/internal/apperr"
)

type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Error maps err to a status and aborts the request. Errors without a kind
// are logged and hidden behind a generic 500.
func Error(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		log.WithFields(log.Fields{
			"component": "http",
			"method":    c.Request.Method,
			"path":      c.FullPath(),
		}).WithError(err).Error("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, Envelope{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	status, code := e.Kind.Status()
	c.AbortWithStatusJSON(status, Envelope{Error: e.Message, Code: code, Field: e.Field})
}
