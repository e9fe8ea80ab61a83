package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

// Envelope represents the common response contract for portal endpoints.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// PlainError is the flat error body used by the checkout and webhook endpoints.
type PlainError struct {
	Error string `json:"error"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// Plain writes {"error": message} using the status carried by err.
// Internal causes are never echoed back to the caller.
func Plain(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, PlainError{Error: appErr.Message})
}

// Ack acknowledges a webhook delivery.
func Ack(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Accepted responds with HTTP 202 and no payload beyond a status marker.
func Accepted(c *gin.Context) {
	noStore(c)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
