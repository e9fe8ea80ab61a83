package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	"github.com/techne-institute/cohort-portal-api/pkg/response"
)

type webhookEventService interface {
	List(ctx context.Context, filter models.WebhookEventFilter) ([]models.WebhookEvent, error)
}

// WebhookEventHandler exposes the webhook delivery log to admins.
type WebhookEventHandler struct {
	events webhookEventService
}

// NewWebhookEventHandler constructs a WebhookEventHandler.
func NewWebhookEventHandler(events webhookEventService) *WebhookEventHandler {
	return &WebhookEventHandler{events: events}
}

// List godoc
// @Summary List webhook deliveries
// @Tags Webhooks
// @Produce json
// @Security BearerAuth
// @Param pending query bool false "Only deliveries not yet processed"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /admin/webhook-events [get]
func (h *WebhookEventHandler) List(c *gin.Context) {
	var filter models.WebhookEventFilter
	filter.PendingOnly, _ = strconv.ParseBool(c.DefaultQuery("pending", "false"))
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}

	items, err := h.events.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
