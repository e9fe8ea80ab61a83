package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/payment"
	"github.com/techne-institute/cohort-portal-api/internal/service"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
	"github.com/techne-institute/cohort-portal-api/pkg/response"
)

// stripe caps event payloads well below this.
const maxWebhookBody = 1 << 16

const signatureHeader = "Stripe-Signature"

type eventVerifier interface {
	Verify(payload []byte, sigHeader string) (payment.Event, error)
}

type eventProcessor interface {
	Process(ctx context.Context, evt payment.Event, payload []byte) (service.Outcome, error)
}

type webhookMetrics interface {
	RecordWebhook(eventType, result string)
}

// WebhookHandler receives payment provider deliveries.
type WebhookHandler struct {
	verifier  eventVerifier
	processor eventProcessor
	metrics   webhookMetrics
	logger    *zap.Logger
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(verifier eventVerifier, processor eventProcessor, metrics webhookMetrics, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{verifier: verifier, processor: processor, metrics: metrics, logger: logger}
}

// Stripe godoc
// @Summary Receive Stripe webhook
// @Description Verifies the Stripe-Signature header and reconciles completed checkouts into enrollments. Non-2xx responses make Stripe redeliver.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} response.PlainError
// @Failure 500 {object} response.PlainError
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("failed to read webhook body", zap.Error(err))
		h.record("", "rejected")
		c.JSON(http.StatusBadRequest, response.PlainError{Error: "invalid payload"})
		return
	}

	evt, err := h.verifier.Verify(payload, c.GetHeader(signatureHeader))
	if err != nil {
		if appErrors.Is(err, appErrors.ErrSignatureInvalid) {
			h.logger.Warn("webhook signature rejected", zap.Error(err))
			h.record("", "rejected")
			c.JSON(http.StatusBadRequest, response.PlainError{Error: "invalid signature"})
			return
		}
		h.logger.Error("unreadable webhook event", zap.Error(err))
		h.record("", "failed")
		c.JSON(http.StatusInternalServerError, response.PlainError{Error: "enrollment processing failed"})
		return
	}

	outcome, err := h.processor.Process(c.Request.Context(), evt, payload)
	if err != nil {
		h.logger.Error("webhook processing failed",
			zap.String("event_id", evt.ID()),
			zap.String("type", evt.Type()),
			zap.Error(err),
		)
		h.record(evt.Type(), "failed")
		c.JSON(http.StatusInternalServerError, response.PlainError{Error: "enrollment processing failed"})
		return
	}

	h.logger.Info("webhook settled",
		zap.String("event_id", evt.ID()),
		zap.String("type", evt.Type()),
		zap.String("outcome", string(outcome)),
	)
	h.record(evt.Type(), "accepted")
	response.Ack(c)
}

func (h *WebhookHandler) record(eventType, result string) {
	if h.metrics != nil {
		h.metrics.RecordWebhook(eventType, result)
	}
}
