package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
	"github.com/techne-institute/cohort-portal-api/pkg/response"
)

type checkoutService interface {
	CreateSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error)
	GetSessionSummary(ctx context.Context, sessionID string) (*models.CheckoutSessionSummary, error)
}

// CheckoutHandler starts hosted checkouts.
type CheckoutHandler struct {
	service checkoutService
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(svc checkoutService) *CheckoutHandler {
	return &CheckoutHandler{service: svc}
}

// Create godoc
// @Summary Start checkout
// @Description Creates a hosted Stripe checkout session for an open cohort and returns its redirect URL
// @Tags Checkout
// @Accept json
// @Produce json
// @Param payload body models.CheckoutRequest true "Cohort to purchase"
// @Success 200 {object} models.CheckoutResponse
// @Failure 400 {object} response.PlainError
// @Failure 404 {object} response.PlainError
// @Failure 500 {object} response.PlainError
// @Router /checkout [post]
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Plain(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Cohort is required"))
		return
	}

	res, err := h.service.CreateSession(c.Request.Context(), req)
	if err != nil {
		response.Plain(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Session godoc
// @Summary Checkout session summary
// @Description Returns the status of a completed checkout for the success page
// @Tags Checkout
// @Produce json
// @Param session_id query string true "Checkout session id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /checkout/session [get]
func (h *CheckoutHandler) Session(c *gin.Context) {
	id := strings.TrimSpace(c.Query("session_id"))
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "session_id is required"))
		return
	}
	summary, err := h.service.GetSessionSummary(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
