package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	"github.com/techne-institute/cohort-portal-api/pkg/response"
)

type offerService interface {
	GetBySlug(ctx context.Context, slug string) (*models.Offer, error)
	ListActive(ctx context.Context) ([]models.Offer, error)
}

// OfferHandler exposes the public programs catalogue.
type OfferHandler struct {
	offers offerService
}

// NewOfferHandler constructs an OfferHandler.
func NewOfferHandler(offers offerService) *OfferHandler {
	return &OfferHandler{offers: offers}
}

// List godoc
// @Summary List offers
// @Tags Offers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /offers [get]
func (h *OfferHandler) List(c *gin.Context) {
	offers, err := h.offers.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offers, nil)
}

// Get godoc
// @Summary Get offer by slug
// @Tags Offers
// @Produce json
// @Param slug path string true "Offer slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /offers/{slug} [get]
func (h *OfferHandler) Get(c *gin.Context) {
	offer, err := h.offers.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offer, nil)
}
