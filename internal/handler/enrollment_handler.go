package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/techne-institute/cohort-portal-api/internal/middleware"
	"github.com/techne-institute/cohort-portal-api/internal/models"
	"github.com/techne-institute/cohort-portal-api/internal/service"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
	"github.com/techne-institute/cohort-portal-api/pkg/export"
	"github.com/techne-institute/cohort-portal-api/pkg/response"
)

type enrollmentService interface {
	ListForUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
}

type rosterExporter interface {
	ExportRoster(ctx context.Context, offerID string, format export.Format) (*service.RosterExport, error)
}

// EnrollmentHandler exposes enrollment read endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
	exporter    rosterExporter
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService, exporter rosterExporter) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, exporter: exporter}
}

// Mine godoc
// @Summary List my enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/enrollments [get]
func (h *EnrollmentHandler) Mine(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.enrollments.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param offerId query string false "Filter by offer"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{OfferID: c.Query("offerId")}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	items, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Export godoc
// @Summary Export roster
// @Tags Enrollments
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param offerId query string false "Limit to one offer"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/enrollments/export [get]
func (h *EnrollmentHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}
	file, err := h.exporter.ExportRoster(c.Request.Context(), c.Query("offerId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
