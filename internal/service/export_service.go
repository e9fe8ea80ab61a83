package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
	"github.com/techne-institute/cohort-portal-api/pkg/export"
)

var rosterHeaders = []string{"Email", "Name", "Cohort", "Starts", "Enrolled At", "Checkout Session"}

// RosterExport is a rendered roster file.
type RosterExport struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders enrollment rosters for download.
type ExportService struct {
	repo   enrollmentQueryRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(repo enrollmentQueryRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{repo: repo, logger: logger, now: time.Now}
}

// ExportRoster renders all enrollments, optionally limited to one cohort.
func (s *ExportService) ExportRoster(ctx context.Context, offerID string, format export.Format) (*RosterExport, error) {
	items, _, err := s.repo.List(ctx, models.EnrollmentFilter{OfferID: offerID, Unpaged: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	data := export.Dataset{
		Title:   "Cohort roster",
		Headers: rosterHeaders,
		Rows:    make([]map[string]string, 0, len(items)),
	}
	if offerID != "" && len(items) > 0 {
		data.Title = items[0].OfferName + " roster"
	}
	for _, item := range items {
		starts := ""
		if item.StartsAt != nil {
			starts = item.StartsAt.UTC().Format("2006-01-02")
		}
		data.Rows = append(data.Rows, map[string]string{
			"Email":            item.Email,
			"Name":             item.FullName,
			"Cohort":           item.OfferName,
			"Starts":           starts,
			"Enrolled At":      item.CreatedAt.UTC().Format(time.RFC3339),
			"Checkout Session": item.CheckoutSessionID,
		})
	}

	payload, err := export.Render(format, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	s.logger.Info("roster exported", zap.String("offer_id", offerID), zap.String("format", string(format)), zap.Int("rows", len(items)))
	return &RosterExport{
		Filename:    fmt.Sprintf("roster-%s.%s", s.now().UTC().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Data:        payload,
		Rows:        len(items),
	}, nil
}
