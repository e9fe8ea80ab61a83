package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

type enrollmentQueryRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

// EnrollmentService serves the student and admin enrollment views.
type EnrollmentService struct {
	repo   enrollmentQueryRepository
	logger *zap.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(repo enrollmentQueryRepository, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, logger: logger}
}

// ListForUser returns every cohort the user is enrolled in.
func (s *EnrollmentService) ListForUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErrors.ErrUnauthorized
	}
	items, _, err := s.repo.List(ctx, models.EnrollmentFilter{UserID: userID, Unpaged: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if items == nil {
		items = []models.EnrollmentDetail{}
	}
	return items, nil
}

// List returns a page of the roster.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	filter.Unpaged = false

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if items == nil {
		items = []models.EnrollmentDetail{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
