package service

import (
	"context"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

type webhookEventReader interface {
	List(ctx context.Context, filter models.WebhookEventFilter) ([]models.WebhookEvent, error)
}

// WebhookEventService exposes the delivery audit log to admins.
type WebhookEventService struct {
	repo webhookEventReader
}

// NewWebhookEventService constructs the service.
func NewWebhookEventService(repo webhookEventReader) *WebhookEventService {
	return &WebhookEventService{repo: repo}
}

// List returns recent deliveries. Pending deliveries are those never processed successfully.
func (s *WebhookEventService) List(ctx context.Context, filter models.WebhookEventFilter) ([]models.WebhookEvent, error) {
	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list webhook events")
	}
	if events == nil {
		events = []models.WebhookEvent{}
	}
	return events, nil
}
