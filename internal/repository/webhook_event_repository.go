package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/techne-institute/cohort-portal-api/internal/models"
)

// WebhookEventRepository keeps the audit trail of verified provider deliveries.
type WebhookEventRepository struct {
	db *sqlx.DB
}

// NewWebhookEventRepository constructs the repository.
func NewWebhookEventRepository(db *sqlx.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// RecordReceived stores a delivery, incrementing the attempt counter on
// redelivery, and returns the attempt number.
func (r *WebhookEventRepository) RecordReceived(ctx context.Context, provider, eventID, eventType string, payload []byte) (int, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	const query = `INSERT INTO payment_webhook_events (id, provider, provider_event_id, event_type, payload, attempts, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5::jsonb, 1, $6, $6)
        ON CONFLICT (provider, provider_event_id)
        DO UPDATE SET attempts = payment_webhook_events.attempts + 1, updated_at = EXCLUDED.updated_at
        RETURNING attempts`
	var attempts int
	if err := r.db.QueryRowxContext(ctx, query, uuid.NewString(), provider, eventID, eventType, string(payload), time.Now().UTC()).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("record webhook event: %w", err)
	}
	return attempts, nil
}

// MarkProcessed records the outcome of a delivery. An empty processingError
// marks the event processed.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, provider, eventID, processingError string) error {
	now := time.Now().UTC()
	var err error
	if processingError == "" {
		const query = `UPDATE payment_webhook_events SET processed_at = $3, processing_error = '', updated_at = $3 WHERE provider = $1 AND provider_event_id = $2`
		_, err = r.db.ExecContext(ctx, query, provider, eventID, now)
	} else {
		const query = `UPDATE payment_webhook_events SET processing_error = $3, updated_at = $4 WHERE provider = $1 AND provider_event_id = $2`
		_, err = r.db.ExecContext(ctx, query, provider, eventID, processingError, now)
	}
	if err != nil {
		return fmt.Errorf("mark webhook event: %w", err)
	}
	return nil
}

// List returns recent deliveries, newest first, without payloads.
func (r *WebhookEventRepository) List(ctx context.Context, filter models.WebhookEventFilter) ([]models.WebhookEvent, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, provider, provider_event_id, event_type, attempts, processed_at, processing_error, created_at, updated_at FROM payment_webhook_events`
	if filter.PendingOnly {
		query += ` WHERE processed_at IS NULL`
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	var events []models.WebhookEvent
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	return events, nil
}
