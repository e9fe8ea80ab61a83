package models

import (
	"encoding/json"
	"time"
)

// WebhookEvent is the audit record of a verified payment provider delivery.
type WebhookEvent struct {
	ID              string          `db:"id" json:"id"`
	Provider        string          `db:"provider" json:"provider"`
	ProviderEventID string          `db:"provider_event_id" json:"provider_event_id"`
	EventType       string          `db:"event_type" json:"event_type"`
	Payload         json.RawMessage `db:"payload" json:"payload,omitempty"`
	Attempts        int             `db:"attempts" json:"attempts"`
	ProcessedAt     *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingError string          `db:"processing_error" json:"processing_error,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// WebhookEventFilter narrows webhook audit listings.
type WebhookEventFilter struct {
	PendingOnly bool
	Limit       int
}
