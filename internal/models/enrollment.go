package models

import "time"

// Enrollment links a user to an offer through the payment event that caused it.
type Enrollment struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	OfferID           string    `db:"offer_id" json:"offer_id"`
	PaymentEventID    string    `db:"payment_event_id" json:"payment_event_id"`
	CheckoutSessionID string    `db:"checkout_session_id" json:"checkout_session_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentDetail enriches Enrollment with user and offer info.
type EnrollmentDetail struct {
	Enrollment
	Email     string     `db:"email" json:"email"`
	FullName  string     `db:"full_name" json:"full_name"`
	OfferSlug string     `db:"offer_slug" json:"offer_slug"`
	OfferName string     `db:"offer_name" json:"offer_name"`
	StartsAt  *time.Time `db:"starts_at" json:"starts_at,omitempty"`
	EndsAt    *time.Time `db:"ends_at" json:"ends_at,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID   string
	OfferID  string
	Page     int
	PageSize int
	// Unpaged returns every matching row; used by exports.
	Unpaged bool
}
