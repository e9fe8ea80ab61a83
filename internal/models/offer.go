package models

import "time"

// Offer is a purchasable cohort enrollment slot.
type Offer struct {
	ID             string     `db:"id" json:"id"`
	Slug           string     `db:"slug" json:"slug"`
	Name           string     `db:"name" json:"name"`
	Description    string     `db:"description" json:"description"`
	PriceCents     int64      `db:"price_cents" json:"price_cents"`
	Currency       string     `db:"currency" json:"currency"`
	StripePriceID  *string    `db:"stripe_price_id" json:"-"`
	EnrollmentOpen bool       `db:"enrollment_open" json:"enrollment_open"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	StartsAt       *time.Time `db:"starts_at" json:"starts_at,omitempty"`
	EndsAt         *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// AcceptsEnrollments reports whether new enrollments may be sold for the offer.
func (o *Offer) AcceptsEnrollments() bool {
	return o != nil && o.IsActive && o.EnrollmentOpen
}

// ExternalPriceRef returns the provider-native price id, or "" when the offer
// is priced inline.
func (o *Offer) ExternalPriceRef() string {
	if o == nil || o.StripePriceID == nil {
		return ""
	}
	return *o.StripePriceID
}
