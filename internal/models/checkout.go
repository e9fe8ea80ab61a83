package models

// CheckoutRequest starts a hosted checkout for a cohort.
type CheckoutRequest struct {
	CohortSlug string `json:"cohortSlug" validate:"required"`
}

// CheckoutResponse carries the hosted checkout redirect.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// CheckoutSessionSummary is shown on the enrollment success page.
type CheckoutSessionSummary struct {
	SessionID     string `json:"session_id"`
	Email         string `json:"email,omitempty"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	OfferSlug     string `json:"offer_slug,omitempty"`
}
