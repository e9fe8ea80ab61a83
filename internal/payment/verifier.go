package payment

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

// Verifier authenticates webhook deliveries and decodes them into Events.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier builds a verifier for the endpoint signing secret.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify checks the Stripe-Signature header against the raw payload. Any
// signature problem is reported as ErrSignatureInvalid with no detail.
func (v *Verifier) Verify(payload []byte, sigHeader string) (Event, error) {
	if strings.TrimSpace(sigHeader) == "" || v.secret == "" {
		return nil, appErrors.ErrSignatureInvalid
	}

	evt, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSignatureInvalid.Code, appErrors.ErrSignatureInvalid.Status, appErrors.ErrSignatureInvalid.Message)
	}

	if string(evt.Type) != eventCheckoutCompleted {
		return &Ignored{EventID: evt.ID, EventType: string(evt.Type)}, nil
	}
	if evt.Data == nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedEvent, "event "+evt.ID+" carries no data")
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedEvent.Code, appErrors.ErrMalformedEvent.Status, "event "+evt.ID+" has an unreadable checkout session")
	}

	return completedFromSession(evt.ID, &session), nil
}

func completedFromSession(eventID string, session *stripe.CheckoutSession) *CheckoutCompleted {
	completed := &CheckoutCompleted{
		EventID:     eventID,
		SessionID:   session.ID,
		AmountTotal: session.AmountTotal,
		Currency:    string(session.Currency),
	}
	if session.CustomerDetails != nil {
		completed.Email = strings.TrimSpace(session.CustomerDetails.Email)
	}
	if completed.Email == "" {
		completed.Email = strings.TrimSpace(session.CustomerEmail)
	}
	if session.Metadata != nil {
		completed.OfferID = strings.TrimSpace(session.Metadata[MetadataOfferID])
		completed.OfferSlug = strings.TrimSpace(session.Metadata[MetadataOfferSlug])
	}
	return completed
}
