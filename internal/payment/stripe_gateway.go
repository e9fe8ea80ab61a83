package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrSessionNotFound is returned when the provider does not know a session id.
var ErrSessionNotFound = errors.New("checkout session not found")

// CheckoutRequest describes a hosted checkout for a single offer seat.
type CheckoutRequest struct {
	OfferID     string
	OfferSlug   string
	OfferName   string
	Description string
	// PriceRef is a provider price id. When empty the line item is priced
	// inline from UnitAmount and Currency.
	PriceRef   string
	UnitAmount int64
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Session is the provider-neutral view of a checkout session.
type Session struct {
	ID            string `json:"session_id"`
	URL           string `json:"url,omitempty"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Email         string `json:"email,omitempty"`
	OfferID       string `json:"-"`
	OfferSlug     string `json:"offer_slug,omitempty"`
}

// Gateway creates and inspects hosted checkout sessions.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}

// StripeGateway implements Gateway against the Stripe API. It owns its client
// instead of relying on the package-level key.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway builds a gateway. backends may be nil to use Stripe's
// default endpoints.
func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{api: api}
}

// CreateCheckoutSession opens a one-seat payment session.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	lineItem := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if req.PriceRef != "" {
		lineItem.Price = stripe.String(req.PriceRef)
	} else {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(req.OfferName),
		}
		if req.Description != "" {
			product.Description = stripe.String(req.Description)
		}
		lineItem.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(strings.ToLower(req.Currency)),
			UnitAmount:  stripe.Int64(req.UnitAmount),
			ProductData: product,
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes:  stripe.StringSlice([]string{"card"}),
		AllowPromotionCodes: stripe.Bool(true),
		LineItems:           []*stripe.CheckoutSessionLineItemParams{lineItem},
		SuccessURL:          stripe.String(req.SuccessURL),
		CancelURL:           stripe.String(req.CancelURL),
		Metadata: map[string]string{
			MetadataOfferID:   req.OfferID,
			MetadataOfferSlug: req.OfferSlug,
		},
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return toSession(sess), nil
}

// GetSession retrieves a session, typically for the post-payment success page.
func (g *StripeGateway) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return toSession(sess), nil
}

func toSession(sess *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:            sess.ID,
		URL:           sess.URL,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
	}
	if sess.CustomerDetails != nil {
		out.Email = sess.CustomerDetails.Email
	}
	if out.Email == "" {
		out.Email = sess.CustomerEmail
	}
	if sess.Metadata != nil {
		out.OfferID = sess.Metadata[MetadataOfferID]
		out.OfferSlug = sess.Metadata[MetadataOfferSlug]
	}
	return out
}
