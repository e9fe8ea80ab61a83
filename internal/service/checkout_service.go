package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	"github.com/techne-institute/cohort-portal-api/internal/payment"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

type offerLookup interface {
	GetForCheckout(ctx context.Context, slug string) (*models.Offer, error)
}

// CheckoutConfig supplies URLs and inline pricing defaults.
type CheckoutConfig struct {
	AppURL             string
	Currency           string
	ProductDescription string
}

// CheckoutService opens hosted payment sessions for cohorts. It writes no local state.
type CheckoutService struct {
	offers    offerLookup
	gateway   payment.Gateway
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       CheckoutConfig
}

// NewCheckoutService constructs the service.
func NewCheckoutService(offers offerLookup, gateway payment.Gateway, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg CheckoutConfig) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &CheckoutService{offers: offers, gateway: gateway, validator: validate, metrics: metrics, logger: logger, cfg: cfg}
}

// CreateSession validates the cohort and returns the hosted checkout URL.
func (s *CheckoutService) CreateSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	req.CohortSlug = strings.TrimSpace(req.CohortSlug)
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordCheckout("invalid")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cohortSlug is required")
	}

	offer, err := s.offers.GetForCheckout(ctx, req.CohortSlug)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrOfferNotFound) {
			s.metrics.RecordCheckout("not_found")
			return nil, appErrors.ErrOfferNotFound
		}
		s.metrics.RecordCheckout("failed")
		s.logger.Error("checkout offer lookup failed", zap.String("slug", req.CohortSlug), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCheckoutFailed.Code, appErrors.ErrCheckoutFailed.Status, appErrors.ErrCheckoutFailed.Message)
	}
	if !offer.AcceptsEnrollments() {
		s.metrics.RecordCheckout("unavailable")
		return nil, appErrors.ErrOfferUnavailable
	}

	currency := offer.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	slugPath := url.PathEscape(offer.Slug)
	sess, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		OfferID:     offer.ID,
		OfferSlug:   offer.Slug,
		OfferName:   offer.Name,
		Description: s.cfg.ProductDescription,
		PriceRef:    offer.ExternalPriceRef(),
		UnitAmount:  offer.PriceCents,
		Currency:    currency,
		SuccessURL:  fmt.Sprintf("%s/enroll/%s/success?session_id={CHECKOUT_SESSION_ID}", s.cfg.AppURL, slugPath),
		CancelURL:   fmt.Sprintf("%s/enroll/%s", s.cfg.AppURL, slugPath),
	})
	if err != nil {
		s.metrics.RecordCheckout("failed")
		s.logger.Error("checkout session creation failed", zap.String("slug", offer.Slug), zap.String("offer_id", offer.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCheckoutFailed.Code, appErrors.ErrCheckoutFailed.Status, appErrors.ErrCheckoutFailed.Message)
	}

	s.metrics.RecordCheckout("created")
	s.logger.Info("checkout session created", zap.String("slug", offer.Slug), zap.String("session_id", sess.ID))
	return &models.CheckoutResponse{URL: sess.URL}, nil
}

// GetSessionSummary reports a session's state for the success page.
func (s *CheckoutService) GetSessionSummary(ctx context.Context, sessionID string) (*models.CheckoutSessionSummary, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session_id is required")
	}
	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "checkout session not found")
		}
		s.logger.Error("checkout session lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load checkout session")
	}
	return &models.CheckoutSessionSummary{
		SessionID:     sess.ID,
		Email:         sess.Email,
		Status:        sess.Status,
		PaymentStatus: sess.PaymentStatus,
		OfferSlug:     sess.OfferSlug,
	}, nil
}
