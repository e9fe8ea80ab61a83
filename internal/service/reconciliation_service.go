package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	"github.com/techne-institute/cohort-portal-api/internal/payment"
	"github.com/techne-institute/cohort-portal-api/internal/repository"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

// Outcome describes how a verified event was settled.
type Outcome string

const (
	// OutcomeCommitted means this delivery created the enrollment.
	OutcomeCommitted Outcome = "committed"
	// OutcomeDuplicate means an earlier delivery already created it.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeRaced means a concurrent delivery of the same event won the insert.
	OutcomeRaced Outcome = "raced"
	// OutcomeAlreadyEnrolled means the payer already held a seat in the cohort.
	OutcomeAlreadyEnrolled Outcome = "already_enrolled"
	// OutcomeIgnored means the event type is not acted upon.
	OutcomeIgnored Outcome = "ignored"
	outcomeFailed  Outcome = "failed"
)

type enrollmentStore interface {
	FindByEventID(ctx context.Context, eventID string) (*models.Enrollment, error)
	Insert(ctx context.Context, enrollment *models.Enrollment) error
}

type accountProvisioner interface {
	Provision(ctx context.Context, email string) (string, error)
}

type accessNotifier interface {
	SendAccessInvite(ctx context.Context, email, redirectTo string) error
}

type webhookEventLog interface {
	RecordReceived(ctx context.Context, provider, eventID, eventType string, payload []byte) (int, error)
	MarkProcessed(ctx context.Context, provider, eventID, processingError string) error
}

// ReconciliationConfig controls where invited students land.
type ReconciliationConfig struct {
	AppURL string
	// LandingPath is the portal path the access invite signs the student into.
	LandingPath string
}

// ReconciliationService turns verified checkout completions into enrollments,
// exactly once per provider event.
type ReconciliationService struct {
	enrollments enrollmentStore
	accounts    accountProvisioner
	notifier    accessNotifier
	events      webhookEventLog
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         ReconciliationConfig
}

// NewReconciliationService constructs the service. events and metrics may be nil.
func NewReconciliationService(enrollments enrollmentStore, accounts accountProvisioner, notifier accessNotifier, events webhookEventLog, metrics *MetricsService, logger *zap.Logger, cfg ReconciliationConfig) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = "/cohort"
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &ReconciliationService{
		enrollments: enrollments,
		accounts:    accounts,
		notifier:    notifier,
		events:      events,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// Process records the delivery in the webhook log, reconciles it and stores
// the result. Log failures never change the outcome. Ignored event types
// are acknowledged without being logged.
func (s *ReconciliationService) Process(ctx context.Context, evt payment.Event, payload []byte) (Outcome, error) {
	if _, ok := evt.(*payment.Ignored); ok {
		return s.Handle(ctx, evt)
	}

	if s.events != nil {
		attempts, err := s.events.RecordReceived(ctx, payment.Provider, evt.ID(), evt.Type(), payload)
		if err != nil {
			s.logger.Warn("failed to record webhook event", zap.String("event_id", evt.ID()), zap.Error(err))
		} else if attempts > 1 {
			s.logger.Info("webhook redelivery", zap.String("event_id", evt.ID()), zap.Int("attempt", attempts))
		}
	}

	outcome, handleErr := s.Handle(ctx, evt)

	if s.events != nil {
		processingError := ""
		if handleErr != nil {
			processingError = handleErr.Error()
		}
		if err := s.events.MarkProcessed(ctx, payment.Provider, evt.ID(), processingError); err != nil {
			s.logger.Warn("failed to update webhook event", zap.String("event_id", evt.ID()), zap.Error(err))
		}
	}
	return outcome, handleErr
}

// Handle settles a single verified event.
func (s *ReconciliationService) Handle(ctx context.Context, evt payment.Event) (Outcome, error) {
	switch e := evt.(type) {
	case *payment.CheckoutCompleted:
		start := time.Now()
		outcome, err := s.reconcile(ctx, e)
		if err != nil {
			s.metrics.RecordReconciliation(string(outcomeFailed), time.Since(start))
		} else {
			s.metrics.RecordReconciliation(string(outcome), time.Since(start))
		}
		return outcome, err
	case *payment.Ignored:
		s.logger.Debug("ignoring payment event", zap.String("event_id", e.EventID), zap.String("type", e.EventType))
		return OutcomeIgnored, nil
	default:
		return outcomeFailed, appErrors.Clone(appErrors.ErrMalformedEvent, "unsupported payment event")
	}
}

func (s *ReconciliationService) reconcile(ctx context.Context, e *payment.CheckoutCompleted) (Outcome, error) {
	log := s.logger.With(zap.String("event_id", e.EventID), zap.String("session_id", e.SessionID))

	if e.EventID == "" {
		log.Error("checkout event without id")
		return outcomeFailed, appErrors.Clone(appErrors.ErrMalformedEvent, "payment event has no id")
	}

	existing, err := s.enrollments.FindByEventID(ctx, e.EventID)
	switch {
	case err == nil:
		log.Info("enrollment already exists for event, skipping", zap.String("enrollment_id", existing.ID))
		return OutcomeDuplicate, nil
	case !errors.Is(err, sql.ErrNoRows):
		log.Error("enrollment lookup failed", zap.Error(err))
		return outcomeFailed, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check for existing enrollment")
	}

	if e.OfferID == "" || e.Email == "" {
		log.Error("checkout event missing cohort or payer email; needs manual follow-up",
			zap.String("offer_id", e.OfferID), zap.String("offer_slug", e.OfferSlug), zap.Bool("has_email", e.Email != ""))
		return outcomeFailed, appErrors.Clone(appErrors.ErrMalformedEvent, "missing cohort id or customer email in session "+e.SessionID)
	}
	log = log.With(zap.String("offer_id", e.OfferID), zap.String("email", e.Email))

	userID, err := s.accounts.Provision(ctx, e.Email)
	if err != nil {
		log.Error("account provisioning failed", zap.Error(err))
		return outcomeFailed, err
	}

	outcome := OutcomeCommitted
	enrollment := &models.Enrollment{
		UserID:            userID,
		OfferID:           e.OfferID,
		PaymentEventID:    e.EventID,
		CheckoutSessionID: e.SessionID,
	}
	if err := s.enrollments.Insert(ctx, enrollment); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEvent):
			log.Info("concurrent delivery already enrolled this event")
			return OutcomeRaced, nil
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			log.Info("user already enrolled in cohort", zap.String("user_id", userID))
			outcome = OutcomeAlreadyEnrolled
		default:
			log.Error("enrollment insert failed", zap.Error(err))
			return outcomeFailed, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
		}
	} else {
		log.Info("enrolled student", zap.String("user_id", userID), zap.String("enrollment_id", enrollment.ID))
	}

	if s.notifier != nil {
		if err := s.notifier.SendAccessInvite(ctx, e.Email, s.inviteRedirect()); err != nil {
			log.Warn("failed to send access invite; student can still sign in manually", zap.Error(err))
		}
	}
	return outcome, nil
}

func (s *ReconciliationService) inviteRedirect() string {
	return s.cfg.AppURL + "/auth/callback?next=" + url.QueryEscape(s.cfg.LandingPath)
}
