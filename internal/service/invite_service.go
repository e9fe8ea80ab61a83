package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
	"github.com/techne-institute/cohort-portal-api/pkg/jobs"
	"github.com/techne-institute/cohort-portal-api/pkg/linksign"
	"github.com/techne-institute/cohort-portal-api/pkg/mailer"
)

// Job types carried on the invites queue.
const (
	JobTypeAccessInvite = "access_invite"
	JobTypeSignInLink   = "sign_in_link"
)

const callbackPath = "/auth/callback"

type inviteUserLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type linkMinter interface {
	Generate(userID, next string) (string, linksign.Claims, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// InviteConfig holds branding and URL settings for outbound links.
type InviteConfig struct {
	AppURL      string
	ProductName string
}

// InviteService mints sign-in links and queues the emails that carry them.
type InviteService struct {
	users     inviteUserLookup
	links     linkMinter
	queue     jobDispatcher
	validator *validator.Validate
	logger    *zap.Logger
	cfg       InviteConfig
}

// NewInviteService constructs the service.
func NewInviteService(users inviteUserLookup, links linkMinter, queue jobDispatcher, validate *validator.Validate, logger *zap.Logger, cfg InviteConfig) *InviteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "Techne Institute"
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &InviteService{users: users, links: links, queue: queue, validator: validate, logger: logger, cfg: cfg}
}

// SendAccessInvite emails a newly enrolled student a link that signs them in
// and lands on the destination named by redirectTo's next parameter.
func (s *InviteService) SendAccessInvite(ctx context.Context, email, redirectTo string) error {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotificationFailed, "no account for invite recipient")
		}
		return appErrors.Wrap(err, appErrors.ErrNotificationFailed.Code, appErrors.ErrNotificationFailed.Status, "failed to resolve invite recipient")
	}

	link, claims, err := s.buildLink(user.ID, redirectTo)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotificationFailed.Code, appErrors.ErrNotificationFailed.Status, "failed to mint access link")
	}

	msg := s.message(user.Email, "You're enrolled: access your cohort",
		"Your enrollment is confirmed. Use the link below to sign in to the cohort portal.", link, claims.ExpiresAt)
	return s.dispatch(JobTypeAccessInvite, msg)
}

// RequestSignInLink emails a sign-in link to an existing active user. Unknown
// and inactive addresses are accepted silently.
func (s *InviteService) RequestSignInLink(ctx context.Context, req models.MagicLinkRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a valid email is required")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("sign-in link requested for unknown email")
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up account")
	}
	if !user.Active {
		s.logger.Info("sign-in link requested for inactive account", zap.String("user_id", user.ID))
		return nil
	}

	redirect := s.cfg.AppURL + callbackPath + "?next=" + url.QueryEscape(SafeNextPath(req.Next))
	link, claims, err := s.buildLink(user.ID, redirect)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint sign-in link")
	}

	msg := s.message(user.Email, "Your sign-in link", "Use the link below to sign in.", link, claims.ExpiresAt)
	if err := s.dispatch(JobTypeSignInLink, msg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send sign-in link")
	}
	return nil
}

func (s *InviteService) buildLink(userID, redirectTo string) (string, linksign.Claims, error) {
	target, err := url.Parse(redirectTo)
	if err != nil || !target.IsAbs() {
		target, err = url.Parse(s.cfg.AppURL + callbackPath)
		if err != nil {
			return "", linksign.Claims{}, fmt.Errorf("parse callback url: %w", err)
		}
	}
	query := target.Query()
	next := SafeNextPath(query.Get("next"))

	token, claims, err := s.links.Generate(userID, next)
	if err != nil {
		return "", linksign.Claims{}, err
	}
	query.Set("token", token)
	query.Set("next", next)
	target.RawQuery = query.Encode()
	return target.String(), claims, nil
}

func (s *InviteService) message(to, subject, intro, link string, expiresAt time.Time) mailer.Message {
	expiry := expiresAt.UTC().Format("Jan 2, 2006 15:04 MST")
	return mailer.Message{
		To:      to,
		Subject: fmt.Sprintf("%s: %s", s.cfg.ProductName, subject),
		Text:    fmt.Sprintf("%s\n\n%s\n\nThis link works once and expires %s.\n", intro, link, expiry),
		HTML: fmt.Sprintf(`<p>%s</p><p><a href="%s">Sign in to %s</a></p><p>This link works once and expires %s.</p>`,
			html.EscapeString(intro), html.EscapeString(link), html.EscapeString(s.cfg.ProductName), html.EscapeString(expiry)),
	}
}

func (s *InviteService) dispatch(jobType string, msg mailer.Message) error {
	job := jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: msg}
	if err := s.queue.Enqueue(job); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotificationFailed.Code, appErrors.ErrNotificationFailed.Status, appErrors.ErrNotificationFailed.Message)
	}
	s.logger.Debug("queued email", zap.String("job_id", job.ID), zap.String("type", jobType))
	return nil
}

// InviteWorker delivers queued emails.
type InviteWorker struct {
	mailer  mailer.Mailer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewInviteWorker constructs a worker.
func NewInviteWorker(m mailer.Mailer, metrics *MetricsService, logger *zap.Logger) *InviteWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InviteWorker{mailer: m, metrics: metrics, logger: logger}
}

// Handle sends one queued message. Errors are retried by the queue.
func (w *InviteWorker) Handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}
	if err := w.mailer.Send(ctx, msg); err != nil {
		return err
	}
	w.metrics.RecordInvite(job.Type, true)
	w.logger.Info("email delivered", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt+1))
	return nil
}

// Discard records a message that exhausted its retries.
func (w *InviteWorker) Discard(job jobs.Job, err error) {
	w.metrics.RecordInvite(job.Type, false)
	to := ""
	if msg, ok := job.Payload.(mailer.Message); ok {
		to = msg.To
	}
	w.logger.Error("email abandoned", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.String("to", to), zap.Error(err))
}
