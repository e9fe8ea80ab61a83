package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/techne-institute/cohort-portal-api/api/swagger"
	"github.com/techne-institute/cohort-portal-api/internal/handler"
	"github.com/techne-institute/cohort-portal-api/internal/payment"
	"github.com/techne-institute/cohort-portal-api/internal/repository"
	"github.com/techne-institute/cohort-portal-api/internal/server"
	"github.com/techne-institute/cohort-portal-api/internal/service"
	"github.com/techne-institute/cohort-portal-api/pkg/cache"
	"github.com/techne-institute/cohort-portal-api/pkg/config"
	"github.com/techne-institute/cohort-portal-api/pkg/database"
	"github.com/techne-institute/cohort-portal-api/pkg/jobs"
	"github.com/techne-institute/cohort-portal-api/pkg/linksign"
	"github.com/techne-institute/cohort-portal-api/pkg/logger"
	"github.com/techne-institute/cohort-portal-api/pkg/mailer"
)

// @title Cohort Portal API
// @version 1.0.0
// @description Checkout, payment reconciliation and student portal for Techne Institute cohorts
// @BasePath /api
// @schemes https http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const productName = "Techne Institute"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
	logr.Info("server stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		logr.Info("database schema ensured")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	offerRepo := repository.NewOfferRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Offers.CacheTTL, logr, cfg.Offers.CacheEnabled)
	offerSvc := service.NewOfferService(offerRepo, cacheSvc, cfg.Offers.CacheTTL, logr)

	mail, err := mailer.New(cfg.Mail, logr)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}
	worker := service.NewInviteWorker(mail, metrics, logr)
	inviteQueue := jobs.NewQueue("invites", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Invites.Workers,
		MaxRetries: cfg.Invites.MaxRetries,
		RetryDelay: cfg.Invites.RetryDelay,
		Logger:     logr,
		OnDiscard:  worker.Discard,
	})
	inviteQueue.Start(ctx)
	defer inviteQueue.Stop()

	links := linksign.NewSigner(cfg.MagicLink.Secret, cfg.MagicLink.TTL)
	inviteSvc := service.NewInviteService(userRepo, links, inviteQueue, validate, logr, service.InviteConfig{
		AppURL:      cfg.AppURL,
		ProductName: productName,
	})
	authSvc := service.NewAuthService(userRepo, links, cacheRepo, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, nil)
	checkoutSvc := service.NewCheckoutService(offerSvc, gateway, validate, metrics, logr, service.CheckoutConfig{
		AppURL:             cfg.AppURL,
		Currency:           cfg.Checkout.Currency,
		ProductDescription: cfg.Checkout.ProductDescription,
	})
	accountSvc := service.NewAccountService(userRepo, logr)
	reconciler := service.NewReconciliationService(enrollmentRepo, accountSvc, inviteSvc, webhookRepo, metrics, logr, service.ReconciliationConfig{
		AppURL:      cfg.AppURL,
		LandingPath: service.DefaultLandingPath,
	})
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, logr)
	exportSvc := service.NewExportService(enrollmentRepo, logr)
	webhookEventSvc := service.NewWebhookEventService(webhookRepo)

	handlers := server.Handlers{
		Auth:          handler.NewAuthHandler(inviteSvc, authSvc, cfg.Env == config.EnvProduction, logr),
		Checkout:      handler.NewCheckoutHandler(checkoutSvc),
		Webhook:       handler.NewWebhookHandler(payment.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance), reconciler, metrics, logr),
		WebhookEvents: handler.NewWebhookEventHandler(webhookEventSvc),
		Offers:        handler.NewOfferHandler(offerSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc, exportSvc),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"postgres": db,
			"redis":    handler.PingerFunc(cacheRepo.Ping),
		}),
	}

	router := server.NewRouter(server.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
	}, handlers, authSvc, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
