package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/handler"
	"github.com/techne-institute/cohort-portal-api/internal/middleware"
	"github.com/techne-institute/cohort-portal-api/internal/models"
	"github.com/techne-institute/cohort-portal-api/internal/service"
	"github.com/techne-institute/cohort-portal-api/pkg/logger"
	corsmiddleware "github.com/techne-institute/cohort-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/techne-institute/cohort-portal-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler the portal serves.
type Handlers struct {
	Auth          *handler.AuthHandler
	Checkout      *handler.CheckoutHandler
	Webhook       *handler.WebhookHandler
	WebhookEvents *handler.WebhookEventHandler
	Offers        *handler.OfferHandler
	Enrollments   *handler.EnrollmentHandler
	Metrics       *handler.MetricsHandler
}

// Options tunes router construction.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
}

// NewRouter builds the gin engine. Probes and /metrics live at the root, the
// API under opts.APIPrefix.
func NewRouter(opts Options, h Handlers, tokens middleware.TokenValidator, metrics *service.MetricsService, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)

	api.POST("/webhooks/stripe", h.Webhook.Stripe)
	api.POST("/checkout", h.Checkout.Create)
	api.GET("/checkout/session", h.Checkout.Session)
	api.GET("/offers", h.Offers.List)
	api.GET("/offers/:slug", h.Offers.Get)

	auth := api.Group("/auth")
	auth.POST("/magic-link", h.Auth.RequestLink)
	auth.GET("/callback", h.Auth.Callback)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/me", middleware.JWT(tokens), h.Auth.Me)

	me := api.Group("/me", middleware.JWT(tokens))
	me.GET("/enrollments", h.Enrollments.Mine)

	admin := api.Group("/admin", middleware.JWT(tokens), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/enrollments", h.Enrollments.List)
	admin.GET("/enrollments/export", h.Enrollments.Export)
	admin.GET("/webhook-events", h.WebhookEvents.List)
	admin.GET("/metrics", h.Metrics.Snapshot)

	return r
}
