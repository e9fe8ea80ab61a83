package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/middleware"
	"github.com/techne-institute/cohort-portal-api/internal/models"
	"github.com/techne-institute/cohort-portal-api/internal/service"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
	"github.com/techne-institute/cohort-portal-api/pkg/response"
)

type signInLinkRequester interface {
	RequestSignInLink(ctx context.Context, req models.MagicLinkRequest) error
}

type magicLinkExchanger interface {
	ExchangeMagicLink(ctx context.Context, token string) (*models.SessionResponse, error)
}

// AuthHandler wires magic-link sign-in endpoints.
type AuthHandler struct {
	invites      signInLinkRequester
	auth         magicLinkExchanger
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandler creates a new handler. secureCookie marks the session cookie
// HTTPS-only.
func NewAuthHandler(invites signInLinkRequester, auth magicLinkExchanger, secureCookie bool, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{invites: invites, auth: auth, secureCookie: secureCookie, logger: logger}
}

// RequestLink godoc
// @Summary Request sign-in link
// @Description Emails a one-time sign-in link when the address belongs to an active account. Always answers 202.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.MagicLinkRequest true "Email and post sign-in path"
// @Success 202 {object} map[string]string
// @Failure 400 {object} response.Envelope
// @Router /auth/magic-link [post]
func (h *AuthHandler) RequestLink(c *gin.Context) {
	var req models.MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.invites.RequestSignInLink(c.Request.Context(), req); err != nil {
		if appErrors.Is(err, appErrors.ErrValidation) {
			response.Error(c, err)
			return
		}
		// The caller learns nothing about the account either way.
		h.logger.Error("sign-in link request failed", zap.Error(err))
	}
	response.Accepted(c)
}

// Callback godoc
// @Summary Exchange sign-in link
// @Description Consumes a sign-in link token once, sets the access_token cookie and returns the session
// @Tags Authentication
// @Produce json
// @Param token query string true "Sign-in link token"
// @Param next query string false "Post sign-in path"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.ErrLinkInvalid)
		return
	}

	session, err := h.auth.ExchangeMagicLink(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	// The path signed into the link wins over the query string.
	if next := c.Query("next"); next != "" && session.Next == service.DefaultLandingPath {
		session.Next = service.SafeNextPath(next)
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, session.AccessToken, int(session.ExpiresIn), "/", "", h.secureCookie, true)
	response.JSON(c, http.StatusOK, session, nil)
}

// Me godoc
// @Summary Get current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	info := models.UserInfo{ID: claims.UserID, Email: claims.Email, Role: claims.Role}
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	response.JSON(c, http.StatusOK, info, nil, map[string]interface{}{"expires_at": expires})
}

// Logout godoc
// @Summary Sign out
// @Description Clears the session cookie
// @Tags Authentication
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}
