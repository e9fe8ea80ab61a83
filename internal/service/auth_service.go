package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
	"github.com/techne-institute/cohort-portal-api/pkg/linksign"
)

// DefaultLandingPath is where signed-in students go when no destination is given.
const DefaultLandingPath = "/cohort"

const usedLinkKeyPrefix = "magiclink:used:"

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type linkVerifier interface {
	Parse(token string) (linksign.Claims, error)
}

type linkClaimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService exchanges sign-in links for access tokens and validates them.
type AuthService struct {
	users   authUserRepository
	links   linkVerifier
	claimer linkClaimer
	logger  *zap.Logger
	config  AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, links linkVerifier, claimer linkClaimer, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 7 * 24 * time.Hour
	}
	return &AuthService{users: users, links: links, claimer: claimer, logger: logger, config: config}
}

// AccessTokenExpiry reports the lifetime of issued tokens.
func (s *AuthService) AccessTokenExpiry() time.Duration {
	return s.config.AccessTokenExpiry
}

// ExchangeMagicLink verifies a sign-in link token, consumes it, and issues an
// access token. A token can be exchanged once.
func (s *AuthService) ExchangeMagicLink(ctx context.Context, token string) (*models.SessionResponse, error) {
	claims, err := s.links.Parse(strings.TrimSpace(token))
	if err != nil {
		s.logger.Debug("rejected sign-in link", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrLinkInvalid.Code, appErrors.ErrLinkInvalid.Status, appErrors.ErrLinkInvalid.Message)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrLinkInvalid
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.ErrInactive
	}

	ttl := time.Until(claims.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	first, err := s.claimer.Claim(ctx, usedLinkKeyPrefix+claims.ID, ttl)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume sign-in link")
	}
	if !first {
		s.logger.Info("sign-in link replayed", zap.String("user_id", user.ID), zap.String("link_id", claims.ID))
		return nil, appErrors.Clone(appErrors.ErrLinkInvalid, "sign-in link already used")
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	accessToken, _, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.SessionResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		Next:        SafeNextPath(claims.Next),
		IssuedAt:    now,
		User: models.UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	var opts []jwt.ParserOption
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// SafeNextPath keeps post-login redirects on this site. Anything other than
// an absolute local path falls back to DefaultLandingPath.
func SafeNextPath(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return DefaultLandingPath
	}
	return next
}
