package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MagicLinkRequest asks for a sign-in link to be emailed.
type MagicLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
	Next  string `json:"next"`
}

// SessionResponse is returned after a sign-in link is exchanged.
type SessionResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Next        string    `json:"next"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}
