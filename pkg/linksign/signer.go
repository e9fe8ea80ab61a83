// Package linksign mints and verifies the HMAC-signed tokens embedded in
// sign-in links.
package linksign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMalformed = errors.New("linksign: malformed token")
	ErrSignature = errors.New("linksign: invalid token signature")
	ErrExpired   = errors.New("linksign: token expired")
)

// Claims is the verified content of a link token.
type Claims struct {
	ID        string
	UserID    string
	Next      string
	ExpiresAt time.Time
}

// Signer creates and validates sign-in link tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL reports how long generated tokens stay valid.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Generate returns a signed token for the user and post-login destination.
func (s *Signer) Generate(userID, next string) (string, Claims, error) {
	if userID == "" {
		return "", Claims{}, fmt.Errorf("userID required")
	}
	if len(s.secret) == 0 {
		return "", Claims{}, fmt.Errorf("signing secret missing")
	}
	claims := Claims{
		ID:        uuid.NewString(),
		UserID:    userID,
		Next:      next,
		ExpiresAt: s.now().Add(s.ttl).Truncate(time.Second),
	}
	encodedNext := base64.RawURLEncoding.EncodeToString([]byte(next))
	ts := strconv.FormatInt(claims.ExpiresAt.Unix(), 10)
	signature := s.sign(claims.ID, claims.UserID, ts, encodedNext)
	token := strings.Join([]string{claims.ID, claims.UserID, ts, encodedNext, signature}, ".")
	return token, claims, nil
}

// Parse validates a token and returns the embedded claims.
func (s *Signer) Parse(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 5 {
		return Claims{}, ErrMalformed
	}
	id, userID, ts, encodedNext, signature := parts[0], parts[1], parts[2], parts[3], parts[4]
	if id == "" || userID == "" {
		return Claims{}, ErrMalformed
	}

	expected := s.sign(id, userID, ts, encodedNext)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Claims{}, ErrSignature
	}

	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Claims{}, ErrMalformed
	}
	rawNext, err := base64.RawURLEncoding.DecodeString(encodedNext)
	if err != nil {
		return Claims{}, ErrMalformed
	}

	claims := Claims{ID: id, UserID: userID, Next: string(rawNext), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(claims.ExpiresAt) {
		return Claims{}, ErrExpired
	}
	return claims, nil
}

func (s *Signer) sign(id, userID, ts, encodedNext string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id + "|" + userID + "|" + ts + "|" + encodedNext))
	return hex.EncodeToString(mac.Sum(nil))
}
