package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short access tokens bound the window in which a stolen
// token is useful; the refresh TTL trades that against re-login frequency.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the token claims shared by both token classes. The payload
// carries identity and role only; credential material never goes in a token.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the subject's role snapshotted at issuance. Present on access
	// tokens only; refresh tokens carry the bare subject.
	Role string `json:"role,omitempty"`
}

// newClaims builds minimally-correct registered claims for a subject.
func newClaims(issuer, subject, role string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Role: role,
	}
}

// newJTI returns a URL-safe random identifier for the "jti" claim.
func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
