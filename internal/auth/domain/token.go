package domain

import "time"

// TokenPair is an access/refresh token pair handed out after a successful
// authentication. Tokens are stateless; nothing here is persisted.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration // access token lifetime
	RefreshTTL   time.Duration // refresh token lifetime, drives the cookie expiry
}
