package jwtx

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Class selects which signing secret a token is bound to. Access and refresh
// secrets must differ so a leaked refresh secret cannot mint access tokens
// and vice versa.
type Class string

const (
	ClassAccess  Class = "access"
	ClassRefresh Class = "refresh"
)

const minSecretLength = 32

var (
	// ErrExpired means the token was well-formed and correctly signed but its
	// lifetime has passed. Callers typically respond by prompting a refresh.
	ErrExpired = errors.New("jwtx: token expired")

	// ErrInvalid covers everything else: malformed structure, bad signature,
	// wrong class, wrong issuer. Callers respond by forcing a re-login.
	ErrInvalid = errors.New("jwtx: token invalid")
)

// IssuerConfig carries the secrets and lifetimes for an Issuer.
type IssuerConfig struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration // defaults to DefaultAccessTokenTTL
	RefreshTTL    time.Duration // defaults to DefaultRefreshTokenTTL
}

// Issuer mints and verifies HS256-signed access and refresh tokens.
type Issuer struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	// Now is the clock used for iat/exp and verification. Tests override it
	// to simulate expiry without sleeping.
	Now func() time.Time
}

// NewIssuer validates the configuration and returns an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.AccessSecret) < minSecretLength {
		return nil, fmt.Errorf("jwtx: access secret must be at least %d bytes", minSecretLength)
	}
	if len(cfg.RefreshSecret) < minSecretLength {
		return nil, fmt.Errorf("jwtx: refresh secret must be at least %d bytes", minSecretLength)
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("jwtx: access and refresh secrets must differ")
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}

	return &Issuer{
		issuer:        cfg.Issuer,
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		Now:           time.Now,
	}, nil
}

// AccessTTL reports the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccess mints a short-lived access token carrying subject and role.
func (i *Issuer) IssueAccess(subject, role string) (string, error) {
	claims := newClaims(i.issuer, subject, role, i.accessTTL, i.Now().UTC())
	return i.sign(claims, ClassAccess)
}

// IssueRefresh mints a long-lived refresh token carrying the subject only.
func (i *Issuer) IssueRefresh(subject string) (string, error) {
	claims := newClaims(i.issuer, subject, "", i.refreshTTL, i.Now().UTC())
	return i.sign(claims, ClassRefresh)
}

func (i *Issuer) sign(claims Claims, class Class) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secretFor(class))
	if err != nil {
		return "", fmt.Errorf("jwtx: signing failed: %w", err)
	}
	return signed, nil
}

// Verify checks a token against the given class's secret and returns its
// claims. It fails with ErrExpired for out-of-lifetime tokens and ErrInvalid
// for everything else, including a token of the other class: the signature
// check against the wrong secret cannot succeed.
func (i *Issuer) Verify(token string, class Class) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return i.secretFor(class), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return i.Now().UTC() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalid
	}
	return claims, nil
}

func (i *Issuer) secretFor(class Class) []byte {
	if class == ClassRefresh {
		return i.refreshSecret
	}
	return i.accessSecret
}
