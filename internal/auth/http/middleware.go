package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/decorly/decorly/internal/auth/store"
	"github.com/decorly/decorly/pkg/httpx"
	"github.com/decorly/decorly/pkg/jwtx"
	"github.com/decorly/decorly/pkg/slogx"
)

// AuthnMiddleware is the authentication gate. It verifies the bearer token as
// an access-class JWT, resolves the subject against the store and attaches
// identity and role to the request context.
//
// A cryptographically valid token is still refused when the record no longer
// supports it: subject gone (soft-deleted), password changed after the token
// was issued, or account deactivated. The role comes from the live record,
// not the token claim, so a demotion takes effect before the token expires.
func AuthnMiddleware(issuer *jwtx.Issuer, users store.Users) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := bearerToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "token_missing", "authorization required")
				return
			}

			claims, err := issuer.Verify(raw, jwtx.ClassAccess)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					writeError(w, http.StatusUnauthorized, "token_expired", "access token has expired")
					return
				}
				writeError(w, http.StatusUnauthorized, "token_invalid", "access token is invalid")
				return
			}

			user, err := users.GetUserByID(ctx, claims.Subject)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "token_invalid", "access token is invalid")
					return
				}
				log.Error("resolving token subject", "error", err, "user_id", claims.Subject)
				writeError(w, http.StatusInternalServerError, "server_error", "")
				return
			}

			if claims.IssuedAt == nil || user.PasswordChangedAfter(claims.IssuedAt.Time) {
				writeError(w, http.StatusUnauthorized, "password_changed", "password changed after this token was issued")
				return
			}
			if !user.Active {
				writeError(w, http.StatusUnauthorized, "account_disabled", "this account has been deactivated")
				return
			}

			ctx = httpx.ContextWithIdentity(ctx, user.ID, string(user.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
