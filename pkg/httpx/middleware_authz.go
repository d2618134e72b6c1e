package httpx

import (
	"net/http"
	"slices"
)

// RequireRole allows the request through iff the authenticated role is one of
// the listed roles. It is a pure function of the request context: the
// authentication middleware must already have resolved the identity.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, RoleFromCtx(r.Context())) {
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":             "forbidden",
					"error_description": "You do not have permission to perform this action.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
