package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/decorly/decorly/internal/auth/service"
	"github.com/decorly/decorly/internal/auth/store"
	"github.com/decorly/decorly/pkg/httpx"
	"github.com/decorly/decorly/pkg/slogx"
)

// ErrorResponse is the stable error body every endpoint returns.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeError(w http.ResponseWriter, code int, err, description string) {
	httpx.WriteJSON(w, code, ErrorResponse{Error: err, Description: description})
}

// writeServiceError maps service-layer errors onto the wire. Expected
// ("operational") errors get their stable code and message; anything else is
// logged in full and surfaced as an opaque 500. With verbose set (dev only),
// the internal detail rides along in the description.
func writeServiceError(w http.ResponseWriter, ctx context.Context, verbose bool, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation_error", verr.Error())
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "email_taken", "an account with this email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "incorrect email or password")
	case errors.Is(err, service.ErrAccountLocked):
		writeError(w, http.StatusUnauthorized, "account_locked", "too many failed attempts, try again later")
	case errors.Is(err, service.ErrAccountDisabled):
		writeError(w, http.StatusUnauthorized, "account_disabled", "this account has been deactivated")
	case errors.Is(err, service.ErrInvalidRefresh):
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", "refresh token is invalid or expired")
	case errors.Is(err, service.ErrResetTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid_reset_token", "reset token is invalid or has expired")
	case errors.Is(err, service.ErrCurrentPassword):
		writeError(w, http.StatusUnauthorized, "current_password_incorrect", "current password is incorrect")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "")
	default:
		slogx.FromContext(ctx).Error("unhandled service error", "error", err)
		description := ""
		if verbose {
			description = err.Error()
		}
		writeError(w, http.StatusInternalServerError, "server_error", description)
	}
}
