package http

import (
	"encoding/json"
	"net/http"

	"github.com/decorly/decorly/internal/auth/service"
	"github.com/decorly/decorly/pkg/httpx"
)

// PasswordHandler serves the forgot/reset flow and in-session password
// changes. Reset and update hand out a fresh token pair because the change
// invalidates everything issued before it.
type PasswordHandler struct {
	PasswordService *service.PasswordService

	CookieSecure bool
	Verbose      bool
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// HandleForgot always reports acceptance, whether or not the address exists.
func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.PasswordService.Forgot(r.Context(), req.Email); err != nil {
		writeServiceError(w, r.Context(), h.Verbose, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}

// HandleReset redeems the token from the URL path and logs the user in.
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "reset token is required")
		return
	}

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	user, pair, err := h.PasswordService.Reset(r.Context(), token, req.Password, req.PasswordConfirm)
	if err != nil {
		writeServiceError(w, r.Context(), h.Verbose, err)
		return
	}

	auth := AuthHandler{CookieSecure: h.CookieSecure}
	auth.writeTokens(w, http.StatusOK, user, pair)
}

// HandleUpdate changes the authenticated user's password after re-proving
// the current one.
func (h *PasswordHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromCtx(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "token_invalid", "")
		return
	}

	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	user, pair, err := h.PasswordService.Update(r.Context(), userID, req.CurrentPassword, req.Password, req.PasswordConfirm)
	if err != nil {
		writeServiceError(w, r.Context(), h.Verbose, err)
		return
	}

	auth := AuthHandler{CookieSecure: h.CookieSecure}
	auth.writeTokens(w, http.StatusOK, user, pair)
}
