package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/decorly/decorly/internal/auth/domain"
	"github.com/decorly/decorly/internal/auth/service"
	"github.com/decorly/decorly/pkg/httpx"
)

// refreshCookieName is the HTTP-only cookie carrying the refresh token for
// browser clients. Header-based clients read it from the response body.
const refreshCookieName = "refresh_token"

// AuthHandler serves registration, login, refresh and logout.
type AuthHandler struct {
	AuthService *service.AuthService

	// CookieSecure marks the refresh cookie Secure. Off only in local dev
	// over plain HTTP.
	CookieSecure bool

	Verbose bool
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse is the success body for every endpoint that hands out tokens.
type tokenResponse struct {
	TokenType    string         `json:"token_type"`
	AccessToken  string         `json:"access_token"`
	ExpiresIn    int64          `json:"expires_in"` // seconds
	RefreshToken string         `json:"refresh_token,omitempty"`
	User         domain.Profile `json:"user"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	user, pair, err := h.AuthService.Register(r.Context(), service.RegisterRequest{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		writeServiceError(w, r.Context(), h.Verbose, err)
		return
	}

	h.writeTokens(w, http.StatusCreated, user, pair)
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	user, pair, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r.Context(), h.Verbose, err)
		return
	}

	h.writeTokens(w, http.StatusOK, user, pair)
}

// HandleRefresh reads the refresh token from the HTTP-only cookie, falling
// back to the JSON body for non-browser clients.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if c, err := r.Cookie(refreshCookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			raw = req.RefreshToken
		}
	}
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", "no refresh token presented")
		return
	}

	user, pair, err := h.AuthService.Refresh(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r.Context(), h.Verbose, err)
		return
	}

	h.writeTokens(w, http.StatusOK, user, pair)
}

// HandleLogout clears the refresh cookie. Tokens are stateless so there is
// nothing to revoke server-side; the client discards its copy.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// writeTokens sets the refresh cookie and writes the token body. Shared by
// every flow that ends in a fresh pair.
func (h *AuthHandler) writeTokens(w http.ResponseWriter, status int, user domain.User, pair domain.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/v1/auth",
		MaxAge:   int(pair.RefreshTTL / time.Second),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})

	httpx.NoCache(w)
	httpx.WriteJSON(w, status, tokenResponse{
		TokenType:    "Bearer",
		AccessToken:  pair.AccessToken,
		ExpiresIn:    int64(pair.ExpiresIn / time.Second),
		RefreshToken: pair.RefreshToken,
		User:         user.Profile(),
	})
}
