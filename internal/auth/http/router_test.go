package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/decorly/decorly/internal/auth/domain"
	"github.com/decorly/decorly/internal/auth/service"
	"github.com/decorly/decorly/internal/auth/store"
	"github.com/decorly/decorly/internal/auth/store/drivers/sqlite"
	"github.com/decorly/decorly/pkg/cryptox"
	"github.com/decorly/decorly/pkg/idx"
	"github.com/decorly/decorly/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type stubMailer struct {
	token string
}

func (m *stubMailer) SendPasswordReset(_ context.Context, _ domain.User, token string, _ time.Time) error {
	m.token = token
	return nil
}

type testEnv struct {
	router *Router
	store  store.Store
	issuer *jwtx.Issuer
	mailer *stubMailer

	auth *service.AuthService
	pwd  *service.PasswordService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	issuer, err := jwtx.NewIssuer(jwtx.IssuerConfig{
		Issuer:        "decorly-test",
		AccessSecret:  []byte("test-access-secret-0123456789abcdef"),
		RefreshSecret: []byte("test-refresh-secret-0123456789abcde"),
	})
	require.NoError(t, err)

	mailer := &stubMailer{}
	auth := service.NewAuthService(st, issuer)
	pwd := service.NewPasswordService(st, issuer, mailer)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(issuer, "test", st, logger)
	router.AuthService = auth
	router.PasswordService = pwd
	router.UserService = &service.UserService{Store: st}
	router.ApplyRoutes()

	return &testEnv{
		router: router,
		store:  st,
		issuer: issuer,
		mailer: mailer,
		auth:   auth,
		pwd:    pwd,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email string) tokenResponse {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/v1/auth/register", map[string]string{
		"name":             "Test User",
		"email":            email,
		"password":         "Sup3r$ecret",
		"password_confirm": "Sup3r$ecret",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// createAdmin inserts an admin record directly; there is no HTTP path that
// grants the admin role.
func (e *testEnv) createAdmin(t *testing.T, email, password string) {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, e.store.Users().CreateUser(context.Background(), domain.User{
		ID:           idx.New().String(),
		Name:         "Admin",
		Email:        email,
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterLoginMe(t *testing.T) {
	e := newTestEnv(t)

	reg := e.register(t, "alice@example.com")
	require.Equal(t, "Bearer", reg.TokenType)
	require.NotEmpty(t, reg.AccessToken)
	require.NotEmpty(t, reg.RefreshToken)
	require.Equal(t, "alice@example.com", reg.User.Email)
	require.Equal(t, domain.RoleUser, reg.User.Role)

	rec := e.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "Sup3r$ecret",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookie := findCookie(t, rec, refreshCookieName)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Positive(t, cookie.MaxAge)

	var login tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = e.do(t, http.MethodGet, "/v1/auth/me", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile domain.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	require.Equal(t, "alice@example.com", profile.Email)
	require.NotNil(t, profile.LastLogin)

	rec = e.do(t, http.MethodGet, "/v1/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "bob@example.com")

	unknown := e.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	}, "")
	wrong := e.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "bob@example.com",
		"password": "wrong-password",
	}, "")

	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.JSONEq(t, unknown.Body.String(), wrong.Body.String(),
		"unknown address and wrong password must be indistinguishable")
}

func TestRegisterValidationListsEveryRule(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/auth/register", map[string]string{
		"email":            "not-an-address",
		"password":         "short",
		"password_confirm": "other",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "validation_error", resp.Error)
	require.Contains(t, resp.Description, "name is required")
	require.Contains(t, resp.Description, "uppercase")
	require.Contains(t, resp.Description, "confirmation")
}

func TestRefreshViaCookieAndBody(t *testing.T) {
	e := newTestEnv(t)
	reg := e.register(t, "carol@example.com")

	rec := e.do(t, http.MethodPost, "/v1/auth/refresh", nil, "", &http.Cookie{
		Name:  refreshCookieName,
		Value: reg.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{
		"refresh_token": reg.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/v1/auth/refresh", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// An access token presented as a refresh token is refused.
	rec = e.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{
		"refresh_token": reg.AccessToken,
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsRefreshCookie(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/auth/logout", nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	cookie := findCookie(t, rec, refreshCookieName)
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
	require.Negative(t, cookie.MaxAge)
}

func TestPasswordUpdateInvalidatesOldTokens(t *testing.T) {
	e := newTestEnv(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e.issuer.Now = func() time.Time { return base }
	e.auth.Now = func() time.Time { return base }
	e.pwd.Now = func() time.Time { return base }

	reg := e.register(t, "dave@example.com")

	// The change happens ten seconds later.
	later := base.Add(10 * time.Second)
	e.issuer.Now = func() time.Time { return later }
	e.pwd.Now = func() time.Time { return later }

	rec := e.do(t, http.MethodPatch, "/v1/auth/password", map[string]string{
		"current_password": "Sup3r$ecret",
		"password":         "N3w$ecret!",
		"password_confirm": "N3w$ecret!",
	}, reg.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))

	// Pre-change access token is dead, the replacement works.
	rec = e.do(t, http.MethodGet, "/v1/auth/me", nil, reg.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "password_changed", resp.Error)

	rec = e.do(t, http.MethodGet, "/v1/auth/me", nil, updated.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPasswordUpdateWrongCurrent(t *testing.T) {
	e := newTestEnv(t)
	reg := e.register(t, "erin@example.com")

	rec := e.do(t, http.MethodPatch, "/v1/auth/password", map[string]string{
		"current_password": "wrong",
		"password":         "N3w$ecret!",
		"password_confirm": "N3w$ecret!",
	}, reg.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "current_password_incorrect", resp.Error)
}

func TestForgotResetFlow(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "frank@example.com")

	rec := e.do(t, http.MethodPost, "/v1/auth/forgot-password", map[string]string{
		"email": "frank@example.com",
	}, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotEmpty(t, e.mailer.token)

	// Unknown addresses get the same acceptance.
	rec = e.do(t, http.MethodPost, "/v1/auth/forgot-password", map[string]string{
		"email": "nobody@example.com",
	}, "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = e.do(t, http.MethodPatch, "/v1/auth/reset-password/"+e.mailer.token, map[string]string{
		"password":         "N3w$ecret!",
		"password_confirm": "N3w$ecret!",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reset tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reset))
	require.NotEmpty(t, reset.AccessToken)

	// The token is spent.
	rec = e.do(t, http.MethodPatch, "/v1/auth/reset-password/"+e.mailer.token, map[string]string{
		"password":         "An0ther$ecret",
		"password_confirm": "An0ther$ecret",
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var spent ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spent))
	require.Equal(t, "invalid_reset_token", spent.Error)

	rec = e.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "frank@example.com",
		"password": "Sup3r$ecret",
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code, "old password is gone")

	rec = e.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "frank@example.com",
		"password": "N3w$ecret!",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestResetUnknownTokenRejected(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPatch, "/v1/auth/reset-password/never-issued", map[string]string{
		"password":         "N3w$ecret!",
		"password_confirm": "N3w$ecret!",
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "invalid_reset_token", resp.Error)
}

func TestAdminUserManagement(t *testing.T) {
	e := newTestEnv(t)

	user := e.register(t, "grace@example.com")
	e.createAdmin(t, "admin@example.com", "Adm1n$ecret")

	rec := e.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "admin@example.com",
		"password": "Adm1n$ecret",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var admin tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &admin))

	// A regular user cannot touch the admin surface.
	rec = e.do(t, http.MethodGet, "/v1/users", nil, user.AccessToken)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/users", nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list struct {
		Users []domain.Profile `json:"users"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)

	// Deactivation takes effect immediately, even for live tokens.
	rec = e.do(t, http.MethodPatch, "/v1/users/"+user.User.ID+"/deactivate", nil, admin.AccessToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/auth/me", nil, user.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "account_disabled", resp.Error)

	rec = e.do(t, http.MethodPatch, "/v1/users/"+user.User.ID+"/activate", nil, admin.AccessToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/auth/me", nil, user.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDeletedUserTokenRejected(t *testing.T) {
	e := newTestEnv(t)

	user := e.register(t, "heidi@example.com")
	e.createAdmin(t, "admin@example.com", "Adm1n$ecret")

	rec := e.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "admin@example.com",
		"password": "Adm1n$ecret",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var admin tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &admin))

	rec = e.do(t, http.MethodDelete, "/v1/users/"+user.User.ID, nil, admin.AccessToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The token still verifies cryptographically but the subject is gone.
	rec = e.do(t, http.MethodGet, "/v1/auth/me", nil, user.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "token_invalid", resp.Error)
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/livez", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/readyz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks["database"])
}
