package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/decorly/decorly/internal/auth/service"
	"github.com/decorly/decorly/internal/auth/store"
	"github.com/decorly/decorly/pkg/httpx"
	"github.com/decorly/decorly/pkg/jwtx"
	"github.com/decorly/decorly/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	issuer       *jwtx.Issuer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	// CookieSecure marks the refresh cookie Secure; off in local dev only.
	CookieSecure bool

	// VerboseErrors leaks internal error detail in 500 bodies. Dev only.
	VerboseErrors bool

	store           store.Store
	AuthService     *service.AuthService
	PasswordService *service.PasswordService
	UserService     *service.UserService
}

func NewRouter(
	issuer *jwtx.Issuer,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPassword()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:  r.AuthService,
		CookieSecure: r.CookieSecure,
		Verbose:      r.VerboseErrors,
	}
	authn := AuthnMiddleware(r.issuer, r.store.Users())

	// Registration and login are the brute-force surface; strict IP limits.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	me := &MeHandler{UserService: r.UserService}
	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(me,
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{
		PasswordService: r.PasswordService,
		CookieSecure:    r.CookieSecure,
		Verbose:         r.VerboseErrors,
	}
	authn := AuthnMiddleware(r.issuer, r.store.Users())

	// Forgot/reset are unauthenticated and guessable; strict IP limits.
	r.Mux.Handle("POST /v1/auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/auth/reset-password/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("PATCH /v1/auth/password",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		UserService: r.UserService,
		Verbose:     r.VerboseErrors,
	}
	authn := AuthnMiddleware(r.issuer, r.store.Users())
	admin := httpx.RequireRole("admin")

	r.Mux.Handle("GET /v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			authn, admin,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/users/{id}/deactivate",
		httpx.Chain(http.HandlerFunc(h.HandleDeactivate),
			authn, admin,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/users/{id}/activate",
		httpx.Chain(http.HandlerFunc(h.HandleActivate),
			authn, admin,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			authn, admin,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
