package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/decorly/decorly/internal/auth/domain"
	httpapi "github.com/decorly/decorly/internal/auth/http"
	"github.com/decorly/decorly/internal/auth/service"
	"github.com/decorly/decorly/internal/auth/store"
	"github.com/decorly/decorly/internal/auth/store/drivers/sqlite"
	"github.com/decorly/decorly/pkg/cryptox"
	"github.com/decorly/decorly/pkg/idx"
	"github.com/decorly/decorly/pkg/jwtx"
	"github.com/decorly/decorly/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	issuer *jwtx.Issuer

	authService         *service.AuthService
	passwordService     *service.PasswordService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "decorly-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	issuer, err := jwtx.NewIssuer(jwtx.IssuerConfig{
		Issuer:        cfg.Issuer,
		AccessSecret:  []byte(cfg.AccessSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	app.issuer = issuer

	app.initServices()
	app.initHTTP()

	if err := app.seedAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:            app.db,
		Issuer:           app.issuer,
		LockoutThreshold: app.cfg.LockoutThreshold,
		LockoutDuration:  app.cfg.LockoutDuration,
		Now:              time.Now,
	}

	app.passwordService = &service.PasswordService{
		Store:         app.db,
		Issuer:        app.issuer,
		Mailer:        &service.LogMailer{Logger: app.logger},
		ResetTokenTTL: app.cfg.ResetTokenTTL,
		Now:           time.Now,
	}

	app.userService = &service.UserService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.issuer, BuildVersion, app.db, app.logger)
	router.CookieSecure = app.cfg.CookieSecure
	router.VerboseErrors = app.cfg.VerboseErrors
	router.AuthService = app.authService
	router.PasswordService = app.passwordService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// seedAdmin creates the configured admin account on first startup. It is a
// no-op when unconfigured or when the address already has a live record.
func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.AdminEmail == "" || app.cfg.AdminPassword == "" {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(app.cfg.AdminEmail))

	_, err := app.db.Users().GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to check admin account: %w", err)
	}

	hash, err := cryptox.HashPassword(app.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now().UTC()
	admin := domain.User{
		ID:           idx.New().String(),
		Name:         "Administrator",
		Email:        email,
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := app.db.Users().CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	app.logger.Info("admin account seeded", "email", email)
	return nil
}
