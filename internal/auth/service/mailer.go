package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/decorly/decorly/internal/auth/domain"
)

// Mailer delivers out-of-band notifications. The reset-token plaintext only
// ever travels through this interface; the store sees the fingerprint.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to domain.User, token string, expiresAt time.Time) error
}

// LogMailer writes notifications to the log instead of sending them. Used in
// development and in tests; swap in a real SMTP implementation in production.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to domain.User, token string, expiresAt time.Time) error {
	m.Logger.Warn("password reset token issued (log mailer, not delivered)",
		slog.String("email", to.Email),
		slog.String("token", token),
		slog.Time("expires_at", expiresAt),
	)
	return nil
}
