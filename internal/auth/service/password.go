package service

import (
	"context"
	"errors"
	"time"

	"github.com/decorly/decorly/internal/auth/domain"
	"github.com/decorly/decorly/internal/auth/store"
	"github.com/decorly/decorly/pkg/cryptox"
	"github.com/decorly/decorly/pkg/jwtx"
	"github.com/decorly/decorly/pkg/slogx"
)

// DefaultResetTokenTTL is how long a password-reset token stays redeemable.
const DefaultResetTokenTTL = 10 * time.Minute

// PasswordService handles the forgot/reset flow and in-session password
// changes. Every path that rewrites the hash backdates password-changed-at by
// one second so tokens minted in the same wall-clock second are still cut off.
type PasswordService struct {
	Store  store.Store
	Issuer *jwtx.Issuer
	Mailer Mailer

	ResetTokenTTL time.Duration

	Now func() time.Time
}

// NewPasswordService fills in the reset-token default.
func NewPasswordService(st store.Store, issuer *jwtx.Issuer, mailer Mailer) *PasswordService {
	return &PasswordService{
		Store:         st,
		Issuer:        issuer,
		Mailer:        mailer,
		ResetTokenTTL: DefaultResetTokenTTL,
		Now:           time.Now,
	}
}

func (s *PasswordService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Forgot mints a reset token for the given address and hands the plaintext to
// the mailer. A lookup miss is NOT an error: the endpoint reports acceptance
// either way so it cannot be used to enumerate accounts.
func (s *PasswordService) Forgot(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("forgot-password for unknown address", "email", normalizeEmail(email))
			return nil
		}
		return err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	now := s.now()
	expiresAt := now.Add(s.ResetTokenTTL)
	fingerprint := cryptox.FingerprintToken(token)

	if err := s.Store.Users().SetResetToken(ctx, user.ID, fingerprint, expiresAt); err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordReset(ctx, user, token, expiresAt); err != nil {
		// The plaintext never reached the user; expire the fingerprint so the
		// record is not left holding a token nobody can redeem or audit.
		if clearErr := s.Store.Users().SetResetToken(ctx, user.ID, fingerprint, now); clearErr != nil {
			log.Error("expiring undelivered reset token", "error", clearErr, "user_id", user.ID)
		}
		return err
	}

	return nil
}

// Reset redeems a reset token and sets a new password. Redemption is a single
// compare-and-clear update in the store, so a token can only ever be spent
// once no matter how many requests race on it. The user is logged in on
// success, matching the registration flow.
func (s *PasswordService) Reset(ctx context.Context, token, newPassword, confirm string) (domain.User, domain.TokenPair, error) {
	if verr := validatePassword(newPassword, confirm); verr != nil {
		return domain.User{}, domain.TokenPair{}, verr
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	now := s.now()
	changedAt := now.Add(-time.Second)

	user, err := s.Store.Users().ConsumeResetToken(ctx, cryptox.FingerprintToken(token), hash, now, changedAt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown, expired and already-redeemed all collapse into one
			// answer on purpose.
			return domain.User{}, domain.TokenPair{}, ErrResetTokenInvalid
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	pair, err := issueTokenPair(s.Issuer, user)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// Update changes the password of an authenticated user after re-proving the
// current one. Outstanding tokens (including the one that authenticated this
// request) stop working immediately; the returned pair replaces them.
func (s *PasswordService) Update(ctx context.Context, userID, currentPassword, newPassword, confirm string) (domain.User, domain.TokenPair, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	if cryptox.VerifyPassword(currentPassword, user.PasswordHash) != nil {
		return domain.User{}, domain.TokenPair{}, ErrCurrentPassword
	}

	if verr := validatePassword(newPassword, confirm); verr != nil {
		return domain.User{}, domain.TokenPair{}, verr
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	changedAt := s.now().Add(-time.Second)
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, changedAt); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt

	pair, err := issueTokenPair(s.Issuer, user)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	return user, pair, nil
}
