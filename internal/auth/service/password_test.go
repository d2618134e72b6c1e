package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/decorly/decorly/internal/auth/domain"
	"github.com/decorly/decorly/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	calls     int
	token     string
	expiresAt time.Time
	err       error
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _ domain.User, token string, expiresAt time.Time) error {
	m.calls++
	m.token = token
	m.expiresAt = expiresAt
	return m.err
}

func TestForgotAndReset(t *testing.T) {
	st := newTestStore(t)
	issuer := newTestIssuer(t)
	auth := NewAuthService(st, issuer)
	mailer := &captureMailer{}
	pwd := NewPasswordService(st, issuer, mailer)
	ctx := context.Background()

	user, _ := registerUser(t, auth, "alice@example.com")

	require.NoError(t, pwd.Forgot(ctx, "ALICE@example.com"))
	require.Equal(t, 1, mailer.calls)
	require.NotEmpty(t, mailer.token)

	// Only the fingerprint lands in the store.
	stored, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetTokenHash)
	require.NotEqual(t, mailer.token, *stored.ResetTokenHash)
	require.Equal(t, cryptox.FingerprintToken(mailer.token), *stored.ResetTokenHash)

	got, pair, err := pwd.Reset(ctx, mailer.token, "N3w$ecret!", "N3w$ecret!")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.NotEmpty(t, pair.AccessToken)

	// Old password is gone, new one works.
	_, _, err = auth.Login(ctx, "alice@example.com", "Sup3r$ecret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.Login(ctx, "alice@example.com", "N3w$ecret!")
	require.NoError(t, err)
}

func TestResetTokenSingleUse(t *testing.T) {
	st := newTestStore(t)
	issuer := newTestIssuer(t)
	auth := NewAuthService(st, issuer)
	mailer := &captureMailer{}
	pwd := NewPasswordService(st, issuer, mailer)
	ctx := context.Background()

	registerUser(t, auth, "bob@example.com")
	require.NoError(t, pwd.Forgot(ctx, "bob@example.com"))

	_, _, err := pwd.Reset(ctx, mailer.token, "N3w$ecret!", "N3w$ecret!")
	require.NoError(t, err)

	_, _, err = pwd.Reset(ctx, mailer.token, "An0ther$ecret", "An0ther$ecret")
	require.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetTokenExpired(t *testing.T) {
	st := newTestStore(t)
	issuer := newTestIssuer(t)
	auth := NewAuthService(st, issuer)
	mailer := &captureMailer{}
	pwd := NewPasswordService(st, issuer, mailer)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	pwd.Now = func() time.Time { return now }

	registerUser(t, auth, "carol@example.com")
	require.NoError(t, pwd.Forgot(ctx, "carol@example.com"))

	now = now.Add(DefaultResetTokenTTL + time.Second)
	_, _, err := pwd.Reset(ctx, mailer.token, "N3w$ecret!", "N3w$ecret!")
	require.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetUnknownToken(t *testing.T) {
	st := newTestStore(t)
	issuer := newTestIssuer(t)
	pwd := NewPasswordService(st, issuer, &captureMailer{})

	_, _, err := pwd.Reset(context.Background(), "never-issued", "N3w$ecret!", "N3w$ecret!")
	require.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestResetWeakPasswordKeepsToken(t *testing.T) {
	st := newTestStore(t)
	issuer := newTestIssuer(t)
	auth := NewAuthService(st, issuer)
	mailer := &captureMailer{}
	pwd := NewPasswordService(st, issuer, mailer)
	ctx := context.Background()

	registerUser(t, auth, "dave@example.com")
	require.NoError(t, pwd.Forgot(ctx, "dave@example.com"))

	var verr *ValidationError
	_, _, err := pwd.Reset(ctx, mailer.token, "weak", "weak")
	require.ErrorAs(t, err, &verr)

	// Validation happens before redemption; the token is still live.
	_, _, err = pwd.Reset(ctx, mailer.token, "N3w$ecret!", "N3w$ecret!")
	require.NoError(t, err)
}

func TestForgotUnknownEmailIsSilent(t *testing.T) {
	st := newTestStore(t)
	mailer := &captureMailer{}
	pwd := NewPasswordService(st, newTestIssuer(t), mailer)

	require.NoError(t, pwd.Forgot(context.Background(), "nobody@example.com"))
	require.Zero(t, mailer.calls, "no mail for unknown addresses")
}

func TestForgotMailerFailureExpiresToken(t *testing.T) {
	st := newTestStore(t)
	issuer := newTestIssuer(t)
	auth := NewAuthService(st, issuer)
	mailer := &captureMailer{err: errors.New("smtp down")}
	pwd := NewPasswordService(st, issuer, mailer)
	ctx := context.Background()

	registerUser(t, auth, "erin@example.com")

	err := pwd.Forgot(ctx, "erin@example.com")
	require.Error(t, err)

	// The undelivered token must not stay redeemable.
	_, _, err = pwd.Reset(ctx, mailer.token, "N3w$ecret!", "N3w$ecret!")
	require.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestUpdatePassword(t *testing.T) {
	st := newTestStore(t)
	issuer := newTestIssuer(t)
	auth := NewAuthService(st, issuer)
	pwd := NewPasswordService(st, issuer, &captureMailer{})
	ctx := context.Background()

	user, _ := registerUser(t, auth, "frank@example.com")

	_, _, err := pwd.Update(ctx, user.ID, "wrong-current", "N3w$ecret!", "N3w$ecret!")
	require.ErrorIs(t, err, ErrCurrentPassword)

	var verr *ValidationError
	_, _, err = pwd.Update(ctx, user.ID, "Sup3r$ecret", "weak", "weak")
	require.ErrorAs(t, err, &verr)

	got, pair, err := pwd.Update(ctx, user.ID, "Sup3r$ecret", "N3w$ecret!", "N3w$ecret!")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.NotEmpty(t, pair.AccessToken)

	_, _, err = auth.Login(ctx, "frank@example.com", "N3w$ecret!")
	require.NoError(t, err)
}

func TestUpdatePasswordInvalidatesOldRefreshTokens(t *testing.T) {
	st := newTestStore(t)
	issuer := newTestIssuer(t)
	auth := NewAuthService(st, issuer)
	pwd := NewPasswordService(st, issuer, &captureMailer{})
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	issuer.Now = func() time.Time { return base }
	auth.Now = func() time.Time { return base }
	pwd.Now = func() time.Time { return base.Add(10 * time.Second) }

	user, pair := registerUser(t, auth, "grace@example.com")

	// The replacement pair is minted after the change instant.
	issuer.Now = func() time.Time { return base.Add(10 * time.Second) }
	_, newPair, err := pwd.Update(ctx, user.ID, "Sup3r$ecret", "N3w$ecret!", "N3w$ecret!")
	require.NoError(t, err)

	issuer.Now = func() time.Time { return base.Add(time.Minute) }

	_, _, err = auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh, "pre-change refresh token is dead")

	// The pair handed back by the change itself keeps working.
	_, _, err = auth.Refresh(ctx, newPair.RefreshToken)
	require.NoError(t, err)
}

func TestValidatePasswordEnumeratesRules(t *testing.T) {
	verr := validatePassword("abc", "abc")
	require.NotNil(t, verr)
	require.Len(t, verr.Violations, 4, "length, upper, digit, special")

	require.Nil(t, validatePassword("G00d-Enough!", "G00d-Enough!"))

	verr = validatePassword("G00d-Enough!", "different")
	require.NotNil(t, verr)
	require.Len(t, verr.Violations, 1)
}

func TestValidatePasswordCountsRunesNotBytes(t *testing.T) {
	// Five characters that span nine bytes still fail the length rule.
	short := "Ab1!\U0001F642"
	verr := validatePassword(short, short)
	require.NotNil(t, verr)
	require.Contains(t, verr.Violations, "password must be at least 8 characters")

	// Eight runes satisfy it even when the byte count exceeds eight anyway.
	ok := "Ab1!\U0001F642xyz"
	require.Nil(t, validatePassword(ok, ok))
}
