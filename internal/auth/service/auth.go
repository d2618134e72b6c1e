package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/decorly/decorly/internal/auth/domain"
	"github.com/decorly/decorly/internal/auth/store"
	"github.com/decorly/decorly/pkg/cryptox"
	"github.com/decorly/decorly/pkg/idx"
	"github.com/decorly/decorly/pkg/jwtx"
	"github.com/decorly/decorly/pkg/slogx"
)

const (
	// DefaultLockoutThreshold is the number of consecutive failed logins that
	// triggers a temporary lock on the record.
	DefaultLockoutThreshold = 5

	// DefaultLockoutDuration is how long a locked record refuses logins.
	DefaultLockoutDuration = 15 * time.Minute
)

// AuthService orchestrates registration, login and token refresh.
type AuthService struct {
	Store  store.Store
	Issuer *jwtx.Issuer

	LockoutThreshold int
	LockoutDuration  time.Duration

	// Now is the clock for lockout and timestamp decisions. Tests override it.
	Now func() time.Time
}

// NewAuthService fills in lockout defaults.
func NewAuthService(st store.Store, issuer *jwtx.Issuer) *AuthService {
	return &AuthService{
		Store:            st,
		Issuer:           issuer,
		LockoutThreshold: DefaultLockoutThreshold,
		LockoutDuration:  DefaultLockoutDuration,
		Now:              time.Now,
	}
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// RegisterRequest carries the self-registration inputs. There is deliberately
// no role field: every signup starts as a regular user.
type RegisterRequest struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	PasswordConfirm string
}

// Register creates a credential record and logs the new user straight in.
// Returns ErrEmailTaken when a non-deleted record already owns the address,
// and *ValidationError listing every violated input rule.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (domain.User, domain.TokenPair, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)

	var violations []string
	if name == "" {
		violations = append(violations, "name is required")
	}
	if email == "" {
		violations = append(violations, "email is required")
	} else if !validEmail(email) {
		violations = append(violations, "email is not a valid address")
	}
	if verr := validatePassword(req.Password, req.PasswordConfirm); verr != nil {
		violations = append(violations, verr.Violations...)
	}
	if len(violations) > 0 {
		return domain.User{}, domain.TokenPair{}, &ValidationError{Violations: violations}
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	now := s.now()
	user := domain.User{
		ID:           idx.New().String(),
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         domain.RoleUser,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, domain.TokenPair{}, ErrEmailTaken
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	pair, err := issueTokenPair(s.Issuer, user)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// Login authenticates an email/password pair. Unknown address and wrong
// password both come back as ErrInvalidCredentials; a lock in force comes
// back as ErrAccountLocked without consulting the password at all.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash verification anyway so a lookup miss takes about as
			// long as a wrong password against a real record.
			_ = cryptox.VerifyPassword(password, dummyPasswordHash())
			return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	now := s.now()
	if user.LockedAt(now) {
		return domain.User{}, domain.TokenPair{}, ErrAccountLocked
	}

	if cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		lockUntil := now.Add(s.LockoutDuration)
		if err := s.Store.Users().RecordLoginFailure(ctx, user.ID, s.LockoutThreshold, lockUntil); err != nil {
			log.Error("recording login failure", "error", err, "user_id", user.ID)
		}
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	if !user.Active {
		return domain.User{}, domain.TokenPair{}, ErrAccountDisabled
	}

	if err := s.Store.Users().RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	user.FailedLogins = 0
	user.LockedUntil = nil
	user.LastLogin = &now

	pair, err := issueTokenPair(s.Issuer, user)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh verifies a refresh token and mints a fresh pair. Refresh tokens are
// reusable until they expire; a password change cuts them off because the
// record's password-changed-at postdates the token's issue time.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.User, domain.TokenPair, error) {
	claims, err := s.Issuer.Verify(refreshToken, jwtx.ClassRefresh)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, ErrInvalidRefresh
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if claims.IssuedAt == nil || user.PasswordChangedAfter(claims.IssuedAt.Time) {
		return domain.User{}, domain.TokenPair{}, ErrInvalidRefresh
	}
	if !user.Active {
		return domain.User{}, domain.TokenPair{}, ErrAccountDisabled
	}

	pair, err := issueTokenPair(s.Issuer, user)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// issueTokenPair mints the access/refresh pair for a user. The role rides in
// the access token only; refresh tokens carry the subject and nothing else.
func issueTokenPair(issuer *jwtx.Issuer, user domain.User) (domain.TokenPair, error) {
	access, err := issuer.IssueAccess(user.ID, string(user.Role))
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := issuer.IssueRefresh(user.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    issuer.AccessTTL(),
		RefreshTTL:   issuer.RefreshTTL(),
	}, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// dummyPasswordHash is a real argon2id hash computed once at first use, so
// the timing equalizer in Login pays the same cost as a genuine verification.
func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword("timing-equalizer-not-a-real-password")
	})
	return dummyHash
}
