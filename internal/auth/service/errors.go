package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike so
	// responses cannot be used to probe which addresses have accounts.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrAccountLocked is distinct from ErrInvalidCredentials so clients can
	// show "try again later" instead of "wrong password". Same HTTP status.
	ErrAccountLocked = errors.New("account_locked")

	// ErrAccountDisabled means the record exists and the credentials or token
	// were fine, but the account was deactivated.
	ErrAccountDisabled = errors.New("account_disabled")

	ErrEmailTaken        = errors.New("email_taken")
	ErrInvalidRefresh    = errors.New("invalid_refresh_token")
	ErrResetTokenInvalid = errors.New("invalid_reset_token")
	ErrCurrentPassword   = errors.New("current_password_incorrect")
)

// ValidationError aggregates every failed input rule so a caller fixes them
// all in one round-trip instead of discovering them one at a time.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}
