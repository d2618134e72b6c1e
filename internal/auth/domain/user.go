package domain

import "time"

// Role is the flat two-value role model of the storefront.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a credential record. The password hash and reset-token fields never
// leave the service layer; HTTP responses are built from Profile().
type User struct {
	ID           string
	Name         string
	Email        string // stored lowercased; unique among non-deleted records
	Phone        string
	Role         Role
	PasswordHash string // argon2id encoded, never serialized

	// Lockout accounting. LockedUntil in the future refuses authentication
	// regardless of password correctness.
	FailedLogins int
	LockedUntil  *time.Time

	// PasswordChangedAt invalidates tokens issued before a password change.
	PasswordChangedAt *time.Time

	// Reset-token state. Only the SHA-256 fingerprint is stored.
	ResetTokenHash    *string
	ResetTokenExpires *time.Time

	Active  bool // deactivated accounts fail authentication even with a valid token
	Deleted bool // soft delete; excluded from all lookups

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LockedAt reports whether the record is locked out at the given instant.
func (u User) LockedAt(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// PasswordChangedAfter reports whether the password was changed after the
// given token issue time. Comparison is at second resolution to match JWT
// timestamp resolution.
func (u User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()
}

// Profile is the externally visible shape of a user.
type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Role      Role       `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Profile projects the record onto its public fields.
func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		Active:    u.Active,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}
