package service

import (
	"context"

	"github.com/decorly/decorly/internal/auth/domain"
	"github.com/decorly/decorly/internal/auth/store"
)

// UserService exposes the admin-facing account operations.
type UserService struct {
	Store store.Store
}

// GetUserByID fetches a non-deleted user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// ListUsers returns every non-deleted user, newest first.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// Deactivate flips a user inactive. Their tokens keep verifying
// cryptographically but the authentication gate refuses them.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	return s.Store.Users().SetActive(ctx, userID, false)
}

// Activate re-enables a previously deactivated user.
func (s *UserService) Activate(ctx context.Context, userID string) error {
	return s.Store.Users().SetActive(ctx, userID, true)
}

// SoftDelete marks the record deleted. The email becomes available for a new
// registration; the row itself stays for audit.
func (s *UserService) SoftDelete(ctx context.Context, userID string) error {
	return s.Store.Users().SoftDeleteUser(ctx, userID)
}
