// Package users manages account profiles: reading, updating and deactivating the
// authenticated user's own account. Authentication flows live in package auth.
package users

import (
	"context"
	"log"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
)

// UserService provides profile management on top of a Store.
type UserService struct {
	store Store
	now   audit.Clock
}

// NewUserService creates a new UserService.
func NewUserService(store Store, clock audit.Clock) *UserService {
	if clock == nil {
		clock = audit.SystemClock
	}
	return &UserService{store: store, now: clock}
}

// GetProfile returns the live account with the given id.
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*User, error) {
	return s.store.GetByID(ctx, userID, audit.Active)
}

// UpdateProfile applies a partial update. Changing the email clears the
// verified flag; the address has to be confirmed again.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*User, error) {
	if req.Empty() {
		return nil, apperror.NewBadRequestError("no fields provided for update", nil)
	}

	user, err := s.store.GetByID(ctx, userID, audit.Active)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := NormalizeEmail(*req.Email)
		if email != user.Email {
			user.Email = email
			user.IsVerified = false
		}
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.ProfileImageURL != nil {
		user.ProfileImageURL = *req.ProfileImageURL
	}
	user.OnUpdate(audit.Actor(userID), s.now())

	if err := s.store.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate soft deletes the caller's own account.
func (s *UserService) Deactivate(ctx context.Context, userID int64) error {
	if err := s.store.SoftDelete(ctx, userID, userID, s.now()); err != nil {
		return err
	}
	log.Printf("user %d deactivated their account", userID)
	return nil
}
