package users

import (
	"strings"

	"github.com/user/blogplatform-go/audit"
)

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID              int64  `json:"id" example:"1"`
	Email           string `json:"email" example:"ada@example.com"`
	Username        string `json:"username" example:"ada"`
	FullName        string `json:"full_name" example:"Ada Lovelace"`
	Bio             string `json:"bio"`
	ProfileImageURL string `json:"profile_image_url"`
	PasswordHash    string `json:"-"`
	IsActive        bool   `json:"is_active"`
	IsVerified      bool   `json:"is_verified"`
	audit.Fields
}

// CanSignIn reports whether the account is usable.
func (u *User) CanSignIn() bool {
	return u.IsActive && !u.IsDeleted()
}

// UpdateProfileRequest is a partial update; nil fields are left unchanged.
type UpdateProfileRequest struct {
	Email           *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	FullName        *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	Bio             *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
	ProfileImageURL *string `json:"profile_image_url,omitempty" validate:"omitempty,url,max=500"`
}

// Empty reports whether the request changes nothing.
func (r UpdateProfileRequest) Empty() bool {
	return r.Email == nil && r.FullName == nil && r.Bio == nil && r.ProfileImageURL == nil
}

// NormalizeEmail is the canonical stored form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
