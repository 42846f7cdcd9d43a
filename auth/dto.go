package auth

import "github.com/user/blogplatform-go/users"

// SignupRequest is the registration payload.
type SignupRequest struct {
	Email           string `json:"email" validate:"required,email,max=255" example:"ada@example.com"`
	Username        string `json:"username" validate:"required,min=3,max=100,excludesall=@" example:"ada"`
	Password        string `json:"password" validate:"required" example:"correct horse 1"`
	FullName        string `json:"full_name,omitempty" validate:"max=100" example:"Ada Lovelace"`
	Bio             string `json:"bio,omitempty" validate:"max=2000"`
	ProfileImageURL string `json:"profile_image_url,omitempty" validate:"omitempty,url,max=500"`
}

// SigninRequest accepts either `login` (email or username) or `email`.
type SigninRequest struct {
	Login    string `json:"login,omitempty" validate:"required_without=Email" example:"ada"`
	Email    string `json:"email,omitempty" validate:"omitempty,email" example:"ada@example.com"`
	Password string `json:"password" validate:"required" example:"correct horse 1"`
}

// Identifier returns whichever login field was supplied.
func (r SigninRequest) Identifier() string {
	if r.Login != "" {
		return r.Login
	}
	return r.Email
}

// TokenResponse is returned by signup and signin.
type TokenResponse struct {
	AccessToken string      `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType   string      `json:"token_type" example:"bearer"`
	ExpiresIn   int64       `json:"expires_in" example:"1800"`
	User        *users.User `json:"user"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email" example:"ada@example.com"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ChangePasswordRequest changes the password of the signed-in user.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// VerifyEmailRequest confirms an email address.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}
