package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/blogplatform-go/respond"
)

// Handlers wraps the AuthService to provide HTTP handlers.
type Handlers struct {
	service *AuthService
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *AuthService) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the /auth routes. Routes that act on the signed-in
// account are wrapped with RequireAuth here.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.HandleSignup())
	r.Post("/signin", h.HandleSignin())
	r.Post("/forgot-password", h.HandleForgotPassword())
	r.Post("/reset-password", h.HandleResetPassword())
	r.Post("/verify-email", h.HandleVerifyEmail())
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.service))
		r.Post("/change-password", h.HandleChangePassword())
		r.Post("/resend-verification", h.HandleResendVerification())
	})
}

// HandleSignup godoc
// @Summary Register a new account
// @Description Creates the account, returns an access token and queues a verification email.
// @Tags auth
// @Accept json
// @Produce json
// @Param signup body SignupRequest true "Account details"
// @Success 201 {object} respond.Envelope{data=TokenResponse}
// @Failure 400 {object} apperror.ErrorResponse "Malformed body"
// @Failure 409 {object} apperror.ErrorResponse "Email or username already exists"
// @Failure 422 {object} apperror.ErrorResponse "Invalid fields or weak password"
// @Router /auth/signup [post]
func (h *Handlers) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		resp, err := h.service.Signup(r.Context(), req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusCreated, "User registered successfully", resp)
	}
}

// HandleSignin godoc
// @Summary Sign in
// @Description Accepts an email or username with a password and returns an access token.
// @Tags auth
// @Accept json
// @Produce json
// @Param signin body SigninRequest true "Credentials"
// @Success 200 {object} respond.Envelope{data=TokenResponse}
// @Failure 401 {object} apperror.ErrorResponse "Invalid credentials"
// @Failure 403 {object} apperror.ErrorResponse "Account is inactive"
// @Failure 422 {object} apperror.ErrorResponse
// @Router /auth/signin [post]
func (h *Handlers) HandleSignin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SigninRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		resp, err := h.service.Signin(r.Context(), req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "Signed in successfully", resp)
	}
}

// HandleForgotPassword godoc
// @Summary Request a password reset email
// @Description Always succeeds; a reset link is sent only if the address belongs to an active account.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body ForgotPasswordRequest true "Account email"
// @Success 200 {object} respond.Envelope
// @Failure 422 {object} apperror.ErrorResponse
// @Router /auth/forgot-password [post]
func (h *Handlers) HandleForgotPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotPasswordRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "If the email exists, a password reset link has been sent", nil)
	}
}

// HandleResetPassword godoc
// @Summary Reset password with a token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} respond.Envelope
// @Failure 401 {object} apperror.ErrorResponse "Expired, forged, used or wrong-purpose token"
// @Failure 422 {object} apperror.ErrorResponse "Weak password"
// @Router /auth/reset-password [post]
func (h *Handlers) HandleResetPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetPasswordRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "Password has been reset successfully", nil)
	}
}

// HandleChangePassword godoc
// @Summary Change the current user's password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChangePasswordRequest true "Old and new password"
// @Success 200 {object} respond.Envelope
// @Failure 401 {object} apperror.ErrorResponse "Incorrect current password"
// @Failure 422 {object} apperror.ErrorResponse "Weak password"
// @Router /auth/change-password [post]
func (h *Handlers) HandleChangePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		var req ChangePasswordRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "Password changed successfully", nil)
	}
}

// HandleVerifyEmail godoc
// @Summary Verify an email address
// @Tags auth
// @Accept json
// @Produce json
// @Param body body VerifyEmailRequest true "Verification token"
// @Success 200 {object} respond.Envelope
// @Failure 401 {object} apperror.ErrorResponse "Expired, forged or wrong-purpose token"
// @Failure 409 {object} apperror.ErrorResponse "Token already used"
// @Router /auth/verify-email [post]
func (h *Handlers) HandleVerifyEmail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyEmailRequest
		if err := respond.Bind(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "Email verified successfully", nil)
	}
}

// HandleResendVerification godoc
// @Summary Resend the verification email
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} respond.Envelope
// @Failure 400 {object} apperror.ErrorResponse "Already verified"
// @Failure 401 {object} apperror.ErrorResponse
// @Router /auth/resend-verification [post]
func (h *Handlers) HandleResendVerification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := respond.Actor(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		if err := h.service.ResendVerification(r.Context(), userID); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Success(w, http.StatusOK, "Verification email sent", nil)
	}
}
