// Package auth implements account authentication: signup, signin, password
// reset and change, email verification, and the bearer-token middleware that
// puts the authenticated user on the request context.
package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/config"
	"github.com/user/blogplatform-go/credential"
	"github.com/user/blogplatform-go/token"
	"github.com/user/blogplatform-go/users"
)

// Notifications sends account emails. Failures are logged by the caller and
// never fail the request.
type Notifications interface {
	SendWelcome(to, username string) error
	SendVerification(to, username, token string, ttl time.Duration) error
	SendPasswordReset(to, username, token string, ttl time.Duration) error
}

// AuthService provides authentication-related services.
type AuthService struct {
	users  users.Store
	hasher *credential.Hasher
	tokens *token.Service
	mail   Notifications
	cfg    config.AuthConfig
	now    audit.Clock
}

// NewAuthService creates a new AuthService.
func NewAuthService(store users.Store, hasher *credential.Hasher, tokens *token.Service, mail Notifications, cfg config.AuthConfig, clock audit.Clock) *AuthService {
	if clock == nil {
		clock = audit.SystemClock
	}
	return &AuthService{
		users:  store,
		hasher: hasher,
		tokens: tokens,
		mail:   mail,
		cfg:    cfg,
		now:    clock,
	}
}

// Signup creates an account, signs it in and queues the welcome and
// verification emails.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*TokenResponse, error) {
	hash, err := s.hasher.Set(req.Password)
	if err != nil {
		return nil, err
	}

	user := &users.User{
		Email:           users.NormalizeEmail(req.Email),
		Username:        strings.TrimSpace(req.Username),
		FullName:        req.FullName,
		Bio:             req.Bio,
		ProfileImageURL: req.ProfileImageURL,
		PasswordHash:    hash,
		IsActive:        true,
	}
	user.OnCreate(nil, s.now())

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("user registered: id=%d username=%s", user.ID, user.Username)

	resp, err := s.issueAccess(user)
	if err != nil {
		return nil, err
	}

	if err := s.mail.SendWelcome(user.Email, user.Username); err != nil {
		log.Printf("failed to queue welcome email for user %d: %v", user.ID, err)
	}
	s.sendVerification(user)
	return resp, nil
}

// Signin checks credentials. Unknown accounts, deleted accounts and wrong
// passwords all yield the same InvalidCredentials error; an existing account
// that has been suspended is Forbidden once the password is proven.
func (s *AuthService) Signin(ctx context.Context, req SigninRequest) (*TokenResponse, error) {
	user, err := s.users.GetByLogin(ctx, strings.TrimSpace(req.Identifier()))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewInvalidCredentialsError("invalid email or password")
		}
		return nil, err
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, apperror.NewInvalidCredentialsError("invalid email or password")
	}
	if !user.IsActive {
		return nil, apperror.NewForbiddenError("account is inactive")
	}
	log.Printf("user signed in: id=%d", user.ID)
	return s.issueAccess(user)
}

// ForgotPassword queues a reset link when the address belongs to a live
// account. It reports success either way so callers cannot probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			log.Printf("password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	// Bound to the current hash: once the password changes the link is dead.
	signed, _, err := s.tokens.IssueBound(user.ID, token.PasswordReset, s.cfg.PasswordResetTTL, user.PasswordHash)
	if err != nil {
		return err
	}
	if err := s.mail.SendPasswordReset(user.Email, user.Username, signed, s.cfg.PasswordResetTTL); err != nil {
		log.Printf("failed to queue password reset email for user %d: %v", user.ID, err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token. A token can be used
// once: the first successful reset changes the hash it was bound to.
func (s *AuthService) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	claims, err := s.tokens.Verify(tokenString, token.PasswordReset)
	if err != nil {
		return err
	}
	userID, err := claims.SubjectID()
	if err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID, audit.Active)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewInvalidSignatureError("token is no longer valid", err)
		}
		return err
	}
	if err := s.tokens.CheckBinding(claims, user.PasswordHash); err != nil {
		return err
	}

	hash, err := s.hasher.Set(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.PasswordHash, hash, audit.Actor(user.ID), s.now()); err != nil {
		if errors.Is(err, users.ErrCredentialChanged) {
			return apperror.NewInvalidSignatureError("token is no longer valid", err)
		}
		return err
	}
	log.Printf("password reset for user %d", user.ID)
	return nil
}

// ChangePassword replaces the password of a signed-in user after checking the
// old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID, audit.Active)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return apperror.NewInvalidCredentialsError("incorrect current password")
	}
	hash, err := s.hasher.Set(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.PasswordHash, hash, audit.Actor(user.ID), s.now()); err != nil {
		return err
	}
	log.Printf("password changed for user %d", user.ID)
	return nil
}

// VerifyEmail marks the token's subject verified. Each token is accepted once,
// and only while the account still has the address the token was mailed to.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenString string) error {
	claims, err := s.tokens.Verify(tokenString, token.EmailVerify)
	if err != nil {
		return err
	}
	userID, err := claims.SubjectID()
	if err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID, audit.Active)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewInvalidSignatureError("token is no longer valid", err)
		}
		return err
	}
	if err := s.tokens.CheckBinding(claims, user.Email); err != nil {
		return err
	}
	return s.users.ConsumeVerification(ctx, userID, user.Email, claims.ID, claims.ExpiresAt.Time, s.now())
}

// ResendVerification queues a fresh verification link.
func (s *AuthService) ResendVerification(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID, audit.Active)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return apperror.NewBadRequestError("email is already verified", nil)
	}
	s.sendVerification(user)
	return nil
}

// Authenticate resolves an access token to a live, active user.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*users.User, error) {
	claims, err := s.tokens.Verify(tokenString, token.Access)
	if err != nil {
		return nil, err
	}
	userID, err := claims.SubjectID()
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID, audit.Active)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewAuthError("user no longer exists", err)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.NewForbiddenError("account is inactive")
	}
	return user, nil
}

func (s *AuthService) issueAccess(user *users.User) (*TokenResponse, error) {
	signed, _, err := s.tokens.Issue(user.ID, token.Access, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.cfg.AccessTokenTTL / time.Second),
		User:        user,
	}, nil
}

func (s *AuthService) sendVerification(user *users.User) {
	signed, _, err := s.tokens.IssueBound(user.ID, token.EmailVerify, s.cfg.EmailVerifyTTL, user.Email)
	if err != nil {
		log.Printf("failed to issue verification token for user %d: %v", user.ID, err)
		return
	}
	if err := s.mail.SendVerification(user.Email, user.Username, signed, s.cfg.EmailVerifyTTL); err != nil {
		log.Printf("failed to queue verification email for user %d: %v", user.ID, err)
	}
}
