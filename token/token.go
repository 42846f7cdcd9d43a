// Package token issues and verifies signed, expiring, purpose-tagged tokens.
//
// Tokens are compact HS256 JWTs: URL safe and self contained. A token minted for
// one purpose is never accepted for another. Tokens that must become invalid once
// the subject's state changes (password reset) carry a binding claim: an HMAC
// fingerprint of that state which CheckBinding compares against the current value.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
)

// Purpose tags what a token may be used for.
type Purpose string

const (
	Access        Purpose = "access"
	PasswordReset Purpose = "password-reset"
	EmailVerify   Purpose = "email-verify"
)

// Claims is the token payload.
type Claims struct {
	Purpose Purpose `json:"purpose"`
	// Binding is the fingerprint of subject state the token is tied to.
	Binding string `json:"bnd,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID parses the numeric subject.
func (c *Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewInvalidSignatureError("token subject is invalid", err)
	}
	return id, nil
}

// Service signs and verifies tokens with a single server secret.
type Service struct {
	secret []byte
	issuer string
	now    audit.Clock
}

// NewService creates a token service. A nil clock means the system clock.
func NewService(secret, issuer string, clock audit.Clock) *Service {
	if clock == nil {
		clock = audit.SystemClock
	}
	return &Service{secret: []byte(secret), issuer: issuer, now: clock}
}

// Issue mints a token for subjectID. The expiry is issued-at plus ttl.
func (s *Service) Issue(subjectID int64, purpose Purpose, ttl time.Duration) (string, *Claims, error) {
	return s.sign(subjectID, purpose, ttl, "")
}

// IssueBound mints a token that CheckBinding will only accept while the
// subject's state still equals state.
func (s *Service) IssueBound(subjectID int64, purpose Purpose, ttl time.Duration, state string) (string, *Claims, error) {
	return s.sign(subjectID, purpose, ttl, s.fingerprint(state))
}

func (s *Service) sign(subjectID int64, purpose Purpose, ttl time.Duration, binding string) (string, *Claims, error) {
	if ttl <= 0 {
		return "", nil, apperror.NewInternalError(fmt.Sprintf("token ttl must be positive, got %s", ttl), nil)
	}
	issuedAt := s.now()
	claims := &Claims{
		Purpose: purpose,
		Binding: binding,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, apperror.NewInternalError("failed to sign token", err)
	}
	return signed, claims, nil
}

// Verify checks signature, expiry and purpose, in that order. The signature is
// checked before any claim so a forged token never reports Expired. A token is
// still valid at the instant it expires and Expired after it.
func (s *Service) Verify(tokenString string, expected Purpose) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		// jwt rejects now == exp; the leeway defers to the check below.
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperror.NewTokenExpiredError("token has expired", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, apperror.NewInvalidSignatureError("token is malformed", err)
		default:
			return nil, apperror.NewInvalidSignatureError("token signature is invalid", err)
		}
	}
	if s.now().After(claims.ExpiresAt.Time) {
		return nil, apperror.NewTokenExpiredError("token has expired", jwt.ErrTokenExpired)
	}
	if claims.Purpose != expected {
		return nil, apperror.NewPurposeMismatchError(
			fmt.Sprintf("token purpose %q cannot be used as %q", claims.Purpose, expected))
	}
	return claims, nil
}

// CheckBinding fails when the token was bound to state that has since changed.
func (s *Service) CheckBinding(claims *Claims, state string) error {
	if claims.Binding == "" || !hmac.Equal([]byte(claims.Binding), []byte(s.fingerprint(state))) {
		return apperror.NewInvalidSignatureError("token is no longer valid", nil)
	}
	return nil
}

func (s *Service) fingerprint(state string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte("bnd:"))
	mac.Write([]byte(state))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
