package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/config"
	"github.com/user/blogplatform-go/credential"
	"github.com/user/blogplatform-go/token"
	"github.com/user/blogplatform-go/users"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	kind  string
	to    string
	token string
}

type fakeMail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMail) record(kind, to, tok string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{kind: kind, to: to, token: tok})
	return nil
}

func (f *fakeMail) SendWelcome(to, _ string) error { return f.record("welcome", to, "") }

func (f *fakeMail) SendVerification(to, _, tok string, _ time.Duration) error {
	return f.record("verify", to, tok)
}

func (f *fakeMail) SendPasswordReset(to, _, tok string, _ time.Duration) error {
	return f.record("reset", to, tok)
}

func (f *fakeMail) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.kind == kind {
			n++
		}
	}
	return n
}

func (f *fakeMail) last(kind string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].kind == kind {
			return f.sent[i].token
		}
	}
	return ""
}

type fixture struct {
	svc   *AuthService
	store *users.MemoryStore
	mail  *fakeMail
	clock *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := config.AuthConfig{
		JWTSecret:        "0123456789abcdef0123456789abcdef",
		Issuer:           "blogplatform-test",
		AccessTokenTTL:   30 * time.Minute,
		PasswordResetTTL: 24 * time.Hour,
		EmailVerifyTTL:   72 * time.Hour,
	}
	policy := credential.Policy{MinLength: 8, MaxLength: 72, RequireLower: true, RequireDigit: true}
	store := users.NewMemoryStore()
	mail := &fakeMail{}
	svc := NewAuthService(
		store,
		credential.NewHasher(policy, bcrypt.MinCost),
		token.NewService(cfg.JWTSecret, cfg.Issuer, clock.Now),
		mail,
		cfg,
		clock.Now,
	)
	return &fixture{svc: svc, store: store, mail: mail, clock: clock}
}

func (f *fixture) signup(t *testing.T, email, username string) *TokenResponse {
	t.Helper()
	resp, err := f.svc.Signup(context.Background(), SignupRequest{
		Email:    email,
		Username: username,
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("signup %s: %v", username, err)
	}
	return resp
}

func TestSignupAndSignin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp := f.signup(t, "Ada@Example.com", "ada")
	if resp.AccessToken == "" || resp.TokenType != "bearer" || resp.ExpiresIn != 1800 {
		t.Fatalf("unexpected token response %+v", resp)
	}
	if resp.User.Email != "ada@example.com" || resp.User.PasswordHash == "hunter2hunter2" {
		t.Fatalf("email must be normalized and password hashed: %+v", resp.User)
	}
	if f.mail.count("welcome") != 1 || f.mail.last("verify") == "" {
		t.Fatalf("expected welcome and verification mails, got %+v", f.mail.sent)
	}

	if _, err := f.svc.Signin(ctx, SigninRequest{Login: "ada", Password: "hunter2hunter2"}); err != nil {
		t.Fatalf("signin by username: %v", err)
	}
	if _, err := f.svc.Signin(ctx, SigninRequest{Email: "ADA@example.com", Password: "hunter2hunter2"}); err != nil {
		t.Fatalf("signin by email: %v", err)
	}
	_, err := f.svc.Signin(ctx, SigninRequest{Login: "ada", Password: "wrong-password1"})
	if !apperror.Is(err, apperror.InvalidCredentialsError) {
		t.Fatalf("expected InvalidCredentials, got %v", err)
	}
	_, err = f.svc.Signin(ctx, SigninRequest{Login: "nobody", Password: "hunter2hunter2"})
	if !apperror.Is(err, apperror.InvalidCredentialsError) {
		t.Fatalf("expected InvalidCredentials for unknown user, got %v", err)
	}
}

func TestSignupRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "ada@example.com", "ada")

	_, err := f.svc.Signup(ctx, SignupRequest{Email: "ada@example.com", Username: "other", Password: "hunter2hunter2"})
	if !apperror.IsConflictError(err) {
		t.Fatalf("expected Conflict for duplicate email, got %v", err)
	}
	_, err = f.svc.Signup(ctx, SignupRequest{Email: "b@example.com", Username: "ada", Password: "hunter2hunter2"})
	if !apperror.IsConflictError(err) {
		t.Fatalf("expected Conflict for duplicate username, got %v", err)
	}
	_, err = f.svc.Signup(ctx, SignupRequest{Email: "c@example.com", Username: "carol", Password: "short"})
	if !apperror.Is(err, apperror.WeakPasswordError) {
		t.Fatalf("expected WeakPassword, got %v", err)
	}
}

func TestSigninInactiveAndDeletedAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.signup(t, "ada@example.com", "ada")
	bob := f.signup(t, "bob@example.com", "bob")

	f.store.SetActive(ada.User.ID, false)
	_, err := f.svc.Signin(ctx, SigninRequest{Login: "ada", Password: "hunter2hunter2"})
	if !apperror.IsForbidden(err) {
		t.Fatalf("expected Forbidden for inactive account, got %v", err)
	}
	_, err = f.svc.Signin(ctx, SigninRequest{Login: "ada", Password: "bad-password1"})
	if !apperror.Is(err, apperror.InvalidCredentialsError) {
		t.Fatalf("inactive account with wrong password must not reveal state, got %v", err)
	}

	if err := f.store.SoftDelete(ctx, bob.User.ID, bob.User.ID, f.clock.Now()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	_, err = f.svc.Signin(ctx, SigninRequest{Login: "bob", Password: "hunter2hunter2"})
	if !apperror.Is(err, apperror.InvalidCredentialsError) {
		t.Fatalf("expected InvalidCredentials for deleted account, got %v", err)
	}
}

func TestResetTokenCannotBeReplayed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "ada@example.com", "ada")

	if err := f.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	resetToken := f.mail.last("reset")
	if resetToken == "" {
		t.Fatal("expected a reset mail")
	}

	if err := f.svc.ResetPassword(ctx, resetToken, "newpassword1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	err := f.svc.ResetPassword(ctx, resetToken, "anotherpass2")
	if !apperror.Is(err, apperror.InvalidSignatureError) {
		t.Fatalf("expected InvalidSignature on replay, got %v", err)
	}

	if _, err := f.svc.Signin(ctx, SigninRequest{Login: "ada", Password: "newpassword1"}); err != nil {
		t.Fatalf("signin with new password: %v", err)
	}
	if _, err := f.svc.Signin(ctx, SigninRequest{Login: "ada", Password: "anotherpass2"}); err == nil {
		t.Fatal("replayed reset must not have changed the password")
	}
}

func TestResetTokenExpiresAndChecksPurpose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.signup(t, "ada@example.com", "ada")

	err := f.svc.ResetPassword(ctx, resp.AccessToken, "newpassword1")
	if !apperror.Is(err, apperror.PurposeMismatchError) {
		t.Fatalf("access token used for reset: expected PurposeMismatch, got %v", err)
	}

	if err := f.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	f.clock.Advance(24*time.Hour + time.Second)
	err = f.svc.ResetPassword(ctx, f.mail.last("reset"), "newpassword1")
	if !apperror.Is(err, apperror.TokenExpiredError) {
		t.Fatalf("expected Expired past the ttl, got %v", err)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("forgot password must succeed for unknown email, got %v", err)
	}
	if len(f.mail.sent) != 0 {
		t.Fatalf("no mail expected, got %+v", f.mail.sent)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.signup(t, "ada@example.com", "ada")

	err := f.svc.ChangePassword(ctx, resp.User.ID, "not-my-password1", "newpassword1")
	if !apperror.Is(err, apperror.InvalidCredentialsError) {
		t.Fatalf("expected InvalidCredentials, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, resp.User.ID, "hunter2hunter2", "newpassword1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	user, err := f.store.GetByID(ctx, resp.User.ID, audit.Active)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.UpdatedBy == nil || *user.UpdatedBy != resp.User.ID {
		t.Fatalf("expected updated_by to be the user, got %v", user.UpdatedBy)
	}
}

func TestVerifyEmailOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.signup(t, "ada@example.com", "ada")
	verifyToken := f.mail.last("verify")

	if err := f.svc.VerifyEmail(ctx, verifyToken); err != nil {
		t.Fatalf("verify: %v", err)
	}
	user, _ := f.store.GetByID(ctx, resp.User.ID, audit.Active)
	if !user.IsVerified {
		t.Fatal("expected user to be verified")
	}
	if err := f.svc.VerifyEmail(ctx, verifyToken); !apperror.IsConflictError(err) {
		t.Fatalf("expected Conflict on second use, got %v", err)
	}
	if err := f.svc.ResendVerification(ctx, resp.User.ID); !apperror.Is(err, apperror.BadRequestError) {
		t.Fatalf("expected BadRequest for already verified user, got %v", err)
	}
}

func TestVerifyEmailAfterAddressChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.signup(t, "ada@example.com", "ada")
	oldToken := f.mail.last("verify")

	profiles := users.NewUserService(f.store, f.clock.Now)
	newEmail := "ada@other.example"
	if _, err := profiles.UpdateProfile(ctx, resp.User.ID, users.UpdateProfileRequest{Email: &newEmail}); err != nil {
		t.Fatalf("update email: %v", err)
	}

	if err := f.svc.VerifyEmail(ctx, oldToken); !apperror.Is(err, apperror.InvalidSignatureError) {
		t.Fatalf("expected InvalidSignature for a token mailed to the old address, got %v", err)
	}
	user, _ := f.store.GetByID(ctx, resp.User.ID, audit.Active)
	if user.IsVerified {
		t.Fatal("new address must stay unverified")
	}

	if err := f.svc.ResendVerification(ctx, resp.User.ID); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if to := f.mail.sent[len(f.mail.sent)-1].to; to != newEmail {
		t.Fatalf("expected verification mailed to %s, got %s", newEmail, to)
	}
	if err := f.svc.VerifyEmail(ctx, f.mail.last("verify")); err != nil {
		t.Fatalf("verify new address: %v", err)
	}
	user, _ = f.store.GetByID(ctx, resp.User.ID, audit.Active)
	if !user.IsVerified || user.Email != newEmail {
		t.Fatalf("expected %s verified, got %+v", newEmail, user)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp := f.signup(t, "ada@example.com", "ada")

	user, err := f.svc.Authenticate(ctx, resp.AccessToken)
	if err != nil || user.ID != resp.User.ID {
		t.Fatalf("authenticate: %v %+v", err, user)
	}

	if _, err := f.svc.Authenticate(ctx, f.mail.last("verify")); !apperror.Is(err, apperror.PurposeMismatchError) {
		t.Fatalf("verification token must not authenticate, got %v", err)
	}

	f.store.SetActive(resp.User.ID, false)
	if _, err := f.svc.Authenticate(ctx, resp.AccessToken); !apperror.IsForbidden(err) {
		t.Fatalf("expected Forbidden for inactive user, got %v", err)
	}
}
