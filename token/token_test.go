package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/blogplatform-go/apperror"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService() (*Service, *clock) {
	c := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	return NewService(testSecret, "blogplatform", c.now), c
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc, _ := newTestService()

	signed, issued, err := svc.Issue(42, Access, 30*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(signed, ".") != 2 {
		t.Fatalf("expected compact JWS, got %q", signed)
	}

	claims, err := svc.Verify(signed, Access)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	id, err := claims.SubjectID()
	if err != nil || id != 42 {
		t.Fatalf("unexpected subject %d (%v)", id, err)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Fatalf("jti mismatch: %q vs %q", claims.ID, issued.ID)
	}
	if !claims.ExpiresAt.Equal(issued.IssuedAt.Add(30 * time.Minute)) {
		t.Fatal("expiry must be issued-at plus ttl")
	}
}

func TestVerifyExpired(t *testing.T) {
	svc, c := newTestService()
	signed, _, err := svc.Issue(1, Access, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	c.t = c.t.Add(59 * time.Second)
	if _, err := svc.Verify(signed, Access); err != nil {
		t.Fatalf("expected valid before expiry, got %v", err)
	}

	c.t = c.t.Add(time.Second)
	if _, err := svc.Verify(signed, Access); err != nil {
		t.Fatalf("expected valid at exactly exp, got %v", err)
	}

	exp := c.t
	for _, past := range []time.Duration{time.Millisecond, 500 * time.Millisecond, time.Second, time.Hour} {
		c.t = exp.Add(past)
		if _, err := svc.Verify(signed, Access); !apperror.Is(err, apperror.TokenExpiredError) {
			t.Fatalf("expected Expired %s after exp, got %v", past, err)
		}
	}
}

func TestVerifyPurposeMismatch(t *testing.T) {
	svc, _ := newTestService()
	signed, _, _ := svc.Issue(1, PasswordReset, time.Hour)

	if _, err := svc.Verify(signed, Access); !apperror.Is(err, apperror.PurposeMismatchError) {
		t.Fatalf("expected PurposeMismatch, got %v", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	svc, c := newTestService()
	signed, _, _ := svc.Issue(1, Access, time.Minute)

	parts := strings.Split(signed, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)
	if _, err := svc.Verify(tampered, Access); !apperror.Is(err, apperror.InvalidSignatureError) {
		t.Fatalf("expected InvalidSignature, got %v", err)
	}

	// A forged token reports the signature problem even once expired.
	c.t = c.t.Add(time.Hour)
	if _, err := svc.Verify(tampered, Access); !apperror.Is(err, apperror.InvalidSignatureError) {
		t.Fatalf("expected InvalidSignature for expired forgery, got %v", err)
	}

	if _, err := svc.Verify("not-a-token", Access); !apperror.Is(err, apperror.InvalidSignatureError) {
		t.Fatalf("expected InvalidSignature for garbage, got %v", err)
	}
}

func TestVerifyRejectsOtherSecretAndAlgorithm(t *testing.T) {
	svc, c := newTestService()
	other := NewService("ffffffffffffffffffffffffffffffff", "blogplatform", c.now)
	signed, _, _ := other.Issue(1, Access, time.Minute)
	if _, err := svc.Verify(signed, Access); !apperror.Is(err, apperror.InvalidSignatureError) {
		t.Fatalf("expected InvalidSignature for foreign secret, got %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Purpose: Access,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "blogplatform",
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Verify(unsigned, Access); !apperror.Is(err, apperror.InvalidSignatureError) {
		t.Fatalf("expected InvalidSignature for alg none, got %v", err)
	}
}

func TestBinding(t *testing.T) {
	svc, _ := newTestService()
	signed, _, _ := svc.IssueBound(5, PasswordReset, time.Hour, "$2a$hash-one")

	claims, err := svc.Verify(signed, PasswordReset)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.CheckBinding(claims, "$2a$hash-one"); err != nil {
		t.Fatalf("binding should match: %v", err)
	}
	if err := svc.CheckBinding(claims, "$2a$hash-two"); !apperror.Is(err, apperror.InvalidSignatureError) {
		t.Fatalf("expected InvalidSignature after state change, got %v", err)
	}

	unbound, _, _ := svc.Issue(5, PasswordReset, time.Hour)
	claims, _ = svc.Verify(unbound, PasswordReset)
	if err := svc.CheckBinding(claims, "$2a$hash-one"); err == nil {
		t.Fatal("unbound token must fail binding check")
	}
}
